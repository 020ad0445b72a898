//nolint:revive // exported
package morder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/movable"
)

type Collection string

const (
	CollectionPlans               Collection = "plans"
	CollectionPipelineStages      Collection = "pipeline_stages"
	CollectionCatalogSections     Collection = "catalog_sections"
	CollectionCatalogCategories   Collection = "catalog_categories"
	CollectionPersonnelCategories Collection = "personnel_categories"
	CollectionPersonnelProfiles   Collection = "personnel_profiles"
)

// Table describes where a collection lives. Only active rows take part in
// the ordering of their scope.
type Table struct {
	Name             string
	ParentColumn     string // empty when the collection is scoped by studio only
	ParentCollection Collection
}

var tables = map[Collection]Table{
	CollectionPlans:               {Name: "plans"},
	CollectionPipelineStages:      {Name: "pipeline_stages"},
	CollectionCatalogSections:     {Name: "catalog_sections"},
	CollectionCatalogCategories:   {Name: "catalog_categories", ParentColumn: "section_id", ParentCollection: CollectionCatalogSections},
	CollectionPersonnelCategories: {Name: "personnel_categories"},
	CollectionPersonnelProfiles:   {Name: "personnel_profiles"},
}

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrMissingStudio     = errors.New("studio id is required")
	ErrMissingParent     = errors.New("parent id is required for this collection")
	ErrUnexpectedParent  = errors.New("collection does not take a parent id")
)

func Collections() []Collection {
	return []Collection{
		CollectionPlans,
		CollectionPipelineStages,
		CollectionCatalogSections,
		CollectionCatalogCategories,
		CollectionPersonnelCategories,
		CollectionPersonnelProfiles,
	}
}

func ParseCollection(s string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tables[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
	}
	return c, nil
}

func (c Collection) Table() (Table, error) {
	t, ok := tables[c]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return t, nil
}

func (c Collection) HasParent() bool {
	return tables[c].ParentColumn != ""
}

// Scope selects one orderable list.
type Scope struct {
	Collection Collection
	StudioID   idwrap.IDWrap
	ParentID   *idwrap.IDWrap
}

func NewScope(c Collection, studioID idwrap.IDWrap, parentID *idwrap.IDWrap) (Scope, error) {
	s := Scope{Collection: c, StudioID: studioID, ParentID: parentID}
	return s, s.Validate()
}

// Validate reports a movable validation error when the scope cannot select a
// list.
func (s Scope) Validate() error {
	var cause error
	switch {
	case s.StudioID.IsZero():
		cause = ErrMissingStudio
	default:
		t, err := s.Collection.Table()
		switch {
		case err != nil:
			cause = err
		case t.ParentColumn != "" && (s.ParentID == nil || s.ParentID.IsZero()):
			cause = ErrMissingParent
		case t.ParentColumn == "" && s.ParentID != nil:
			cause = ErrUnexpectedParent
		}
	}
	if cause == nil {
		return nil
	}
	return movable.NewValidationError("scope", fmt.Errorf("%w: %w", movable.ErrInvalidScope, cause))
}

// Key is the canonical scope name used for serialization, events and the
// version row.
func (s Scope) Key() string {
	if s.ParentID != nil {
		return fmt.Sprintf("%s:%s:%s", s.Collection, s.StudioID, s.ParentID)
	}
	return fmt.Sprintf("%s:%s", s.Collection, s.StudioID)
}

func (s Scope) String() string { return s.Key() }

type Item struct {
	ID        idwrap.IDWrap
	StudioID  idwrap.IDWrap
	ParentID  *idwrap.IDWrap
	Name      string
	Rank      int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i Item) Scope(c Collection) Scope {
	return Scope{Collection: c, StudioID: i.StudioID, ParentID: i.ParentID}
}

func (i Item) Movable() movable.Item {
	return movable.Item{ID: i.ID, Rank: i.Rank, Tiebreak: i.CreatedAt.UnixMilli()}
}

func MovableItems(items []Item) []movable.Item {
	out := make([]movable.Item, len(items))
	for i := range items {
		out[i] = items[i].Movable()
	}
	return out
}

// NormalizationResult mirrors the response body of the normalize call.
type NormalizationResult struct {
	Success         bool
	NormalizedCount int
	Changed         int
}
