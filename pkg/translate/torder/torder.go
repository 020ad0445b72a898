package torder

import (
	"fmt"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
	"github.com/israelwong/zen-sub001/pkg/movable"
	"github.com/israelwong/zen-sub001/pkg/orderv1"
	"github.com/israelwong/zen-sub001/pkg/service/sorder"
)

func SerializeModelToRPC(item morder.Item) orderv1.Item {
	return orderv1.Item{
		ID:        item.ID.String(),
		ParentID:  idPtrString(item.ParentID),
		Name:      item.Name,
		Rank:      item.Rank,
		CreatedAt: item.CreatedAt.UnixMilli(),
		UpdatedAt: item.UpdatedAt.UnixMilli(),
	}
}

func SerializeModelsToRPC(items []morder.Item) []orderv1.Item {
	out := make([]orderv1.Item, len(items))
	for i := range items {
		out[i] = SerializeModelToRPC(items[i])
	}
	return out
}

func SerializeRankChanges(updates []movable.RankUpdate) []orderv1.RankChange {
	if len(updates) == 0 {
		return nil
	}
	out := make([]orderv1.RankChange, len(updates))
	for i, u := range updates {
		out[i] = orderv1.RankChange{ID: u.ID.String(), OldRank: u.OldRank, NewRank: u.NewRank}
	}
	return out
}

func SerializeEvent(ev sorder.ChangeEvent) *orderv1.SyncResponse {
	resp := &orderv1.SyncResponse{
		Type:       string(ev.Type),
		Collection: string(ev.Scope.Collection),
		ParentID:   idPtrString(ev.Scope.ParentID),
		Version:    ev.Version,
		Ranks:      SerializeRankChanges(ev.Ranks),
	}
	if ev.Item != nil {
		item := SerializeModelToRPC(*ev.Item)
		resp.Item = &item
	}
	return resp
}

// DeserializeScope builds the scope of a request. Validation of the parent
// rule is left to the service.
func DeserializeScope(collection string, studioID idwrap.IDWrap, parentID *string) (morder.Scope, error) {
	c, err := morder.ParseCollection(collection)
	if err != nil {
		return morder.Scope{}, movable.NewValidationError("scope", fmt.Errorf("%w: %w", movable.ErrInvalidScope, err))
	}
	scope := morder.Scope{Collection: c, StudioID: studioID}
	if parentID != nil {
		id, err := DeserializeID(*parentID)
		if err != nil {
			return morder.Scope{}, err
		}
		scope.ParentID = &id
	}
	return scope, nil
}

func DeserializeID(s string) (idwrap.IDWrap, error) {
	if s == "" {
		return idwrap.IDWrap{}, movable.NewValidationError("id", movable.ErrEmptyItemID)
	}
	id, err := idwrap.NewText(s)
	if err != nil {
		return idwrap.IDWrap{}, movable.NewValidationError("id", err)
	}
	return id, nil
}

func idPtrString(id *idwrap.IDWrap) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
