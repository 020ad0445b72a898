// Package sorder persists rank changes for every orderable collection. Each
// mutation reads the scope, plans the new ranks with package movable and
// applies them in one transaction guarded by the scope version.
package sorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	zendb "github.com/israelwong/zen-sub001/db"
	"github.com/israelwong/zen-sub001/pkg/dbtime"
	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
	"github.com/israelwong/zen-sub001/pkg/movable"
	"github.com/israelwong/zen-sub001/pkg/ordermetrics"
	"github.com/israelwong/zen-sub001/pkg/serialdispatch"
)

const (
	opNormalize  = "normalize"
	opMove       = "move"
	opAppend     = "append"
	opDeactivate = "deactivate"
)

// DefaultConflictRetries is how many times a conflicting mutation is
// re-read and re-applied before the conflict is returned.
const DefaultConflictRetries = 1

var ErrEmptyName = errors.New("name is required")

type Service struct {
	db         *sql.DB
	reader     *Reader
	dispatcher *serialdispatch.Dispatcher
	stream     Streamer
	metrics    *ordermetrics.Recorder
	logger     *slog.Logger
	retries    int
	now        func() time.Time

	// afterRead runs between the read and the write phase.
	afterRead func(ctx context.Context, scope morder.Scope)
}

type Option func(*Service)

// WithDispatcher serializes every mutation of the service through d.
func WithDispatcher(d *serialdispatch.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithStreamer(stream Streamer) Option {
	return func(s *Service) { s.stream = stream }
}

func WithMetrics(m *ordermetrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func New(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:      db,
		reader:  NewReader(db),
		logger:  slog.New(slog.DiscardHandler),
		retries: DefaultConflictRetries,
		now:     dbtime.DBNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize renumbers the active items of scope to 1..N keeping their
// (rank, creation time) order. NormalizedCount is N, not the number of rows
// written.
func (s *Service) Normalize(ctx context.Context, scope morder.Scope) (morder.NormalizationResult, error) {
	if err := scope.Validate(); err != nil {
		return morder.NormalizationResult{}, err
	}

	var (
		result morder.NormalizationResult
		event  *ChangeEvent
	)
	err := s.run(ctx, opNormalize, scope.Collection, func() error {
		event = nil
		snap, err := s.read(ctx, opNormalize, scope)
		if err != nil {
			return err
		}

		plan := movable.Normalize(morder.MovableItems(snap.items))
		result = morder.NormalizationResult{Success: true, NormalizedCount: plan.Count(), Changed: len(plan.Updates)}
		if len(plan.Updates) == 0 {
			return nil
		}

		version, err := s.apply(ctx, opNormalize, snap, plan.Updates, nil, true)
		if err != nil {
			return err
		}
		event = &ChangeEvent{Type: EventNormalize, Scope: scope, Version: version, Ranks: plan.Updates}
		return nil
	})
	if err != nil {
		return morder.NormalizationResult{}, err
	}

	s.metrics.Rewritten(string(scope.Collection), result.Changed)
	s.publish(event)
	return result, nil
}

// MoveItem gives itemID the rank newRank inside its scope, shifting the items
// in between by one. The whole scope ends up numbered 1..N.
func (s *Service) MoveItem(ctx context.Context, c morder.Collection, studioID, itemID idwrap.IDWrap, newRank int) error {
	if err := validateTarget(opMove, c, studioID, itemID); err != nil {
		return err
	}
	if newRank < 1 {
		return movable.NewValidationError(opMove, fmt.Errorf("%w: %d", movable.ErrInvalidRank, newRank))
	}

	var event *ChangeEvent
	err := s.run(ctx, opMove, c, func() error {
		event = nil
		item, err := s.resolve(ctx, opMove, c, studioID, itemID)
		if err != nil {
			return err
		}
		scope := item.Scope(c)
		snap, err := s.read(ctx, opMove, scope)
		if err != nil {
			return err
		}

		plan, err := movable.Move(morder.MovableItems(snap.items), itemID, newRank)
		switch {
		case errors.Is(err, movable.ErrItemNotFound):
			// Deactivated between the lookup and the scope read.
			return movable.NewConflictError(opMove, scope.Key(), err)
		case err != nil:
			return movable.NewValidationError(opMove, err)
		case len(plan.Updates) == 0:
			return nil
		}

		version, err := s.apply(ctx, opMove, snap, plan.Updates, nil, false)
		if err != nil {
			return err
		}
		event = &ChangeEvent{Type: EventMove, Scope: scope, Version: version, Ranks: plan.Updates}
		return nil
	})
	if err != nil {
		return err
	}

	if event != nil {
		s.metrics.Rewritten(string(c), len(event.Ranks))
	}
	s.publish(event)
	return nil
}

// Append creates an active item ranked after every item of scope.
func (s *Service) Append(ctx context.Context, scope morder.Scope, name string) (morder.Item, error) {
	if err := scope.Validate(); err != nil {
		return morder.Item{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return morder.Item{}, movable.NewValidationError(opAppend, ErrEmptyName)
	}

	var created morder.Item
	var event *ChangeEvent
	err := s.run(ctx, opAppend, scope.Collection, func() error {
		event = nil
		if t := mustTable(scope.Collection); t.ParentCollection != "" {
			if _, err := s.resolve(ctx, opAppend, t.ParentCollection, scope.StudioID, *scope.ParentID); err != nil {
				return err
			}
		}

		snap, err := s.read(ctx, opAppend, scope)
		if err != nil {
			return err
		}

		now := s.now()
		created = morder.Item{
			ID:        idwrap.NewAt(now),
			StudioID:  scope.StudioID,
			ParentID:  scope.ParentID,
			Name:      name,
			Rank:      movable.AppendRank(morder.MovableItems(snap.items)),
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		version, err := s.apply(ctx, opAppend, snap, nil, func(w *Writer, _ time.Time) error {
			return w.Insert(ctx, scope.Collection, created)
		}, false)
		if err != nil {
			return err
		}
		item := created
		event = &ChangeEvent{Type: EventAppend, Scope: scope, Version: version, Item: &item}
		return nil
	})
	if err != nil {
		return morder.Item{}, err
	}

	s.publish(event)
	return created, nil
}

// Deactivate removes itemID from its scope and renumbers what remains in the
// same transaction. The deactivated row keeps its stored rank.
func (s *Service) Deactivate(ctx context.Context, c morder.Collection, studioID, itemID idwrap.IDWrap) (morder.NormalizationResult, error) {
	if err := validateTarget(opDeactivate, c, studioID, itemID); err != nil {
		return morder.NormalizationResult{}, err
	}

	var (
		result morder.NormalizationResult
		event  *ChangeEvent
	)
	err := s.run(ctx, opDeactivate, c, func() error {
		event = nil
		item, err := s.resolve(ctx, opDeactivate, c, studioID, itemID)
		if err != nil {
			return err
		}
		scope := item.Scope(c)
		snap, err := s.read(ctx, opDeactivate, scope)
		if err != nil {
			return err
		}

		remaining := make([]movable.Item, 0, len(snap.items))
		for _, it := range snap.items {
			if it.ID.Compare(itemID) != 0 {
				remaining = append(remaining, it.Movable())
			}
		}
		if len(remaining) == len(snap.items) {
			return movable.NewConflictError(opDeactivate, scope.Key(), movable.ErrItemNotFound)
		}

		plan := movable.Normalize(remaining)
		result = morder.NormalizationResult{Success: true, NormalizedCount: plan.Count(), Changed: len(plan.Updates)}
		version, err := s.apply(ctx, opDeactivate, snap, plan.Updates, func(w *Writer, now time.Time) error {
			if err := w.Deactivate(ctx, c, itemID, now); err != nil {
				if errors.Is(err, movable.ErrItemNotFound) {
					return movable.NewConflictError(opDeactivate, scope.Key(), err)
				}
				return err
			}
			return nil
		}, true)
		if err != nil {
			return err
		}
		item.Active = false
		event = &ChangeEvent{Type: EventDeactivate, Scope: scope, Version: version, Ranks: plan.Updates, Item: &item}
		return nil
	})
	if err != nil {
		return morder.NormalizationResult{}, err
	}

	s.metrics.Rewritten(string(c), result.Changed)
	s.publish(event)
	return result, nil
}

// List returns the scope in rank order. A non-empty query keeps only items
// whose name fuzzily matches it, case-insensitively.
func (s *Service) List(ctx context.Context, scope morder.Scope, query string) ([]morder.Item, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	items, err := s.reader.FindMany(ctx, scope)
	if err != nil {
		return nil, movable.NewPersistenceError("list", scope.Key(), "", 0, err)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return items, nil
	}
	filtered := items[:0]
	for _, it := range items {
		if fuzzy.MatchNormalizedFold(query, it.Name) {
			filtered = append(filtered, it)
		}
	}
	return filtered, nil
}

// Get returns one active item of the studio.
func (s *Service) Get(ctx context.Context, c morder.Collection, studioID, itemID idwrap.IDWrap) (morder.Item, error) {
	if err := validateTarget("get", c, studioID, itemID); err != nil {
		return morder.Item{}, err
	}
	return s.resolve(ctx, "get", c, studioID, itemID)
}

// Inspect reports rank drift in scope without fixing it.
func (s *Service) Inspect(ctx context.Context, scope morder.Scope) (movable.Report, error) {
	if err := scope.Validate(); err != nil {
		return movable.Report{}, err
	}
	items, err := s.reader.FindMany(ctx, scope)
	if err != nil {
		return movable.Report{}, movable.NewPersistenceError("inspect", scope.Key(), "", 0, err)
	}
	return movable.Inspect(morder.MovableItems(items)), nil
}

type snapshot struct {
	scope   morder.Scope
	version int64
	items   []morder.Item
}

// read captures the version before the items, so any commit that lands
// after it makes the version compare-and-set fail.
func (s *Service) read(ctx context.Context, op string, scope morder.Scope) (snapshot, error) {
	key := scope.Key()
	version, err := s.reader.ScopeVersion(ctx, key)
	if err != nil {
		return snapshot{}, classify(op, key, "", 0, err)
	}
	items, err := s.reader.FindMany(ctx, scope)
	if err != nil {
		return snapshot{}, classify(op, key, "", 0, err)
	}
	if s.afterRead != nil {
		s.afterRead(ctx, scope)
	}
	return snapshot{scope: scope, version: version, items: items}, nil
}

// apply bumps the scope version, runs extra and writes updates in a single
// transaction. Nothing is left applied when it fails.
func (s *Service) apply(
	ctx context.Context,
	op string,
	snap snapshot,
	updates []movable.RankUpdate,
	extra func(w *Writer, now time.Time) error,
	normalized bool,
) (int64, error) {
	key := snap.scope.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(op, key, "", 0, err)
	}
	defer zendb.TxnRollback(tx)

	w := NewWriter(tx)
	now := s.now()
	var normalizedAt *time.Time
	if normalized {
		normalizedAt = &now
	}

	version, err := w.BumpVersion(ctx, key, snap.version, normalizedAt)
	if err != nil {
		return 0, classify(op, key, "", 0, err)
	}
	if extra != nil {
		if err := extra(w, now); err != nil {
			return 0, classify(op, key, "", 0, err)
		}
	}
	for i, u := range updates {
		if err := w.UpdateRank(ctx, snap.scope.Collection, u.ID, u.OldRank, u.NewRank, now); err != nil {
			return 0, classify(op, key, u.ID.String(), i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(op, key, "", len(updates), err)
	}
	return version, nil
}

// run executes fn through the dispatcher and retries it on conflict.
func (s *Service) run(ctx context.Context, op string, c morder.Collection, fn func() error) error {
	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		err = s.dispatch(fn)
		if !errors.Is(err, movable.ErrConflict) {
			break
		}
		s.metrics.Conflict(op, string(c))
		if attempt >= s.retries {
			break
		}
		s.logger.WarnContext(ctx, "rank conflict, retrying with a fresh read",
			"op", op, "collection", c, "attempt", attempt+1, "error", err)
	}

	result := "ok"
	if err != nil {
		result = string(movable.KindOf(err))
		if result == "" {
			result = "error"
		}
		s.logger.DebugContext(ctx, "ordering operation failed", "op", op, "collection", c, "error", err)
	}
	s.metrics.Observe(op, string(c), result, time.Since(start))
	return err
}

func (s *Service) dispatch(fn func() error) error {
	if s.dispatcher == nil {
		return fn()
	}
	return s.dispatcher.Dispatch(fn)
}

// resolve loads an item that must be active and owned by studioID. Rows of
// other studios are reported as missing.
func (s *Service) resolve(ctx context.Context, op string, c morder.Collection, studioID, itemID idwrap.IDWrap) (morder.Item, error) {
	item, err := s.reader.Get(ctx, c, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return morder.Item{}, movable.NewNotFoundError(op, itemID.String(), nil)
	}
	if err != nil {
		return morder.Item{}, classify(op, string(c), itemID.String(), 0, err)
	}
	if item.StudioID.Compare(studioID) != 0 || !item.Active {
		return morder.Item{}, movable.NewNotFoundError(op, itemID.String(), nil)
	}
	return item, nil
}

func (s *Service) publish(event *ChangeEvent) {
	if event == nil || s.stream == nil {
		return
	}
	s.stream.Publish(topicOf(event.Scope), *event)
}

func validateTarget(op string, c morder.Collection, studioID, itemID idwrap.IDWrap) error {
	if _, err := c.Table(); err != nil {
		return movable.NewValidationError(op, fmt.Errorf("%w: %w", movable.ErrInvalidScope, err))
	}
	if studioID.IsZero() {
		return movable.NewValidationError(op, fmt.Errorf("%w: %w", movable.ErrInvalidScope, morder.ErrMissingStudio))
	}
	if itemID.IsZero() {
		return movable.NewValidationError(op, movable.ErrEmptyItemID)
	}
	return nil
}
