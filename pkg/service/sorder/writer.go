package sorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/israelwong/zen-sub001/pkg/dbtime"
	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
	"github.com/israelwong/zen-sub001/pkg/movable"
)

type Writer struct {
	db DBTX
}

func NewWriter(tx DBTX) *Writer {
	return &Writer{db: tx}
}

// UpdateRank writes newRank only if the row still holds oldRank and is
// active; otherwise it returns movable.ErrRankMismatch.
func (w *Writer) UpdateRank(ctx context.Context, c morder.Collection, id idwrap.IDWrap, oldRank, newRank int, now time.Time) error {
	t := mustTable(c)
	res, err := w.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET orden = ?, updated_at = ? WHERE id = ? AND orden = ? AND is_active = 1`, t.Name),
		newRank, dbtime.ToMillis(now), id, oldRank,
	)
	return expectOne(res, err, movable.ErrRankMismatch)
}

// Insert stores a new active item.
func (w *Writer) Insert(ctx context.Context, c morder.Collection, item morder.Item) error {
	t := mustTable(c)
	if t.ParentColumn != "" {
		_, err := w.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (id, studio_id, %s, name, orden, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, t.Name, t.ParentColumn),
			item.ID, item.StudioID, *item.ParentID, item.Name, item.Rank, item.Active, dbtime.ToMillis(item.CreatedAt), dbtime.ToMillis(item.UpdatedAt),
		)
		return err
	}
	_, err := w.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, studio_id, name, orden, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`, t.Name),
		item.ID, item.StudioID, item.Name, item.Rank, item.Active, dbtime.ToMillis(item.CreatedAt), dbtime.ToMillis(item.UpdatedAt),
	)
	return err
}

// Deactivate takes an active row out of its scope. The stored rank is left
// as it was.
func (w *Writer) Deactivate(ctx context.Context, c morder.Collection, id idwrap.IDWrap, now time.Time) error {
	t := mustTable(c)
	res, err := w.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`, t.Name),
		dbtime.ToMillis(now), id,
	)
	return expectOne(res, err, movable.ErrItemNotFound)
}

// BumpVersion advances the scope version from expected to expected+1 and
// returns movable.ErrVersionMismatch when another writer got there first.
func (w *Writer) BumpVersion(ctx context.Context, key string, expected int64, normalizedAt *time.Time) (int64, error) {
	if _, err := w.db.ExecContext(ctx,
		`INSERT INTO order_scopes (scope_key, version) VALUES (?, 0) ON CONFLICT (scope_key) DO NOTHING`, key,
	); err != nil {
		return 0, err
	}

	var normalized sql.NullInt64
	if normalizedAt != nil {
		normalized = sql.NullInt64{Int64: dbtime.ToMillis(*normalizedAt), Valid: true}
	}
	res, err := w.db.ExecContext(ctx,
		`UPDATE order_scopes SET version = version + 1, normalized_at = COALESCE(?, normalized_at) WHERE scope_key = ? AND version = ?`,
		normalized, key, expected,
	)
	if err := expectOne(res, err, movable.ErrVersionMismatch); err != nil {
		return 0, err
	}
	return expected + 1, nil
}

func expectOne(res sql.Result, err error, mismatch error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return mismatch
	}
	return nil
}
