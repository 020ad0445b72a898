package sorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Reader struct {
	db DBTX
}

func NewReader(db DBTX) *Reader {
	return &Reader{db: db}
}

// FindMany returns the active items of scope ordered by rank, creation time
// and id. Callers validate the scope first.
func (r *Reader) FindMany(ctx context.Context, scope morder.Scope) ([]morder.Item, error) {
	t := mustTable(scope.Collection)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE studio_id = ? AND is_active = 1`, selectColumns(t), t.Name)
	args := []any{scope.StudioID}
	if t.ParentColumn != "" {
		query += fmt.Sprintf(" AND %s = ?", t.ParentColumn)
		args = append(args, *scope.ParentID)
	}
	query += " ORDER BY orden ASC, created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", scope.Key(), err)
	}
	defer rows.Close()

	var items []morder.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", scope.Key(), err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get returns the row regardless of its active flag. sql.ErrNoRows is
// returned unwrapped when the id is unknown.
func (r *Reader) Get(ctx context.Context, c morder.Collection, id idwrap.IDWrap) (morder.Item, error) {
	t := mustTable(c)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, selectColumns(t), t.Name)
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return morder.Item{}, sql.ErrNoRows
	}
	return item, err
}

// ScopeVersion returns 0 for a scope that was never written.
func (r *Reader) ScopeVersion(ctx context.Context, key string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM order_scopes WHERE scope_key = ?`, key).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return version, err
}
