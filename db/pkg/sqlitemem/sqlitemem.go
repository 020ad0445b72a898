// Package sqlitemem opens private in-memory databases with the schema
// applied. Each call gets its own database, so tests stay isolated.
package sqlitemem

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/israelwong/zen-sub001/db/pkg/schema"
)

func NewSQLiteMem(ctx context.Context) (*sql.DB, func(), error) {
	name := ulid.Make().String()
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", name)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A shared-cache memory database lives as long as one connection does.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := schema.CreateLocalTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, func() { _ = db.Close() }, nil
}
