// Package sqlitelocal opens the on-disk database used by the server and the
// maintenance CLI.
package sqlitelocal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pingcap/log"
	_ "modernc.org/sqlite"

	"github.com/israelwong/zen-sub001/db/pkg/schema"
)

var (
	ErrDBNameNotFound = errors.New("db name not found")
	ErrDBPathNotFound = errors.New("db path not found")
)

type Options struct {
	Name        string
	Dir         string
	BusyTimeout time.Duration
}

func DSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	return fmt.Sprintf(
		"file:%s?mode=rwc&_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		path, busyTimeout.Milliseconds(),
	)
}

// NewSQLiteLocal opens (creating if needed) <Dir>/<Name>.db and applies the
// schema. The returned func closes the handle.
func NewSQLiteLocal(ctx context.Context, opts Options) (*sql.DB, func(), error) {
	if opts.Name == "" {
		return nil, nil, ErrDBNameNotFound
	}
	if opts.Dir == "" {
		return nil, nil, ErrDBPathNotFound
	}

	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(opts.Dir, opts.Name+".db")
	db, err := sql.Open("sqlite", DSN(path, opts.BusyTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection keeps BEGIN IMMEDIATE from
	// contending with itself.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := schema.CreateLocalTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info("database ready: " + path)

	return db, func() { _ = db.Close() }, nil
}
