package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"regexp"
	"strings"
)

//go:embed schema.sql
var ddl string

var (
	createTableRe = regexp.MustCompile(`(?i)\bCREATE\s+TABLE\s+`)
	createIndexRe = regexp.MustCompile(`(?i)\bCREATE\s+(UNIQUE\s+)?INDEX\s+`)
	lineCommentRe = regexp.MustCompile(`(?m)^\s*--.*$`)
)

// Statements returns the schema split into idempotent statements.
func Statements() []string {
	body := lineCommentRe.ReplaceAllString(ddl, "")
	body = createTableRe.ReplaceAllString(body, "CREATE TABLE IF NOT EXISTS ")
	body = createIndexRe.ReplaceAllStringFunc(body, func(match string) string {
		if strings.Contains(strings.ToUpper(match), "UNIQUE") {
			return "CREATE UNIQUE INDEX IF NOT EXISTS "
		}
		return "CREATE INDEX IF NOT EXISTS "
	})

	var out []string
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// CreateLocalTables applies the schema. It is safe to call on a database
// that already has it.
func CreateLocalTables(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("schema: database connection is nil")
	}
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
