package schema_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/israelwong/zen-sub001/db/pkg/schema"
	"github.com/israelwong/zen-sub001/db/pkg/sqlitemem"
)

func TestStatementsAreIdempotent(t *testing.T) {
	stmts := schema.Statements()
	require.NotEmpty(t, stmts)
	for _, stmt := range stmts {
		require.Contains(t, stmt, "IF NOT EXISTS", stmt)
		require.False(t, strings.HasPrefix(stmt, "--"))
	}
}

func TestCreateLocalTablesTwice(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := sqlitemem.NewSQLiteMem(ctx)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, schema.CreateLocalTables(ctx, db))

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'order_scopes'`).Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCreateLocalTablesNilDB(t *testing.T) {
	require.Error(t, schema.CreateLocalTables(context.Background(), nil))
}
