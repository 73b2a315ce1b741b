package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordshare/internal/platform/config"
)

func TestMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.Database{
		Driver: config.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "registry.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := Migrate(ctx, db, config.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_registry.sql", "0002_audit_outbox.sql"}, applied)

	again, err := Migrate(ctx, db, config.DriverSQLite)
	require.NoError(t, err)
	assert.Empty(t, again, "migrations are applied once")

	for _, table := range []string{"identities", "documents", "access_grants", "audit_outbox"} {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n), table)
	}
}

func TestMigrateRejectsMemoryDriver(t *testing.T) {
	_, err := Migrate(context.Background(), nil, config.DriverMemory)
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"plain file", "file:/tmp/r.db", "file:/tmp/r.db?_txlock=immediate&_busy_timeout=5000"},
		{"existing params", "file:/tmp/r.db?_journal_mode=WAL", "file:/tmp/r.db?_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000"},
		{"explicit txlock kept", "file:/tmp/r.db?_txlock=exclusive", "file:/tmp/r.db?_txlock=exclusive&_busy_timeout=5000"},
		{"short timeout alias kept", "file:/tmp/r.db?_timeout=100&_txlock=immediate", "file:/tmp/r.db?_timeout=100&_txlock=immediate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, stmts)
}
