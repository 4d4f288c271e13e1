package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestDirAndDialect(t *testing.T) {
	assert.Equal(t, "sqlite", Dir("sqlite"))
	assert.Equal(t, "postgres", Dir("pgx"))
	assert.Equal(t, "sqlite3", Dialect("sqlite"))
	assert.Equal(t, "pgx", Dialect("pgx"))
}

func TestEmbeddedFiles(t *testing.T) {
	for _, dir := range []string{"postgres", "sqlite"} {
		entries, err := Migrations.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2, dir)
	}
}

func TestUp_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, Up(context.Background(), db, "sqlite"))

	for _, table := range []string{"users", "messages"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, table, name)
	}

	// idempotent
	require.NoError(t, Up(context.Background(), db, "sqlite"))
}
