// Package repomanager vends repository implementations bound to a DBTX
// (a *sql.DB or a transaction) and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pinmail/internal/dbx"
	"github.com/dmitrijs2005/pinmail/internal/server/migrations"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
}

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

// New returns the manager for a database/sql driver name ("pgx" or "sqlite").
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case "pgx":
		return NewPostgresRepositoryManager(), nil
	case "sqlite":
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
