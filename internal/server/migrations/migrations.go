// Package migrations embeds the goose SQL migrations for every supported
// database dialect. Each dialect lives in its own directory.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Dir returns the migrations directory for a database driver name.
func Dir(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}

// Dialect maps a database/sql driver name to the goose dialect.
func Dialect(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return "pgx"
}

// Up applies every pending migration for driver.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect(Dialect(driver)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, Dir(driver))
}
