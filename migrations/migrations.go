// Package migrations embeds the goose schema for both stores so binaries don't depend on the working directory.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed goose_sql/*.sql sqlite_sql/*.sql
var files embed.FS

// Up applies every pending migration for dialect (goose.DialectPostgres or goose.DialectSQLite3)
// and returns how many ran.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect) (int, error) {
	dir := "goose_sql"
	if dialect == goose.DialectSQLite3 {
		dir = "sqlite_sql"
	}
	sub, err := fs.Sub(files, dir)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return 0, fmt.Errorf("migrations: new provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations: up: %w", err)
	}
	return len(results), nil
}
