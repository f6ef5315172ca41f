package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"gamestats/internal/logger"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies pending schema migrations for the connection's dialect.
func (d *DB) Migrate(ctx context.Context) error {
	dir, err := fs.Sub(migrationsFS, "migrations/"+string(d.dialect))
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}

	dialect := goose.DialectPostgres
	if d.dialect == DialectSQLite {
		dialect = goose.DialectSQLite3
	}

	provider, err := goose.NewProvider(dialect, d.conn, dir)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	log := logger.Component(ctx, "db")
	for _, r := range results {
		log.Info("applied migration", "version", r.Source.Version, "file", r.Source.Path)
	}
	return nil
}
