package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/at-ishikawa/lexipack/schemas"
)

// Migrate applies the embedded schema migrations that were not applied yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	migrations, err := fs.Sub(schemas.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("fs.Sub > %w", err)
	}
	return MigrateFS(ctx, db, migrations)
}

// MigrateFS applies the goose migrations at the root of migrations.
func MigrateFS(ctx context.Context, db *sqlx.DB, migrations fs.FS) error {
	dialect, err := gooseDialect(db.DriverName())
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db.DB, migrations)
	if err != nil {
		return fmt.Errorf("goose.NewProvider > %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up > %w", err)
	}
	for _, result := range results {
		slog.Debug("applied migration",
			"version", result.Source.Version,
			"path", result.Source.Path,
			"duration", result.Duration,
		)
	}
	return nil
}

func gooseDialect(driver string) (goose.Dialect, error) {
	switch driver {
	case DriverSQLite:
		return goose.DialectSQLite3, nil
	case DriverMySQL:
		return goose.DialectMySQL, nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}
