// Package database opens the store selected by configuration.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petmatch/petmatch/internal/config"
	"github.com/petmatch/petmatch/internal/repository"
	"github.com/petmatch/petmatch/internal/repository/postgres"
	"github.com/petmatch/petmatch/internal/repository/sqlite"
)

// Open connects to the configured driver and brings the schema up to date.
// For SQLite the database file's directory is created if missing.
func Open(ctx context.Context, cfg config.Database) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("database: creating %s: %w", filepath.Dir(cfg.Path), err)
			}
		}
		store, err := sqlite.New(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("database: unknown driver %q", cfg.Driver)
	}
}
