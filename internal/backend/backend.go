// Package backend selects and opens the configured storage backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hongminglow/expense-tracker-be/internal/config"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
	"github.com/hongminglow/expense-tracker-be/internal/storage/postgres"
	"github.com/hongminglow/expense-tracker-be/internal/storage/sqlite"
)

// Open returns the store named by cfg.DataBackend with migrations applied.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		logger.Info("Initialized postgres backend", log.FieldOperation, log.OpMigrate)
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		logger.Info("Initialized sqlite backend", log.FieldOperation, log.OpMigrate, "db_path", cfg.SQLiteDBPath)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}
