package db

import (
	"context"
	"fmt"
	"log/slog"

	"NovaRamp/internal/config"
	"NovaRamp/internal/store"
	"NovaRamp/internal/store/memstore"
)

// OpenRepository returns the store selected by db.driver and a func that
// releases it. With db.auto_migrate the schema is brought up to date first.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Repository, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := MigrateUp(cfg.DB.DSN); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}
	pool, err := Connect(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	return store.New(pool), pool.Close, nil
}
