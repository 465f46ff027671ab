package backend

import (
	"context"
	"fmt"
	"log/slog"

	"housefund/internal/kv/memory"
	"housefund/internal/kv/postgres"
	kvredis "housefund/internal/kv/redis"
	"housefund/internal/kv/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case Redis:
		store, err := kvredis.New(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initialize redis backend: %w", err)
		}
		f.logger.Info("Initialized Redis backend")
		return &Result{Store: store, Cleanup: store.Close}, nil

	case SQLite:
		store, err := sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &Result{Store: store, Cleanup: store.Close}, nil

	case Postgres:
		store, err := postgres.New(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		f.logger.Info("Initialized memory backend")
		return &Result{Store: memory.New(), Cleanup: nil}, nil
	}
}
