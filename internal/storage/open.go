// Package storage opens the configured import history backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/flighthours/internal/config"
	"github.com/JonMunkholm/flighthours/internal/core"
	"github.com/JonMunkholm/flighthours/internal/storage/memory"
	"github.com/JonMunkholm/flighthours/internal/storage/postgres"
	"github.com/JonMunkholm/flighthours/internal/storage/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend is an open history store with its lifecycle hooks.
// Ping is nil for backends with nothing to check.
type Backend struct {
	Store core.ImportHistoryStore
	Ping  func(context.Context) error
	Close func()
}

// Open connects to the backend named by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)

	case config.DriverSQLite:
		store, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite history", "path", cfg.SQLitePath)
		return &Backend{
			Store: store,
			Ping:  store.Ping,
			Close: func() {
				if err := store.Close(); err != nil {
					slog.Warn("close sqlite", "error", err)
				}
			},
		}, nil

	case config.DriverMemory:
		slog.Warn("using in-memory history; imports are lost on restart")
		return &Backend{Store: memory.New(), Close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := postgres.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("connected to database", "database", poolConfig.ConnConfig.Database)
	return &Backend{Store: store, Ping: store.Ping, Close: pool.Close}, nil
}
