package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/config"
	"github.com/meikuraledutech/architex/filestore"
	"github.com/meikuraledutech/architex/postgres"
	"github.com/meikuraledutech/architex/redis"
	"github.com/meikuraledutech/architex/sqlite"
)

// openStore builds the configured StateStore. The returned func releases
// its connections.
func openStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (architex.StateStore, func(), error) {
	log = log.With(slog.String("backend", cfg.Backend))

	switch cfg.Backend {
	case config.StoreFile:
		log.Info("state store ready", slog.String("dir", cfg.StateDir))
		return filestore.New(cfg.StateDir), func() {}, nil

	case config.StoreRedis:
		s, err := redis.NewFromURL(ctx, cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("state store ready")
		return s, func() { _ = s.Close() }, nil

	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("state store ready", slog.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := postgres.New(pool)
		if err := s.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("state store ready")
		return s, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
}
