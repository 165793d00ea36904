package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UkralStul/posts-service/internal/config"
	"github.com/UkralStul/posts-service/internal/metrics"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/storage/badgerstore"
	"github.com/UkralStul/posts-service/internal/storage/inmemory"
	"github.com/UkralStul/posts-service/internal/storage/postgres"
	"github.com/UkralStul/posts-service/internal/storage/sqlstore"
)

// backend - выбранное хранилище и то, что нужно для его обслуживания.
type backend struct {
	store storage.Storage
	// stats есть только у хранилищ с пулом соединений.
	stats metrics.StatsFunc
	close func() error
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendInMemory:
		return &backend{store: inmemory.New(), close: func() error { return nil }}, nil

	case config.BackendPostgres:
		opts := []postgres.Option{
			postgres.WithPoolSize(cfg.PoolSize, cfg.QueueSize),
			postgres.WithConnTimeout(cfg.ConnTimeout),
			postgres.WithLogger(logger),
		}
		if cfg.AutoMigrate {
			opts = append(opts, postgres.WithAutoMigrate())
		}
		s, err := postgres.New(cfg.DSN, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return &backend{store: s, stats: s.Stats, close: s.Close}, nil

	case config.BackendSQL:
		return openSQL(ctx, cfg, logger)

	case config.BackendBadger:
		s, err := badgerstore.Open(cfg.BadgerPath,
			badgerstore.WithPoolSize(cfg.PoolSize, cfg.QueueSize),
			badgerstore.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return &backend{store: s, close: s.Close}, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

func openSQL(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*backend, error) {
	opts := []sqlstore.Option{
		sqlstore.WithPoolSize(cfg.PoolSize, cfg.QueueSize),
		sqlstore.WithLogger(logger),
	}

	var (
		s         *sqlstore.Store
		closePool func()
		err       error
	)
	if cfg.SQLDriver == "pgx" {
		poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dsn: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.PoolSize)
		if cfg.ConnTimeout > 0 {
			poolCfg.ConnConfig.ConnectTimeout = cfg.ConnTimeout
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if s, err = sqlstore.NewFromPGXPool(pool, opts...); err != nil {
			pool.Close()
			return nil, err
		}
		closePool = pool.Close
	} else if s, err = sqlstore.Open(cfg.SQLDriver, cfg.DSN, opts...); err != nil {
		return nil, err
	}

	closeAll := func() error {
		err := s.Close()
		if closePool != nil {
			closePool()
		}
		return err
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = closeAll()
			return nil, err
		}
	}
	return &backend{store: s, stats: s.Stats, close: closeAll}, nil
}
