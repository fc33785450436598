package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/noahxzhu/contract-reminder/internal/config"
	"github.com/noahxzhu/contract-reminder/internal/errs"
)

const pingTimeout = 5 * time.Second

// Open builds the Store selected by cfg.Driver and verifies connectivity.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "file":
		store := NewJSONStore(cfg.FilePath)
		if err := store.Load(); err != nil {
			return nil, err
		}
		return store, nil
	case dialectPostgres:
		return openPostgres(ctx, cfg, logger)
	case dialectMySQL:
		return openMySQL(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnsupportedDriver, cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.ConnConfig.ConnectTimeout = pingTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	store, err := NewSQLStore(db, WithDialect(dialectPostgres), WithLogger(logger))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &pooledStore{SQLStore: store, pool: pool}, nil
}

// pooledStore also closes the pgx pool behind the database/sql handle.
type pooledStore struct {
	*SQLStore
	pool *pgxpool.Pool
}

func (s *pooledStore) Close() error {
	err := s.SQLStore.Close()
	s.pool.Close()
	return err
}

func openMySQL(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	mysqlCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	mysqlCfg.ParseTime = true

	db, err := sqlx.Open(dialectMySQL, mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	store, err := NewSQLStore(db, WithDialect(dialectMySQL), WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
