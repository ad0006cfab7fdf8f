package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes the connection pool. Zero values keep the defaults below.
type Options struct {
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
}

const (
	defaultMaxConns          = 8
	defaultMinConns          = 1
	defaultHealthCheckPeriod = 30 * time.Second
)

// NewPool opens a pgx pool and pings it once before returning.
func NewPool(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	applyOptions(config, opts)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func applyOptions(config *pgxpool.Config, opts Options) {
	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns
	config.HealthCheckPeriod = defaultHealthCheckPeriod

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}
	if opts.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = opts.HealthCheckPeriod
	}
}
