// Package database owns the PostgreSQL connection pool.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyrodovalexey/apibase/internal/config"
	"github.com/vyrodovalexey/apibase/internal/health"
	"github.com/vyrodovalexey/apibase/internal/observability"
)

// DefaultHealthCheckPeriod is how often idle connections are pinged and
// expired ones recycled.
const DefaultHealthCheckPeriod = 30 * time.Second

// ErrPoolClosed is returned by WithConn after Close.
var ErrPoolClosed = errors.New("database pool closed")

// Pool wraps a pgxpool.Pool and lends connections to health probes.
type Pool struct {
	pool   *pgxpool.Pool
	logger observability.Logger
}

var _ health.ConnProvider = (*Pool)(nil)

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PoolConfig translates cfg into a pgxpool configuration.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if d := cfg.MaxConnLifetime.Duration(); d > 0 {
		poolCfg.MaxConnLifetime = d
	}
	if d := cfg.MaxConnIdleTime.Duration(); d > 0 {
		poolCfg.MaxConnIdleTime = d
	}
	if d := cfg.ConnectTimeout.Duration(); d > 0 {
		poolCfg.ConnConfig.ConnectTimeout = d
	}
	poolCfg.HealthCheckPeriod = DefaultHealthCheckPeriod

	return poolCfg, nil
}

// New creates the pool. Connections are established lazily, so an
// unreachable database does not fail startup; the database probe reports
// it instead.
func New(ctx context.Context, cfg config.DatabaseConfig, opts ...Option) (*Pool, error) {
	p := &Pool{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(p)
	}

	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	p.pool = pool

	p.logger.Info("database pool created",
		observability.String("host", poolCfg.ConnConfig.Host),
		observability.Int("port", int(poolCfg.ConnConfig.Port)),
		observability.String("database", poolCfg.ConnConfig.Database),
		observability.Int("max_conns", int(poolCfg.MaxConns)),
		observability.Duration("max_conn_lifetime", poolCfg.MaxConnLifetime),
	)

	return p, nil
}

// WithConn acquires a connection, runs fn and releases the connection
// whatever fn returns.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, q health.Querier) error) error {
	if p == nil || p.pool == nil {
		return ErrPoolClosed
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(ctx, conn)
}

// Stat returns pool statistics.
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// Close closes every connection. Safe to call more than once.
func (p *Pool) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
	p.logger.Info("database pool closed")
}
