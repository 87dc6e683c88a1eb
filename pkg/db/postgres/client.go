// Package postgres wraps a pgxpool.Pool with the helpers the sink and
// progress store need: a context-propagated Executor so batched
// inserts and the progress upsert share one transaction, and
// component-sized pool configuration.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cosmos-network/cosmosingest/pkg/retry"
	"github.com/cosmos-network/cosmosingest/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor is implemented by both *pgxpool.Pool and pgx.Tx, so sink
// and progress code can run either outside or inside a transaction
// without branching.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Client wraps a pgxpool.Pool.
type Client struct {
	Logger *zap.Logger
	Pool   *pgxpool.Pool
}

// PoolConfig sizes a pgxpool for a given component (sink vs progress
// store vs CLI one-shot commands each want different pool shapes).
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Component       string
}

// New connects to url, retrying with backoff, and returns a Client
// sized per poolConfig (or sensible defaults if omitted).
func New(ctx context.Context, logger *zap.Logger, url string, poolConfig ...*PoolConfig) (Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	client := Client{Logger: logger}
	retryConfig := retry.DefaultConfig()

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return Client{}, fmt.Errorf("parse postgres url: %w", err)
	}

	var poolConf PoolConfig
	if len(poolConfig) > 0 && poolConfig[0] != nil {
		poolConf = *poolConfig[0]
	} else {
		poolConf = *GetPoolConfigForComponent("sink")
	}

	cfg.MinConns = poolConf.MinConns
	cfg.MaxConns = poolConf.MaxConns
	cfg.MaxConnLifetime = poolConf.ConnMaxLifetime
	cfg.MaxConnIdleTime = poolConf.ConnMaxIdleTime

	retryErr := retry.WithBackoff(connCtx, retryConfig, logger, "postgres_connection", func() error {
		pool, openErr := pgxpool.NewWithConfig(connCtx, cfg)
		if openErr != nil {
			return fmt.Errorf("create postgres pool: %w", openErr)
		}
		if pingErr := pool.Ping(connCtx); pingErr != nil {
			pool.Close()
			return fmt.Errorf("ping postgres: %w", pingErr)
		}
		client.Pool = pool
		logger.Info("postgres connection pool configured",
			zap.String("component", poolConf.Component),
			zap.Int32("min_conns", poolConf.MinConns),
			zap.Int32("max_conns", poolConf.MaxConns))
		return nil
	})
	if retryErr != nil {
		return Client{}, retryErr
	}
	return client, nil
}

func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Pool.Exec(ctx, query, args...)
	return err
}

func (c *Client) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return c.Pool.QueryRow(ctx, query, args...)
}

func (c *Client) BeginFunc(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, c.Pool, fn)
}

func (c *Client) SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults {
	return c.Pool.SendBatch(ctx, batch)
}

func (c *Client) Close() {
	c.Pool.Close()
}

type ctxKey string

const txKey ctxKey = "pgx_tx"

// WithTx returns ctx carrying tx, so GetExecutor below picks it up.
func (c *Client) WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetExecutor returns the transaction embedded in ctx by WithTx, or
// the pool itself if there is none.
func (c *Client) GetExecutor(ctx context.Context) Executor {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return c.Pool
}

// IsNoRows reports whether err is pgx's no-rows sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// GetPoolConfigForComponent returns deterministic pool sizing per
// component, mirroring how the indexer and progress store want
// different concurrency shapes from the same database.
func GetPoolConfigForComponent(component string) *PoolConfig {
	var minConns, maxConns int32
	connMaxLifetime := 1 * time.Hour
	connMaxIdleTime := 30 * time.Minute

	switch component {
	case "sink":
		minConns, maxConns = 4, 32
	case "progress":
		minConns, maxConns = 1, 4
	case "cli":
		minConns, maxConns = 1, 2
	default:
		minConns, maxConns = 2, 20
	}

	return &PoolConfig{
		MinConns:        minConns,
		MaxConns:        maxConns,
		ConnMaxLifetime: connMaxLifetime,
		ConnMaxIdleTime: connMaxIdleTime,
		Component:       component,
	}
}

// ParseConnMaxLifetime parses lifetimeStr, falling back to the
// POSTGRES_CONN_MAX_LIFETIME env var, then to one hour.
func ParseConnMaxLifetime(lifetimeStr string) time.Duration {
	if lifetimeStr != "" {
		if d, err := time.ParseDuration(lifetimeStr); err == nil {
			return d
		}
	}
	if envStr := utils.Env("POSTGRES_CONN_MAX_LIFETIME", ""); envStr != "" {
		if d, err := time.ParseDuration(envStr); err == nil {
			return d
		}
	}
	return 1 * time.Hour
}
