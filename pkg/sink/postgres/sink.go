// Package postgres is the SQL sink: it writes assembled block records
// into the 12-schema layout of spec.md §6, in either block-atomic mode
// (one transaction per block) or batch-insert mode (rows buffered
// across blocks and flushed on threshold), sharing the same per-table
// insert statements and the same progress.Upsert call either way.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/config"
	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
	"github.com/cosmos-network/cosmosingest/pkg/ingesterr"
	"github.com/cosmos-network/cosmosingest/pkg/model"
	"github.com/cosmos-network/cosmosingest/pkg/progress"
)

// Sink implements sink.Sink against a Postgres database laid out per
// the core/bank/stake/gov/wasm schema split. In block-atomic mode
// every Write commits immediately; in batch-insert mode rows
// accumulate in buffer until a configured threshold trips a flush.
type Sink struct {
	client     *dbpostgres.Client
	logger     *zap.Logger
	cfg        config.Postgres
	progressID string

	atomic bool
	buf    buffer
}

// New opens a new connection pool, runs this package's EnsureSchema on
// it, and returns a ready Sink. The progress table is created
// separately, by progress.PostgresStore.EnsureSchema.
func New(ctx context.Context, logger *zap.Logger, cfg config.Postgres) (*Sink, error) {
	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode(cfg.SSL))

	client, err := dbpostgres.New(ctx, logger, url, poolConfig(cfg))
	if err != nil {
		return nil, err
	}

	s := &Sink{
		client:     &client,
		logger:     logger,
		cfg:        cfg,
		progressID: cfg.ProgressID,
		atomic:     cfg.Mode == config.ModeBlockAtomic,
	}

	if err := EnsureSchema(ctx, &client); err != nil {
		return nil, err
	}
	return s, nil
}

func sslMode(enabled bool) string {
	if enabled {
		return "require"
	}
	return "disable"
}

func poolConfig(cfg config.Postgres) *dbpostgres.PoolConfig {
	pc := dbpostgres.GetPoolConfigForComponent("sink")
	if cfg.PoolSize > 0 {
		pc.MaxConns = int32(cfg.PoolSize)
	}
	return pc
}

// Write hands one block record to the sink. Block-atomic mode commits
// it in its own transaction immediately; batch-insert mode appends it
// to the in-memory buffer and flushes if any per-table threshold has
// been exceeded.
func (s *Sink) Write(ctx context.Context, rec model.BlockRecord) error {
	if s.atomic {
		return s.writeAtomic(ctx, rec)
	}

	s.buf.append(rec)
	if s.buf.exceedsThreshold(s.cfg) {
		return s.Flush(ctx)
	}
	return nil
}

// writeAtomic persists one block in its own transaction: partitions,
// all row sets in the fixed table order, then the progress checkpoint.
func (s *Sink) writeAtomic(ctx context.Context, rec model.BlockRecord) error {
	return s.client.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := setTxSafety(ctx, tx); err != nil {
			return err
		}
		if err := ensureCorePartitions(ctx, tx, rec.Height, rec.Height, eventModulus(s.cfg)); err != nil {
			return err
		}
		txCtx := s.client.WithTx(ctx, tx)
		if err := insertBlockRecord(txCtx, s.client, rec); err != nil {
			return &ingesterr.SinkError{Op: "write_atomic", Err: err}
		}
		if err := progress.Upsert(txCtx, tx, progressTable(s.cfg.SchemaPrefix), s.progressID, rec.Height); err != nil {
			return &ingesterr.SinkError{Op: "upsert_progress", Err: err}
		}
		return nil
	})
}

// Flush commits every buffered row set, updates progress to the
// highest buffered height, and clears the buffers. On any statement
// error the transaction rolls back and the buffers are left intact
// for the next trigger to retry.
func (s *Sink) Flush(ctx context.Context) error {
	if s.buf.empty() {
		return nil
	}

	minH, maxH := s.buf.heightRange()
	s.logger.Info("sink flush starting",
		zap.Uint64("min_height", minH), zap.Uint64("max_height", maxH),
		zap.Int("blocks", s.buf.blockCount))

	start := time.Now()
	err := s.client.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := setTxSafety(ctx, tx); err != nil {
			return err
		}
		if err := ensureCorePartitions(ctx, tx, minH, maxH, eventModulus(s.cfg)); err != nil {
			return err
		}
		txCtx := s.client.WithTx(ctx, tx)
		if err := s.buf.insertAll(txCtx, s.client, s.cfg); err != nil {
			return &ingesterr.SinkError{Op: "flush_insert", Err: err}
		}
		if err := progress.Upsert(txCtx, tx, progressTable(s.cfg.SchemaPrefix), s.progressID, maxH); err != nil {
			return &ingesterr.SinkError{Op: "upsert_progress", Err: err}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("sink flush failed, buffers retained", zap.Error(err))
		return err
	}

	s.logger.Info("sink flush committed",
		zap.Uint64("max_height", maxH), zap.Duration("duration", time.Since(start)),
		zap.Int("rows", s.buf.rowCount()))
	s.buf.reset()
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	s.client.Close()
	return nil
}

func setTxSafety(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SET LOCAL statement_timeout = '30s'`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '5s'`); err != nil {
		return err
	}
	return nil
}

func eventModulus(cfg config.Postgres) int {
	return 16
}

func progressTable(schemaPrefix string) string {
	if schemaPrefix == "" {
		return "core.indexer_progress"
	}
	return schemaPrefix + ".indexer_progress"
}
