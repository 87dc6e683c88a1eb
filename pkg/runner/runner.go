// Package runner drives ordered, concurrent ingestion of a closed
// height range: a sliding window of in-flight heights bounded by
// concurrency, a ready buffer that lets heights complete out of
// order while the sink still observes them strictly in order, and a
// bounded per-height retry budget before a height is recorded as a
// skip and progress advances past it.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/assemble"
	"github.com/cosmos-network/cosmosingest/pkg/caseconv"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	"github.com/cosmos-network/cosmosingest/pkg/extract"
	"github.com/cosmos-network/cosmosingest/pkg/ingesterr"
	"github.com/cosmos-network/cosmosingest/pkg/model"
	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
	"github.com/cosmos-network/cosmosingest/pkg/sink"
)

// Config holds the windowing, retry, and reporting knobs for one Run.
type Config struct {
	ChainID             string
	Concurrency         int
	BlockTimeout        time.Duration
	MaxBlockRetries     int
	ProgressEveryBlocks int
	ProgressIntervalSec int
	CaseMode            caseconv.Mode
	ReportSpeed         bool
}

// Runner wires the transport, decoder pool, and sink together to
// drive spec.md §4.6's sliding-window algorithm.
type Runner struct {
	transport rpctransport.Transport
	decoder   *decode.Pool
	sink      sink.Sink
	logger    *zap.Logger
	cfg       Config
}

func New(transport rpctransport.Transport, decoder *decode.Pool, snk sink.Sink, logger *zap.Logger, cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 30 * time.Second
	}
	return &Runner{transport: transport, decoder: decoder, sink: snk, logger: logger, cfg: cfg}
}

// taskResult is what one height's fetch/decode/assemble/extract
// pipeline produces, handed back to the supervisor loop.
type taskResult struct {
	height uint64
	rec    *model.BlockRecord
	err    error
}

// Run ingests every height in [from, to], blocking until the range is
// fully flushed (including skips) or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, from, to uint64) error {
	if to < from {
		return fmt.Errorf("runner: invalid range [%d, %d]", from, to)
	}

	pool := pond.NewPool(r.cfg.Concurrency)
	defer pool.StopAndWait()

	ready := xsync.NewMap[uint64, taskResult]()
	attempts := xsync.NewMap[uint64, int]()

	nextHeight := from
	retryQueue := make([]uint64, 0, 16)
	inFlight := 0
	nextToFlush := from
	processed := 0

	results := make(chan taskResult, r.cfg.Concurrency*2)

	lastProgressAt := time.Now()
	lastProgressCount := 0
	start := time.Now()

	spawn := func(h uint64) {
		inFlight++
		pool.Submit(func() {
			results <- r.processHeight(ctx, h)
		})
	}

	spawnNext := func() {
		for inFlight < r.cfg.Concurrency && (len(retryQueue) > 0 || nextHeight <= to) {
			if len(retryQueue) > 0 {
				h := retryQueue[0]
				retryQueue = retryQueue[1:]
				spawn(h)
				continue
			}
			spawn(nextHeight)
			nextHeight++
		}
	}

	flush := func() error {
		for {
			res, ok := ready.Load(nextToFlush)
			if !ok {
				return nil
			}
			ready.Delete(nextToFlush)

			if res.err == nil && res.rec != nil {
				if err := r.sink.Write(ctx, *res.rec); err != nil {
					return fmt.Errorf("runner: sink write height %d: %w", nextToFlush, err)
				}
			} else if res.err != nil {
				r.logger.Error("height abandoned after retry budget exhausted",
					zap.Uint64("height", nextToFlush), zap.Error(res.err))
			}

			nextToFlush++
			processed++
		}
	}

	maybeReportProgress := func() {
		elapsed := time.Since(lastProgressAt)
		countSince := processed - lastProgressCount
		if countSince == 0 {
			return
		}
		dueByCount := r.cfg.ProgressEveryBlocks > 0 && countSince >= r.cfg.ProgressEveryBlocks
		dueByTime := r.cfg.ProgressIntervalSec > 0 && elapsed >= time.Duration(r.cfg.ProgressIntervalSec)*time.Second
		if !dueByCount && !dueByTime {
			return
		}

		fields := []zap.Field{
			zap.Uint64("next_to_flush", nextToFlush),
			zap.Int("processed", processed),
		}
		if r.cfg.ReportSpeed && elapsed > 0 {
			rate := float64(countSince) / elapsed.Seconds()
			fields = append(fields, zap.Float64("blocks_per_sec", rate))
			if rate > 0 && to >= nextToFlush {
				remaining := float64(to - nextToFlush + 1)
				eta := time.Duration(remaining/rate) * time.Second
				fields = append(fields, zap.Duration("eta", eta))
			}
		}
		r.logger.Info("ingest progress", fields...)
		lastProgressAt = time.Now()
		lastProgressCount = processed
	}

	spawnNext()

	for nextHeight <= to || len(retryQueue) > 0 || inFlight > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			inFlight--

			if res.err != nil {
				n, _ := attempts.Load(res.height)
				n++
				attempts.Store(res.height, n)
				if n <= r.cfg.MaxBlockRetries {
					r.logger.Warn("block attempt failed, retrying",
						zap.Uint64("height", res.height), zap.Int("attempt", n), zap.Error(res.err))
					retryQueue = append(retryQueue, res.height)
				} else {
					ready.Store(res.height, res)
				}
			} else {
				ready.Store(res.height, res)
			}

			spawnNext()
			if err := flush(); err != nil {
				return err
			}
			maybeReportProgress()
		}
	}

	r.logger.Info("range complete",
		zap.Uint64("from", from), zap.Uint64("to", to),
		zap.Int("processed", processed), zap.Duration("duration", time.Since(start)))
	return nil
}

// processHeight runs fetchBlock, fetchBlockResults, decode, and
// assemble for one height, giving each of the fetch and decode steps
// its own BlockTimeout, and returns either a fully extracted row set or
// an error for the supervisor's retry budget to account for.
func (r *Runner) processHeight(ctx context.Context, height uint64) taskResult {
	stepCtx, cancel := context.WithTimeout(ctx, r.cfg.BlockTimeout)
	block, err := r.transport.Block(stepCtx, height)
	cancel()
	if err != nil {
		return taskResult{height: height, err: &ingesterr.BlockError{Height: height, Stage: "fetch_block", Err: err}}
	}

	stepCtx, cancel = context.WithTimeout(ctx, r.cfg.BlockTimeout)
	blockResults, err := r.transport.BlockResults(stepCtx, height)
	cancel()
	if err != nil {
		return taskResult{height: height, err: &ingesterr.BlockError{Height: height, Stage: "fetch_block_results", Err: err}}
	}

	stepCtx, cancel = context.WithTimeout(ctx, r.cfg.BlockTimeout)
	decoded, err := r.decoder.DecodeBlock(stepCtx, block.Block.Data.Txs)
	cancel()
	if err != nil {
		return taskResult{height: height, err: &ingesterr.BlockError{Height: height, Stage: "decode", Err: err}}
	}

	blockTime, err := time.Parse(time.RFC3339Nano, block.Block.Header.Time)
	if err != nil {
		blockTime = time.Time{}
	}

	assembled, err := assemble.Assemble(r.logger, assemble.Meta{
		ChainID: r.cfg.ChainID,
		Height:  height,
		Time:    blockTime,
	}, block, blockResults, decoded, r.cfg.CaseMode)
	if err != nil {
		return taskResult{height: height, err: &ingesterr.BlockError{Height: height, Stage: "assemble", Err: err}}
	}

	rec := extract.Block(r.cfg.ChainID, assembled)
	rec.Block = projectBlock(height, block, assembled)
	return taskResult{height: height, rec: &rec}
}

func projectBlock(height uint64, b *rpctransport.BlockResponse, assembled *assemble.Block) model.Block {
	return model.Block{
		Height:         height,
		BlockHash:      b.BlockID.Hash,
		Time:           assembled.Meta.Time,
		ProposerAddr:   b.Block.Header.ProposerAddress,
		TxCount:        len(assembled.Txs),
		LastCommitHash: b.Block.LastCommit.Hash,
		DataHash:       b.Block.Header.DataHash,
		EvidenceCount:  len(b.Block.Evidence.Evidence),
		AppHash:        b.Block.Header.AppHash,
	}
}

// MinConcurrency caps a follow-mode concurrency override at min(want, limit).
func MinConcurrency(want, limit int) int {
	if want < limit {
		return want
	}
	return limit
}
