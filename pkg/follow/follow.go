// Package follow implements spec.md §4.8: after a backfill completes,
// poll chain status forever and hand each newly available height
// range to the range runner, never terminating under normal
// operation.
package follow

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
	"github.com/cosmos-network/cosmosingest/pkg/runner"
	"github.com/cosmos-network/cosmosingest/pkg/sink"
)

// Config holds the poll interval for the status-polling loop.
type Config struct {
	PollInterval time.Duration
}

// Runner polls chain status and drives the range runner across each
// newly available window, never returning except on ctx cancellation
// or a fatal sink error.
type Runner struct {
	transport rpctransport.Transport
	sink      sink.Sink
	logger    *zap.Logger
	cfg       Config
}

func New(transport rpctransport.Transport, snk sink.Sink, logger *zap.Logger, cfg Config) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Runner{transport: transport, sink: snk, logger: logger, cfg: cfg}
}

// Run loops: fetch status, ingest [next, latest] if available, flush,
// advance next past latest; otherwise sleep poll_ms * uniform(0.8, 1.2)
// and retry. It runs until ctx is cancelled or the range runner
// returns a fatal error.
func (f *Runner) Run(ctx context.Context, r *runner.Runner, next uint64) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status, err := f.transport.Status(ctx)
		if err != nil {
			f.logger.Warn("follow: status poll failed", zap.Error(err))
			jitteredSleep(ctx, f.cfg.PollInterval, 0.8, 1.2)
			continue
		}

		latest := status.LatestBlockHeight
		if next > latest {
			jitteredSleep(ctx, f.cfg.PollInterval, 0.8, 1.2)
			continue
		}

		if err := r.Run(ctx, next, latest); err != nil {
			return err
		}
		if err := f.sink.Flush(ctx); err != nil {
			return err
		}

		f.logger.Info("follow: caught up to height", zap.Uint64("height", latest))
		next = latest + 1
	}
}

func jitteredSleep(ctx context.Context, base time.Duration, lowFactor, highFactor float64) {
	factor := lowFactor + rand.Float64()*(highFactor-lowFactor)
	d := time.Duration(float64(base) * factor)
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
