package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/app/ingest"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ingest <backfill|follow|schedule>")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := ingest.Initialize(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}

	var runErr error
	switch os.Args[1] {
	case "backfill":
		runErr = runBackfill(ctx, app)
	case "follow":
		runErr = runFollow(ctx, app)
	case "schedule":
		runErr = runSchedule(ctx, app)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(1)
	}

	if runErr != nil {
		if ctx.Err() != nil {
			// Cancelled by signal during a graceful shutdown: not a failure.
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "ingest:", runErr)
		os.Exit(1)
	}
}

func runBackfill(ctx context.Context, app *ingest.App) error {
	from, err := app.ResolveFrom(ctx)
	if err != nil {
		return err
	}
	to, err := app.ResolveTo(ctx)
	if err != nil {
		return err
	}
	if err := app.Backfill(ctx, from, to); err != nil {
		return err
	}
	return app.Close(ctx)
}

func runFollow(ctx context.Context, app *ingest.App) error {
	from, err := app.ResolveFrom(ctx)
	if err != nil {
		return err
	}
	return app.Follow(ctx, from)
}

// runSchedule drives a recurring backfill on a cron expression, for
// deployments that would rather cron a catch-up job than run a
// long-lived follow process. Each run covers the range ResolveFrom and
// ResolveTo compute from the loaded configuration; it picks up after
// the last committed height only when RESUME is set and FROM is not.
// It blocks until ctx is cancelled.
func runSchedule(ctx context.Context, app *ingest.App) error {
	expr := app.ScheduleCron()
	if expr == "" {
		return fmt.Errorf("schedule: SCHEDULE_CRON is not set")
	}

	logger := app.Logger()
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		from, err := app.ResolveFrom(ctx)
		if err != nil {
			logger.Error("schedule: resolve from failed", zap.Error(err))
			return
		}
		to, err := app.ResolveTo(ctx)
		if err != nil {
			logger.Error("schedule: resolve to failed", zap.Error(err))
			return
		}
		if from > to {
			logger.Info("schedule: nothing to do", zap.Uint64("from", from), zap.Uint64("to", to))
			return
		}
		logger.Info("schedule: triggered backfill", zap.Uint64("from", from), zap.Uint64("to", to))
		if err := app.Backfill(ctx, from, to); err != nil {
			logger.Error("schedule: backfill failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}

	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return app.Close(context.Background())
}
