package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/ingesterr"
)

// Config bounds one call's retry loop: how many attempts, and the
// exponential backoff schedule between them.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterEnabled bool
}

// DefaultConfig is the schedule used for connection bring-up (Postgres,
// ClickHouse): a handful of doubling retries capped at a minute apart.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    10,
		InitialDelay:  2 * time.Second,
		MaxDelay:      60 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
}

// WithBackoff runs fn until it succeeds, returns an *ingesterr.RpcError
// (non-retryable, returned as is), ctx is cancelled, or cfg's attempt
// budget is exhausted, sleeping an exponentially growing, optionally
// jittered delay between attempts. op names the call in logs and in
// the final error.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, op string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry cancelled: %w", op, ctx.Err())
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retries", zap.String("op", op), zap.Int("attempts", attempt))
			}
			return nil
		}
		if _, ok := lastErr.(*ingesterr.RpcError); ok {
			return lastErr
		}

		if attempt == cfg.MaxRetries {
			return fmt.Errorf("%s: failed after %d attempts: %w", op, cfg.MaxRetries, lastErr)
		}

		delay := calculateBackoff(cfg, attempt)

		logger.Warn("operation failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry cancelled: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

func calculateBackoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.JitterEnabled {
		jitter := rand.Float64() * 0.3 * delay
		delay = delay + jitter - (0.15 * delay)
	}

	return time.Duration(delay)
}
