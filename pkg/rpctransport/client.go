package rpctransport

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cosmos-network/cosmosingest/pkg/ingesterr"
	"github.com/cosmos-network/cosmosingest/pkg/retry"
	"go.uber.org/zap"
)

// Transport is the narrow interface the rest of the pipeline depends on,
// so block/block_results fetching can be faked in tests.
type Transport interface {
	Status(ctx context.Context) (ChainStatus, error)
	Block(ctx context.Context, height uint64) (*BlockResponse, error)
	BlockResults(ctx context.Context, height uint64) (*BlockResultsResponse, error)
}

// RetryingClient wraps a Client with the runner-facing retry/backoff
// policy built from the ingest engine's retry/backoff_ms/backoff_jitter
// configuration. backoff_jitter only switches jitter on (when > 0) or
// off; its value does not set the spread, which is retry's fixed ±15%.
type RetryingClient struct {
	c      *Client
	logger *zap.Logger
	cfg    retry.Config
}

// NewRetrying builds a RetryingClient from connection options and a
// retry budget.
func NewRetrying(opts Opts, logger *zap.Logger, retries int, backoff time.Duration, jitter float64) *RetryingClient {
	return &RetryingClient{
		c:      New(opts),
		logger: logger,
		cfg: retry.Config{
			MaxRetries:    retries + 1,
			InitialDelay:  backoff,
			MaxDelay:      30 * time.Second,
			Multiplier:    2.0,
			JitterEnabled: jitter > 0,
		},
	}
}

func (r *RetryingClient) Status(ctx context.Context) (ChainStatus, error) {
	var out ChainStatus
	err := retry.WithBackoff(ctx, r.cfg, r.logger, "rpc.status", func() error {
		var resp statusResponse
		if err := r.c.doJSON(ctx, "/status", &resp); err != nil {
			return err
		}
		earliest, err := strconv.ParseUint(resp.SyncInfo.EarliestBlockHeight, 10, 64)
		if err != nil {
			return &ingesterr.RpcError{Endpoint: "status", Err: err}
		}
		latest, err := strconv.ParseUint(resp.SyncInfo.LatestBlockHeight, 10, 64)
		if err != nil {
			return &ingesterr.RpcError{Endpoint: "status", Err: err}
		}
		out = ChainStatus{EarliestBlockHeight: earliest, LatestBlockHeight: latest}
		return nil
	})
	return out, err
}

func (r *RetryingClient) Block(ctx context.Context, height uint64) (*BlockResponse, error) {
	var out BlockResponse
	err := retry.WithBackoff(ctx, r.cfg, r.logger, fmt.Sprintf("rpc.block(%d)", height), func() error {
		return r.c.doJSON(ctx, fmt.Sprintf("/block?height=%d", height), &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RetryingClient) BlockResults(ctx context.Context, height uint64) (*BlockResultsResponse, error) {
	var out BlockResultsResponse
	err := retry.WithBackoff(ctx, r.cfg, r.logger, fmt.Sprintf("rpc.block_results(%d)", height), func() error {
		return r.c.doJSON(ctx, fmt.Sprintf("/block_results?height=%d", height), &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
