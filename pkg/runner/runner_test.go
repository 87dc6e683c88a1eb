package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/caseconv"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	"github.com/cosmos-network/cosmosingest/pkg/model"
	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

// fakeTransport serves deterministic, mostly-empty blocks, with
// per-height hooks for simulating transient failures and variable
// fetch latency (to exercise out-of-order completion).
type fakeTransport struct {
	mu        sync.Mutex
	failUntil map[uint64]int
	delay     map[uint64]time.Duration
	calls     map[uint64]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failUntil: map[uint64]int{}, delay: map[uint64]time.Duration{}, calls: map[uint64]int{}}
}

func (f *fakeTransport) Status(ctx context.Context) (rpctransport.ChainStatus, error) {
	return rpctransport.ChainStatus{}, nil
}

func (f *fakeTransport) Block(ctx context.Context, height uint64) (*rpctransport.BlockResponse, error) {
	f.mu.Lock()
	f.calls[height]++
	attempt := f.calls[height]
	wait := f.delay[height]
	failBudget := f.failUntil[height]
	f.mu.Unlock()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if attempt <= failBudget {
		return nil, fmt.Errorf("simulated transient failure for height %d, attempt %d", height, attempt)
	}

	var b rpctransport.BlockResponse
	b.Block.Header.Time = time.Now().UTC().Format(time.RFC3339Nano)
	b.Block.Header.ProposerAddress = "cosmosvaloper1abc"
	b.BlockID.Hash = fmt.Sprintf("HASH%d", height)
	return &b, nil
}

func (f *fakeTransport) BlockResults(ctx context.Context, height uint64) (*rpctransport.BlockResultsResponse, error) {
	return &rpctransport.BlockResultsResponse{}, nil
}

type fakeSink struct {
	mu      sync.Mutex
	heights []uint64
}

func (s *fakeSink) Write(ctx context.Context, rec model.BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heights = append(s.heights, rec.Height)
	return nil
}

func (s *fakeSink) Flush(ctx context.Context) error { return nil }
func (s *fakeSink) Close(ctx context.Context) error { return nil }

func testConfig() Config {
	return Config{
		ChainID:             "testchain-1",
		Concurrency:         4,
		BlockTimeout:        2 * time.Second,
		MaxBlockRetries:     2,
		ProgressEveryBlocks: 1000,
		ProgressIntervalSec: 0,
		CaseMode:            caseconv.Snake,
	}
}

func TestRunWritesHeightsInStrictAscendingOrder(t *testing.T) {
	transport := newFakeTransport()
	// Earlier heights resolve slower than later ones, so completions
	// arrive out of order; the ready-buffer cursor must still flush
	// in ascending height order.
	transport.delay[100] = 30 * time.Millisecond
	transport.delay[101] = 10 * time.Millisecond
	transport.delay[102] = 0

	decoder := decode.New(4, mustEmptyRegistry(t), zap.NewNop())
	sink := &fakeSink{}
	r := New(transport, decoder, sink, zap.NewNop(), testConfig())

	err := r.Run(context.Background(), 100, 104)
	require.NoError(t, err)

	require.Equal(t, []uint64{100, 101, 102, 103, 104}, sink.heights)
}

func TestRunRetriesTransientFailureThenSucceeds(t *testing.T) {
	transport := newFakeTransport()
	transport.failUntil[50] = 2 // fails twice, succeeds on the 3rd attempt

	decoder := decode.New(2, mustEmptyRegistry(t), zap.NewNop())
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.MaxBlockRetries = 3
	r := New(transport, decoder, sink, zap.NewNop(), cfg)

	err := r.Run(context.Background(), 50, 50)
	require.NoError(t, err)
	require.Equal(t, []uint64{50}, sink.heights)
}

func TestRunSkipsHeightAfterExhaustingRetryBudget(t *testing.T) {
	transport := newFakeTransport()
	transport.failUntil[70] = 100 // never succeeds

	decoder := decode.New(2, mustEmptyRegistry(t), zap.NewNop())
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.MaxBlockRetries = 1
	r := New(transport, decoder, sink, zap.NewNop(), cfg)

	err := r.Run(context.Background(), 69, 71)
	require.NoError(t, err)
	// height 70 is abandoned: it never appears in the sink, but the
	// window still advances past it and flushes 69 and 71.
	assert.Equal(t, []uint64{69, 71}, sink.heights)
}

func TestMinConcurrencyCaps(t *testing.T) {
	assert.Equal(t, 16, MinConcurrency(48, 16))
	assert.Equal(t, 4, MinConcurrency(4, 16))
}

func mustEmptyRegistry(t *testing.T) *decode.Registry {
	reg, err := decode.LoadRegistry("")
	require.NoError(t, err)
	return reg
}
