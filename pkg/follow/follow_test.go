package follow

import (
	"context"
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
	"github.com/cosmos-network/cosmosingest/pkg/runner"
)

type statusTransport struct {
	mu     sync.Mutex
	latest uint64
}

func (s *statusTransport) Status(ctx context.Context) (rpctransport.ChainStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rpctransport.ChainStatus{LatestBlockHeight: s.latest}, nil
}

func (s *statusTransport) Block(ctx context.Context, height uint64) (*rpctransport.BlockResponse, error) {
	var b rpctransport.BlockResponse
	b.Block.Header.Time = time.Now().UTC().Format(time.RFC3339Nano)
	return &b, nil
}

func (s *statusTransport) BlockResults(ctx context.Context, height uint64) (*rpctransport.BlockResultsResponse, error) {
	return &rpctransport.BlockResultsResponse{}, nil
}

func (s *statusTransport) advanceTo(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = h
}

type recordingSink struct {
	mu      sync.Mutex
	heights []uint64
	flushes int
}

func (s *recordingSink) Write(ctx context.Context, rec model.BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heights = append(s.heights, rec.Height)
	return nil
}

func (s *recordingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *recordingSink) Close(ctx context.Context) error { return nil }

func TestFollowRunCatchesUpThenStopsOnCancel(t *testing.T) {
	transport := &statusTransport{latest: 105}
	sink := &recordingSink{}
	decoder := decode.New(2, emptyRegistry(t), zap.NewNop())
	rnr := runner.New(transport, decoder, sink, zap.NewNop(), runner.Config{
		Concurrency:     4,
		BlockTimeout:    time.Second,
		MaxBlockRetries: 1,
		CaseMode:        caseconv.Snake,
	})

	f := New(transport, sink, zap.NewNop(), Config{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Run(ctx, rnr, 100)
	}()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.heights) == 6 // 100..105
	}, time.Second, 5*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func emptyRegistry(t *testing.T) *decode.Registry {
	reg, err := decode.LoadRegistry("")
	require.NoError(t, err)
	return reg
}
