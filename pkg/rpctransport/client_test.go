package rpctransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func statusBody(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"result":{"sync_info":{"earliest_block_height":"1","latest_block_height":"100"}}}`))
}

func TestRetryingClientStatusSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statusBody(w)
	}))
	defer srv.Close()

	c := NewRetrying(Opts{Endpoints: []string{srv.URL}}, zap.NewNop(), 2, time.Millisecond, 0.1)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), st.EarliestBlockHeight)
	require.Equal(t, uint64(100), st.LatestBlockHeight)
}

func TestRetryingClientRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		statusBody(w)
	}))
	defer srv.Close()

	c := NewRetrying(Opts{Endpoints: []string{srv.URL}}, zap.NewNop(), 3, time.Millisecond, 0)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(100), st.LatestBlockHeight)
	require.Equal(t, int32(3), calls.Load())
}

func TestRetryingClientExhaustsRetriesAndFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRetrying(Opts{Endpoints: []string{srv.URL}}, zap.NewNop(), 1, time.Millisecond, 0)
	_, err := c.Status(context.Background())
	require.Error(t, err)
}

func TestClientCircuitBreakerOpensAfterFailureThreshold(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}, BreakerFailures: 2, BreakerCooldown: time.Minute})

	var out ChainStatus
	_ = c.doJSON(context.Background(), "/status", &out)
	_ = c.doJSON(context.Background(), "/status", &out)
	require.True(t, c.isOpen(srv.URL))

	before := calls.Load()
	_ = c.doJSON(context.Background(), "/status", &out)
	require.Equal(t, before, calls.Load(), "breaker should skip the endpoint once open")
}

func TestClientNonRetryableStatusFailsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}})
	var out ChainStatus
	err := c.doJSON(context.Background(), "/status", &out)
	require.Error(t, err)
}
