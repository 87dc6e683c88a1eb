// Package rpctransport talks to a Cosmos SDK / CometBFT RPC endpoint:
// /status, /block, /block_results. It wraps requests in a token-bucket
// rate limiter and a per-endpoint circuit breaker, and fails over across
// multiple configured endpoints.
package rpctransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosmos-network/cosmosingest/pkg/ingesterr"
)

// Client is a rate-limited, circuit-broken HTTP client over one or more
// RPC endpoints.
type Client struct {
	endpoints []string
	http      *http.Client

	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts configures a new Client.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// New builds a Client from Opts, applying the teacher's defaults for any
// zero-valued field.
func New(o Opts) *Client {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = o.RPS * 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.Timeout}
	} else if httpClient.Timeout == 0 {
		httpClient.Timeout = o.Timeout
	}

	c := &Client{
		endpoints:        dedupEndpoints(o.Endpoints),
		http:             httpClient,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

// dedupEndpoints drops repeat endpoints (after stripping a trailing
// slash), preserving the order the caller listed them in: doJSON tries
// endpoints in that order on every call.
func dedupEndpoints(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// drainAndClose discards any unread response body before closing it,
// so the underlying connection can be reused.
func drainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, rc)
	return rc.Close()
}

func (c *Client) refill() {
	last := c.lastRefill.Load().(time.Time)
	n := int64(time.Since(last) / c.refillEvery)
	if n <= 0 {
		return
	}
	if room := c.maxTokens - atomic.LoadInt64(&c.tokens); room > 0 {
		atomic.AddInt64(&c.tokens, min(n, room))
	}
	c.lastRefill.Store(last.Add(time.Duration(n) * c.refillEvery))
}

func (c *Client) acquire(ctx context.Context) error {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.refillEvery / 2):
		}
	}
}

func (c *Client) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

func (c *Client) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

// doJSON sends a GET to path against each configured endpoint in turn,
// skipping endpoints whose breaker is open, until one succeeds. On
// exhaustion it returns an *ingesterr.TransportError.
func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	if len(c.endpoints) == 0 {
		return &ingesterr.ConfigError{Field: "rpc_url", Reason: "no endpoints configured"}
	}

	var lastErr error
	attempts := 0
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i%len(c.endpoints)]
		if c.isOpen(ep) {
			continue
		}

		if err := c.acquire(ctx); err != nil {
			return err
		}
		attempts++

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, ep+path, bytes.NewReader(nil))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.noteFailure(ep)
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &ingesterr.RpcError{Endpoint: ep, StatusCode: resp.StatusCode}
			c.noteFailure(ep)
			_ = drainAndClose(resp.Body)
			continue
		}
		if resp.StatusCode >= 300 {
			_ = drainAndClose(resp.Body)
			return &ingesterr.RpcError{Endpoint: ep, StatusCode: resp.StatusCode}
		}

		var raw json.RawMessage
		if decErr := json.NewDecoder(resp.Body).Decode(&raw); decErr != nil {
			_ = drainAndClose(resp.Body)
			return &ingesterr.RpcError{Endpoint: ep, Err: decErr}
		}
		if cerr := drainAndClose(resp.Body); cerr != nil {
			return cerr
		}
		if out != nil {
			var env struct {
				Result json.RawMessage `json:"result"`
				Error  *struct {
					Code    int    `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(raw, &env); err == nil && (len(env.Result) > 0 || env.Error != nil) {
				if env.Error != nil {
					return &ingesterr.RpcError{Endpoint: ep, StatusCode: env.Error.Code, Err: fmt.Errorf("%s", env.Error.Message)}
				}
				raw = env.Result
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return &ingesterr.RpcError{Endpoint: ep, Err: err}
			}
		}
		return nil
	}

	return &ingesterr.TransportError{Endpoint: c.endpoints[0], Attempts: attempts, Err: lastErr}
}
