package rpctransport

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache publishes the last observed ChainStatus to Redis so that
// multiple independent ingest processes polling the same chain (e.g. a
// backfill job and a follow job) can share one view of the tip instead
// of each hammering /status on its own schedule. It never writes
// progress or coordinates height ownership — that remains single-writer
// per progress_id.
type StatusCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewStatusCache builds a StatusCache. A nil *redis.Client is accepted
// and turns every method into a no-op, so the cache layer is strictly
// additive: callers default to always hitting the RPC endpoint directly.
func NewStatusCache(rdb *redis.Client, key string, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &StatusCache{rdb: rdb, key: key, ttl: ttl}
}

// Get returns a cached status and true if one is present and unexpired.
func (s *StatusCache) Get(ctx context.Context) (ChainStatus, bool) {
	if s.rdb == nil {
		return ChainStatus{}, false
	}
	res, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil || len(res) == 0 {
		return ChainStatus{}, false
	}
	var out ChainStatus
	if v, ok := res["earliest"]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			out.EarliestBlockHeight = n
		}
	}
	if v, ok := res["latest"]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			out.LatestBlockHeight = n
		}
	}
	return out, out.LatestBlockHeight > 0
}

// Put stores a freshly fetched status for other processes to read.
func (s *StatusCache) Put(ctx context.Context, st ChainStatus) {
	if s.rdb == nil {
		return
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.key, map[string]any{
		"earliest": st.EarliestBlockHeight,
		"latest":   st.LatestBlockHeight,
	})
	pipe.Expire(ctx, s.key, s.ttl)
	_, _ = pipe.Exec(ctx)
}
