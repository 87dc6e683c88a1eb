// Package ingest is the composition root: it wires configuration,
// transport, decoder, sink, progress store, and the range/follow
// runners into one App, the way the teacher's app/indexer package
// wires Temporal workers from the same pieces.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/config"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
	"github.com/cosmos-network/cosmosingest/pkg/follow"
	"github.com/cosmos-network/cosmosingest/pkg/logging"
	"github.com/cosmos-network/cosmosingest/pkg/progress"
	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
	"github.com/cosmos-network/cosmosingest/pkg/runner"
	"github.com/cosmos-network/cosmosingest/pkg/sink"
	"github.com/cosmos-network/cosmosingest/pkg/sink/clickhouse"
	"github.com/cosmos-network/cosmosingest/pkg/sink/file"
	"github.com/cosmos-network/cosmosingest/pkg/sink/null"
	"github.com/cosmos-network/cosmosingest/pkg/sink/postgres"
	"github.com/cosmos-network/cosmosingest/pkg/sink/stdout"
)

// App holds every long-lived component a run of cmd/ingest needs,
// built once in Initialize and driven by Backfill and Follow.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	transport rpctransport.Transport
	decoder   *decode.Pool
	sink      sink.Sink
	progress  progress.Store

	runnerCfg runner.Config
	follow    *follow.Runner
}

// Initialize loads configuration and builds every component, failing
// fast with a *ingesterr.ConfigError (or a wrapped connection error)
// on anything that cannot be recovered from by retrying.
func Initialize(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New()
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	transport := buildTransport(cfg, logger)

	registry, err := decode.LoadRegistry(cfg.ProtoDescriptorDir)
	if err != nil {
		return nil, fmt.Errorf("load proto descriptors: %w", err)
	}
	decoder := decode.New(cfg.Concurrency.Concurrency, registry, logger)

	snk, progressStore, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build sink: %w", err)
	}

	runnerCfg := runner.Config{
		ChainID:             cfg.Source.ChainID,
		Concurrency:         cfg.Concurrency.Concurrency,
		BlockTimeout:        time.Duration(cfg.Concurrency.BlockTimeoutMs) * time.Millisecond,
		MaxBlockRetries:     cfg.Concurrency.MaxBlockRetries,
		ProgressEveryBlocks: cfg.Concurrency.ProgressEveryBlocks,
		ProgressIntervalSec: cfg.Concurrency.ProgressIntervalSec,
		CaseMode:            cfg.Concurrency.CaseMode,
		ReportSpeed:         true,
	}

	app := &App{
		cfg:       cfg,
		logger:    logger,
		transport: transport,
		decoder:   decoder,
		sink:      snk,
		progress:  progressStore,
		runnerCfg: runnerCfg,
	}

	if cfg.Range.Follow {
		app.follow = follow.New(transport, snk, logger, follow.Config{
			PollInterval: time.Duration(cfg.Range.FollowInterval) * time.Millisecond,
		})
	}

	return app, nil
}

// buildTransport wraps a rate-limited, circuit-broken RPC client with
// the retry/backoff policy from Source, and, when RateLimitBackend is
// "redis", a shared status cache so a backfill and a follow process
// pointed at the same chain don't each hammer /status independently.
func buildTransport(cfg *config.Config, logger *zap.Logger) rpctransport.Transport {
	opts := rpctransport.Opts{
		Endpoints: splitEndpoints(cfg.Source.RPCURL),
		Timeout:   time.Duration(cfg.Source.TimeoutMs) * time.Millisecond,
		RPS:       cfg.Source.RPS,
	}
	base := rpctransport.NewRetrying(opts, logger, cfg.Source.Retries,
		time.Duration(cfg.Source.BackoffMs)*time.Millisecond, cfg.Source.BackoffJitter)

	if cfg.RateLimitBackend != "redis" || cfg.RedisURL == "" {
		return base
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	cache := rpctransport.NewStatusCache(rdb, "cosmosingest:"+cfg.Source.ChainID+":status", 2*time.Second)
	return &cachedStatusTransport{Transport: base, cache: cache, logger: logger}
}

// cachedStatusTransport serves Status from a shared Redis cache when
// fresh, falling through to the underlying transport (and repopulating
// the cache) on a miss.
type cachedStatusTransport struct {
	rpctransport.Transport
	cache  *rpctransport.StatusCache
	logger *zap.Logger
}

func (c *cachedStatusTransport) Status(ctx context.Context) (rpctransport.ChainStatus, error) {
	if st, ok := c.cache.Get(ctx); ok {
		return st, nil
	}
	st, err := c.Transport.Status(ctx)
	if err != nil {
		return st, err
	}
	c.cache.Put(ctx, st)
	return st, nil
}

func splitEndpoints(rpcURL string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(rpcURL); i++ {
		if i == len(rpcURL) || rpcURL[i] == ',' {
			if i > start {
				out = append(out, trimSpace(rpcURL[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

// buildSink instantiates the configured sink and, for the two SQL
// backends, a progress.Store wrapping the same connection for resume.
func buildSink(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sink.Sink, progress.Store, error) {
	switch cfg.Sink.Kind {
	case config.SinkStdout:
		return stdout.New(), nil, nil
	case config.SinkFile:
		s, err := file.New(cfg.Sink.OutPath, cfg.Sink.FlushEvery)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.SinkNull:
		return null.New(), nil, nil
	case config.SinkPostgres:
		s, err := postgres.New(ctx, logger, cfg.Sink.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := newPostgresProgressStore(ctx, logger, cfg.Sink.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return s, store, nil
	case config.SinkClickhouse:
		s, err := clickhouse.New(ctx, logger, cfg.Sink.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sink kind %q", cfg.Sink.Kind)
	}
}

// newPostgresProgressStore opens its own pooled connection to the same
// database the Postgres sink writes to, sized for light, occasional
// reads rather than the sink's bulk-insert pool.
func newPostgresProgressStore(ctx context.Context, logger *zap.Logger, cfg config.Postgres) (progress.Store, error) {
	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	if cfg.SSL {
		url = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=require",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	}
	client, err := dbpostgres.New(ctx, logger, url, dbpostgres.GetPoolConfigForComponent("progress"))
	if err != nil {
		return nil, err
	}
	store := progress.NewPostgresStore(&client, cfg.SchemaPrefix)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ResolveFrom returns the height a backfill should start at: an
// explicit --from/FROM wins; otherwise, if resume is enabled and a
// progress store is wired, the last committed height plus one;
// otherwise first_block.
func (a *App) ResolveFrom(ctx context.Context) (uint64, error) {
	if a.cfg.Range.From != nil {
		return *a.cfg.Range.From, nil
	}
	if a.cfg.Range.Resume && a.progress != nil {
		last, ok, err := a.progress.LastHeight(ctx, a.cfg.Sink.Postgres.ProgressID)
		if err != nil {
			return 0, fmt.Errorf("resolve resume height: %w", err)
		}
		if ok {
			return last + 1, nil
		}
	}
	return a.cfg.Range.FirstBlock, nil
}

// ResolveTo returns the closing height of a backfill: an explicit
// --to/TO wins; "latest" queries chain status once.
func (a *App) ResolveTo(ctx context.Context) (uint64, error) {
	if a.cfg.Range.To != nil {
		return *a.cfg.Range.To, nil
	}
	status, err := a.transport.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve latest height: %w", err)
	}
	return status.LatestBlockHeight, nil
}

// Backfill runs the range runner over [from, to] and flushes the
// sink, leaving it open for a caller that intends to run again (the
// schedule subcommand). One-shot callers should follow up with Close.
func (a *App) Backfill(ctx context.Context, from, to uint64) error {
	r := runner.New(a.transport, a.decoder, a.sink, a.logger, a.runnerCfg)
	if err := r.Run(ctx, from, to); err != nil {
		return err
	}
	return a.sink.Flush(ctx)
}

// Follow runs a backfill of [from, latest] if from <= latest, then
// hands off to the follow runner, which blocks until ctx is cancelled
// or a fatal sink error occurs.
func (a *App) Follow(ctx context.Context, from uint64) error {
	if a.follow == nil {
		return fmt.Errorf("follow mode not configured (set FOLLOW=true)")
	}

	latest, err := a.ResolveTo(ctx)
	if err != nil {
		return err
	}
	if from <= latest {
		if err := a.Backfill(ctx, from, latest); err != nil {
			return err
		}
		from = latest + 1
	}

	followCfg := a.runnerCfg
	followCfg.Concurrency = runner.MinConcurrency(a.runnerCfg.Concurrency, 16)
	followCfg.ReportSpeed = false
	r := runner.New(a.transport, a.decoder, a.sink, a.logger, followCfg)

	defer a.sink.Close(context.Background())
	return a.follow.Run(ctx, r, from)
}

// Close flushes and releases the sink. One-shot subcommands (backfill)
// call this after their run completes; Follow and Schedule manage the
// sink's lifetime themselves since they run repeatedly or indefinitely.
func (a *App) Close(ctx context.Context) error {
	return a.sink.Close(ctx)
}

// Logger returns the structured logger built during Initialize, for
// callers (cmd/ingest's subcommand dispatch) that need to log outside
// any component's own logging.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// ScheduleCron returns the cron expression configured for the
// schedule subcommand, or "" if none was set.
func (a *App) ScheduleCron() string {
	return a.cfg.ScheduleCron
}
