// Package config loads and validates the ingest engine's configuration
// surface from the environment, in the style of the teacher's
// pkg/utils.Env helpers: no dotenv parsing, no CLI framework — just
// typed getters with defaults, validated once at start-up.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cosmos-network/cosmosingest/pkg/caseconv"
	"github.com/cosmos-network/cosmosingest/pkg/ingesterr"
	"github.com/cosmos-network/cosmosingest/pkg/utils"
)

// CaseMode controls message-field key casing in decoded tx payloads.
type CaseMode = caseconv.Mode

const (
	CaseSnake = caseconv.Snake
	CaseCamel = caseconv.Camel
)

// SinkKind selects the persistence backend.
type SinkKind string

const (
	SinkStdout     SinkKind = "stdout"
	SinkFile       SinkKind = "file"
	SinkPostgres   SinkKind = "postgres"
	SinkNull       SinkKind = "null"
	SinkClickhouse SinkKind = "clickhouse"
)

// SinkMode selects transactional granularity for the Postgres sink; the
// ClickHouse sink always buffers and flushes on threshold and ignores it.
type SinkMode string

const (
	ModeBatchInsert  SinkMode = "batch-insert"
	ModeBlockAtomic  SinkMode = "block-atomic"
)

// Source holds RPC transport configuration (spec.md §6 "Source").
type Source struct {
	ChainID       string
	RPCURL        string
	TimeoutMs     int
	RPS           int
	Retries       int
	BackoffMs     int
	BackoffJitter float64
}

// Range holds the backfill height window and follow-mode configuration.
type Range struct {
	From           *uint64
	To             *uint64
	ToLatest       bool
	Resume         bool
	FirstBlock     uint64
	Follow         bool
	FollowInterval int
}

// Concurrency holds windowing and retry knobs for the range runner.
type Concurrency struct {
	Concurrency         int
	BlockTimeoutMs      int
	MaxBlockRetries     int
	ProgressEveryBlocks int
	ProgressIntervalSec int
	CaseMode            CaseMode
}

// Postgres holds the SQL sink's connection and batching configuration.
type Postgres struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSL           bool
	Mode          SinkMode
	BatchBlocks   int
	BatchTxs      int
	BatchMsgs     int
	BatchEvents   int
	BatchAttrs    int
	PoolSize      int
	ProgressID    string
	SchemaPrefix  string
}

// Sink holds the top-level sink selection plus the file/flush knobs.
type Sink struct {
	Kind       SinkKind
	OutPath    string
	FlushEvery int
	Postgres   Postgres
}

// Config is the fully validated configuration for one ingest run.
type Config struct {
	Source      Source
	Range       Range
	Concurrency Concurrency
	Sink        Sink

	// ProtoDescriptorDir points at a directory of compiled
	// FileDescriptorSet blobs (.protoset/.desc) for the decoder's
	// dynamic registry tier; empty disables the dynamic tier.
	ProtoDescriptorDir string
	// RateLimitBackend is "local" (default, process-local token
	// bucket only) or "redis" (additionally share /status polling
	// results across processes via pkg/rpctransport/redisbucket.go).
	RateLimitBackend string
	RedisURL         string
	// ScheduleCron, if set, drives `cmd/ingest schedule`'s recurring
	// backfill trigger.
	ScheduleCron string
}

// Load reads the configuration surface of spec.md §6 from the process
// environment and validates it. Returns a *ingesterr.ConfigError wrapped
// as error on any invalid value.
func Load() (*Config, error) {
	cfg := &Config{
		Source: Source{
			ChainID:       utils.Env("CHAIN_ID", "cosmoshub-4"),
			RPCURL:        utils.Env("RPC_URL", ""),
			TimeoutMs:     utils.EnvInt("TIMEOUT_MS", 5000),
			RPS:           utils.EnvInt("RPS", 150),
			Retries:       utils.EnvInt("RETRIES", 3),
			BackoffMs:     utils.EnvInt("BACKOFF_MS", 250),
			BackoffJitter: utils.EnvFloat("BACKOFF_JITTER", 0.3),
		},
		Range: Range{
			Resume:         utils.EnvBool("RESUME", false),
			FirstBlock:     uint64(utils.EnvInt("FIRST_BLOCK", 5200792)),
			Follow:         utils.EnvBool("FOLLOW", false),
			FollowInterval: utils.EnvInt("FOLLOW_INTERVAL_MS", 5000),
		},
		Concurrency: Concurrency{
			Concurrency:         utils.EnvInt("CONCURRENCY", 48),
			BlockTimeoutMs:      utils.EnvInt("BLOCK_TIMEOUT_MS", 30000),
			MaxBlockRetries:     utils.EnvInt("MAX_BLOCK_RETRIES", 3),
			ProgressEveryBlocks: utils.EnvInt("PROGRESS_EVERY_BLOCKS", 1000),
			ProgressIntervalSec: utils.EnvInt("PROGRESS_INTERVAL_SEC", 15),
			CaseMode:            CaseMode(utils.Env("CASE_MODE", string(CaseSnake))),
		},
		Sink: Sink{
			Kind:       SinkKind(utils.Env("SINK_KIND", string(SinkStdout))),
			OutPath:    utils.Env("OUT_PATH", ""),
			FlushEvery: utils.EnvInt("FLUSH_EVERY", 0),
			Postgres: Postgres{
				Host:         utils.Env("PG_HOST", "localhost"),
				Port:         utils.EnvInt("PG_PORT", 5432),
				User:         utils.Env("PG_USER", "postgres"),
				Password:     utils.Env("PG_PASSWORD", ""),
				Database:     utils.Env("PG_DATABASE", "postgres"),
				SSL:          utils.EnvBool("PG_SSL", false),
				Mode:         SinkMode(utils.Env("PG_MODE", string(ModeBatchInsert))),
				BatchBlocks:  utils.EnvInt("PG_BATCH_BLOCKS", 1000),
				BatchTxs:     utils.EnvInt("PG_BATCH_TXS", 2000),
				BatchMsgs:    utils.EnvInt("PG_BATCH_MSGS", 5000),
				BatchEvents:  utils.EnvInt("PG_BATCH_EVENTS", 10000),
				BatchAttrs:   utils.EnvInt("PG_BATCH_ATTRS", 30000),
				PoolSize:     utils.EnvInt("PG_POOL_SIZE", 16),
				ProgressID:   utils.Env("PG_PROGRESS_ID", "default"),
				SchemaPrefix: utils.Env("PG_SCHEMA_PREFIX", ""),
			},
		},
		ProtoDescriptorDir: utils.Env("PROTO_DESCRIPTOR_DIR", ""),
		RateLimitBackend:   utils.Env("RATE_LIMIT_BACKEND", "local"),
		RedisURL:           utils.Env("REDIS_URL", ""),
		ScheduleCron:       utils.Env("SCHEDULE_CRON", ""),
	}

	if v := utils.Env("FROM", ""); v != "" {
		n, err := parseUintEnv(v)
		if err != nil {
			return nil, &ingesterr.ConfigError{Field: "from", Reason: err.Error()}
		}
		cfg.Range.From = &n
	}

	if v := utils.Env("TO", ""); v != "" {
		if v == "latest" {
			cfg.Range.ToLatest = true
		} else {
			n, err := parseUintEnv(v)
			if err != nil {
				return nil, &ingesterr.ConfigError{Field: "to", Reason: err.Error()}
			}
			cfg.Range.To = &n
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Source.RPCURL == "" {
		return &ingesterr.ConfigError{Field: "rpc_url", Reason: "required"}
	}
	for _, ep := range strings.Split(c.Source.RPCURL, ",") {
		u, err := url.Parse(strings.TrimSpace(ep))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return &ingesterr.ConfigError{Field: "rpc_url", Reason: fmt.Sprintf("invalid URL scheme: %q", ep)}
		}
	}
	if c.Source.TimeoutMs <= 0 {
		return &ingesterr.ConfigError{Field: "timeout_ms", Reason: "must be positive"}
	}
	if c.Source.RPS <= 0 {
		return &ingesterr.ConfigError{Field: "rps", Reason: "must be positive"}
	}
	if c.Source.Retries < 0 {
		return &ingesterr.ConfigError{Field: "retries", Reason: "must be non-negative"}
	}
	if c.Source.BackoffJitter < 0 || c.Source.BackoffJitter > 1 {
		return &ingesterr.ConfigError{Field: "backoff_jitter", Reason: "must be in [0,1]"}
	}
	if c.Range.From != nil && c.Range.To != nil && *c.Range.To < *c.Range.From {
		return &ingesterr.ConfigError{Field: "to", Reason: "must be >= from"}
	}
	if c.Concurrency.Concurrency <= 0 {
		return &ingesterr.ConfigError{Field: "concurrency", Reason: "must be positive"}
	}
	if c.Concurrency.CaseMode != CaseSnake && c.Concurrency.CaseMode != CaseCamel {
		return &ingesterr.ConfigError{Field: "case_mode", Reason: fmt.Sprintf("unknown mode %q", c.Concurrency.CaseMode)}
	}
	switch c.Sink.Kind {
	case SinkStdout, SinkFile, SinkPostgres, SinkNull, SinkClickhouse:
	default:
		return &ingesterr.ConfigError{Field: "sink_kind", Reason: fmt.Sprintf("unknown sink %q", c.Sink.Kind)}
	}
	if c.Sink.Kind == SinkPostgres || c.Sink.Kind == SinkClickhouse {
		switch c.Sink.Postgres.Mode {
		case ModeBatchInsert, ModeBlockAtomic:
		default:
			return &ingesterr.ConfigError{Field: "pg.mode", Reason: fmt.Sprintf("unknown mode %q", c.Sink.Postgres.Mode)}
		}
	}
	return nil
}

func parseUintEnv(v string) (uint64, error) {
	var n uint64
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, fmt.Errorf("not a positive integer: %q", v)
	}
	return n, nil
}
