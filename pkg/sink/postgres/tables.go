package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
)

// heightSpan is the width, in heights, of one range partition of
// core.blocks / core.transactions / core.messages.
const heightSpan = 1_000_000

// partitionLockKey is the fixed advisory-lock key serializing
// concurrent CREATE TABLE ... PARTITION OF statements against the
// same database.
const partitionLockKey = 0x636f736d6f7331 // "cosmos1" packed into an int64

// EnsureSchema creates every data table this sink writes to, if absent,
// including the parent partitioned tables for blocks/transactions/
// messages/events, and the fixed set of core.events hash partitions.
// The height-range partitions are created lazily by
// ensureCorePartitions as heights are written. The progress table is
// not created here; progress.PostgresStore.EnsureSchema creates it.
func EnsureSchema(ctx context.Context, client *dbpostgres.Client) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS core`,
		`CREATE SCHEMA IF NOT EXISTS bank`,
		`CREATE SCHEMA IF NOT EXISTS stake`,
		`CREATE SCHEMA IF NOT EXISTS gov`,
		`CREATE SCHEMA IF NOT EXISTS wasm`,

		`CREATE TABLE IF NOT EXISTS core.blocks (
			height BIGINT NOT NULL,
			block_hash TEXT NOT NULL,
			time TIMESTAMPTZ NOT NULL,
			proposer_address TEXT NOT NULL,
			tx_count INT NOT NULL,
			size_bytes BIGINT,
			last_commit_hash TEXT NOT NULL,
			data_hash TEXT NOT NULL,
			evidence_count INT NOT NULL,
			app_hash TEXT NOT NULL,
			PRIMARY KEY (height)
		) PARTITION BY RANGE (height)`,

		`CREATE TABLE IF NOT EXISTS core.transactions (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			tx_index INT NOT NULL,
			code INT NOT NULL,
			codespace TEXT NOT NULL,
			gas_wanted BIGINT NOT NULL,
			gas_used BIGINT NOT NULL,
			fee JSONB NOT NULL,
			memo TEXT NOT NULL,
			signers TEXT[] NOT NULL,
			raw_tx JSONB,
			log_summary TEXT NOT NULL,
			time TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (height, tx_hash)
		) PARTITION BY RANGE (height)`,

		`CREATE TABLE IF NOT EXISTS core.messages (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			type_url TEXT NOT NULL,
			value JSONB,
			signer TEXT,
			PRIMARY KEY (height, tx_hash, msg_index)
		) PARTITION BY RANGE (height)`,

		`CREATE TABLE IF NOT EXISTS core.events (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			event_index INT NOT NULL,
			event_type TEXT NOT NULL,
			PRIMARY KEY (height, tx_hash, msg_index, event_index)
		) PARTITION BY HASH (tx_hash)`,

		`CREATE TABLE IF NOT EXISTS core.event_attrs (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			event_index INT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (height, tx_hash, msg_index, event_index, key)
		)`,

		`CREATE TABLE IF NOT EXISTS bank.transfers (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			from_addr TEXT NOT NULL,
			to_addr TEXT NOT NULL,
			denom TEXT NOT NULL,
			amount TEXT NOT NULL,
			PRIMARY KEY (height, tx_hash, msg_index, from_addr, to_addr, denom)
		)`,

		`CREATE TABLE IF NOT EXISTS stake.delegation_events (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			event_type TEXT NOT NULL,
			delegator_address TEXT NOT NULL,
			validator_src TEXT,
			validator_dst TEXT,
			amount TEXT,
			denom TEXT,
			PRIMARY KEY (height, tx_hash, msg_index, event_type)
		)`,

		`CREATE TABLE IF NOT EXISTS stake.distribution_events (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			event_type TEXT NOT NULL,
			validator_address TEXT,
			delegator_address TEXT,
			amount TEXT,
			denom TEXT,
			withdraw_address TEXT,
			PRIMARY KEY (height, tx_hash, msg_index, event_type)
		)`,

		`CREATE TABLE IF NOT EXISTS wasm.executions (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			contract_address TEXT NOT NULL,
			sender TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			error TEXT,
			PRIMARY KEY (height, tx_hash, msg_index)
		)`,

		`CREATE TABLE IF NOT EXISTS wasm.events (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			event_index INT NOT NULL,
			contract_address TEXT NOT NULL,
			attributes JSONB NOT NULL,
			PRIMARY KEY (height, tx_hash, msg_index, event_index)
		)`,

		`CREATE TABLE IF NOT EXISTS gov.proposals (
			proposal_id BIGINT PRIMARY KEY,
			title TEXT,
			summary TEXT,
			proposal_type TEXT,
			status TEXT,
			submit_height BIGINT,
			deposit_end TEXT,
			voting_start TEXT,
			voting_end TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS gov.deposits (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			proposal_id BIGINT NOT NULL,
			depositor TEXT NOT NULL,
			amount TEXT NOT NULL,
			denom TEXT NOT NULL,
			PRIMARY KEY (height, tx_hash, msg_index, denom)
		)`,

		`CREATE TABLE IF NOT EXISTS gov.votes (
			height BIGINT NOT NULL,
			tx_hash TEXT NOT NULL,
			msg_index INT NOT NULL,
			proposal_id BIGINT NOT NULL,
			voter TEXT NOT NULL,
			option TEXT NOT NULL,
			weight TEXT,
			PRIMARY KEY (height, tx_hash, msg_index)
		)`,
	}

	for _, stmt := range stmts {
		if err := client.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return createHashPartitions(ctx, client, 16)
}

// ensureCorePartitions creates the range partitions covering
// [minHeight, maxHeight] for every height-partitioned table, under a
// transaction-scoped advisory lock that serializes concurrent callers
// so two in-flight flushes never race on the same CREATE TABLE.
func ensureCorePartitions(ctx context.Context, tx pgx.Tx, minHeight, maxHeight uint64, modulus int) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, partitionLockKey); err != nil {
		return fmt.Errorf("acquire partition lock: %w", err)
	}

	lowBound := (minHeight / heightSpan) * heightSpan
	for bound := lowBound; bound <= maxHeight; bound += heightSpan {
		upper := bound + heightSpan
		for _, tbl := range []string{"core.blocks", "core.transactions", "core.messages"} {
			if err := createRangePartition(ctx, tx, tbl, bound, upper); err != nil {
				return err
			}
		}
	}
	return nil
}

func createRangePartition(ctx context.Context, tx pgx.Tx, table string, lower, upper uint64) error {
	partName := fmt.Sprintf("%s_p%d", partitionSuffix(table), lower)
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM (%d) TO (%d)`, partName, table, lower, upper)
	_, err := tx.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("create partition %s: %w", partName, err)
	}
	return nil
}

func partitionSuffix(table string) string {
	for i := len(table) - 1; i >= 0; i-- {
		if table[i] == '.' {
			return table[i+1:]
		}
	}
	return table
}

// createHashPartitions creates the fixed set of core.events hash
// partitions once, at schema setup time; the modulus is not expected
// to change over the life of a deployment.
func createHashPartitions(ctx context.Context, client *dbpostgres.Client, modulus int) error {
	for rem := 0; rem < modulus; rem++ {
		stmt := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS core.events_h%d PARTITION OF core.events FOR VALUES WITH (MODULUS %d, REMAINDER %d)`,
			rem, modulus, rem,
		)
		if err := client.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create hash partition %d: %w", rem, err)
		}
	}
	return nil
}
