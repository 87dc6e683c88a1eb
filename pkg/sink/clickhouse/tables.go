package clickhouse

import "context"

// EnsureSchema creates every table this sink writes to, using
// ReplacingMergeTree so repeated inserts of the same natural key
// collapse to one row at merge time — the ClickHouse-native analog of
// Postgres's ON CONFLICT policies in spec.md §4.7.
func EnsureSchema(ctx context.Context, client *Client) error {
	stmts := []string{
		`CREATE DATABASE IF NOT EXISTS ` + client.DB,

		`CREATE TABLE IF NOT EXISTS blocks (
			height UInt64,
			block_hash String,
			time DateTime64(3),
			proposer_address String,
			tx_count UInt32,
			size_bytes Nullable(Int64),
			last_commit_hash String,
			data_hash String,
			evidence_count UInt32,
			app_hash String
		) ENGINE = ReplacingMergeTree()
		ORDER BY (height)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			height UInt64,
			tx_hash String,
			tx_index UInt32,
			code UInt32,
			codespace String,
			gas_wanted Int64,
			gas_used Int64,
			fee String,
			memo String,
			signers Array(String),
			raw_tx String,
			log_summary String,
			time DateTime64(3)
		) ENGINE = ReplacingMergeTree()
		ORDER BY (height, tx_hash)`,

		`CREATE TABLE IF NOT EXISTS messages (
			height UInt64,
			tx_hash String,
			msg_index UInt32,
			type_url String,
			value String,
			signer String
		) ENGINE = ReplacingMergeTree()
		ORDER BY (height, tx_hash, msg_index)`,

		`CREATE TABLE IF NOT EXISTS events (
			height UInt64,
			tx_hash String,
			msg_index Int32,
			event_index UInt32,
			event_type String
		) ENGINE = ReplacingMergeTree()
		ORDER BY (height, tx_hash, msg_index, event_index)`,

		`CREATE TABLE IF NOT EXISTS event_attrs (
			height UInt64,
			tx_hash String,
			msg_index Int32,
			event_index UInt32,
			key String,
			value String
		) ENGINE = ReplacingMergeTree()
		ORDER BY (height, tx_hash, msg_index, event_index, key)`,

		`CREATE TABLE IF NOT EXISTS transfers (
			height UInt64,
			tx_hash String,
			msg_index UInt32,
			from_addr String,
			to_addr String,
			denom String,
			amount String
		) ENGINE = ReplacingMergeTree()
		ORDER BY (height, tx_hash, msg_index, from_addr, to_addr, denom)`,

		`CREATE TABLE IF NOT EXISTS indexer_progress (
			id String,
			last_height UInt64,
			updated_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (id)`,
	}

	for _, stmt := range stmts {
		if err := client.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
