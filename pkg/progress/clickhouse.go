package progress

import (
	"context"
	"time"
)

// ChExecutor is implemented by the ClickHouse sink's *clickhouse.Client;
// declared here (rather than imported) so this package does not take
// a dependency on the clickhouse driver.
type ChExecutor interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// UpsertClickhouse records height as the new checkpoint via a plain
// insert into a ReplacingMergeTree(updated_at) table: the last insert
// for a given id wins at merge time, which is ClickHouse's analog of
// the GREATEST-guarded Postgres upsert in Upsert (progress.go).
func UpsertClickhouse(ctx context.Context, exec ChExecutor, id string, height uint64) error {
	return exec.Exec(ctx, "INSERT INTO indexer_progress (id, last_height, updated_at) VALUES (?, ?, ?)",
		id, height, time.Now())
}
