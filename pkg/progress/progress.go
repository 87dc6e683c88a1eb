// Package progress tracks the single-row-per-identity checkpoint
// (core.indexer_progress) that the range runner advances as it
// commits heights, and that resume reads back on start-up.
package progress

import (
	"context"
	"fmt"

	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
)

// Store reads and advances the checkpoint for one progress identity.
type Store interface {
	LastHeight(ctx context.Context, id string) (uint64, bool, error)
	Record(ctx context.Context, id string, height uint64) error
}

// PostgresStore is the SQL-backed Store. Its Upsert statement is also
// exposed as a package function so the batch-insert and block-atomic
// sink modes can run it inside their own transaction instead of
// opening a second one.
type PostgresStore struct {
	client *dbpostgres.Client
	table  string
}

func NewPostgresStore(client *dbpostgres.Client, schemaPrefix string) *PostgresStore {
	return &PostgresStore{client: client, table: qualify(schemaPrefix, "indexer_progress")}
}

func qualify(prefix, table string) string {
	if prefix == "" {
		return "core." + table
	}
	return prefix + "." + table
}

// EnsureSchema creates the progress table if it does not already
// exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return s.client.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			last_height BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, s.table))
}

func (s *PostgresStore) LastHeight(ctx context.Context, id string) (uint64, bool, error) {
	var height uint64
	err := s.client.QueryRow(ctx, fmt.Sprintf(`SELECT last_height FROM %s WHERE id = $1`, s.table), id).Scan(&height)
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("progress: query last_height: %w", err)
	}
	return height, true, nil
}

func (s *PostgresStore) Record(ctx context.Context, id string, height uint64) error {
	return Upsert(ctx, s.client.Pool, s.table, id, height)
}

// Upsert runs the GREATEST-guarded progress upsert against exec,
// which may be a *pgxpool.Pool or a pgx.Tx: this is how the
// block-atomic sink mode commits progress in the same transaction as
// its row inserts.
func Upsert(ctx context.Context, exec dbpostgres.Executor, table, id string, height uint64) error {
	_, err := exec.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, last_height, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			last_height = GREATEST(%s.last_height, EXCLUDED.last_height),
			updated_at = now()
	`, table, table), id, height)
	return err
}
