package progress

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records the SQL and arguments of every Exec call; it
// satisfies dbpostgres.Executor but only Exec is exercised by Upsert.
type fakeExecutor struct {
	queries []string
	args    [][]any
}

func (f *fakeExecutor) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, arguments)
	return pgconn.CommandTag{}, nil
}

func (f *fakeExecutor) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used by Upsert")
}

func (f *fakeExecutor) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not used by Upsert")
}

func (f *fakeExecutor) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not used by Upsert")
}

func TestUpsertIssuesGreatestGuardedStatement(t *testing.T) {
	exec := &fakeExecutor{}
	err := Upsert(context.Background(), exec, "core.indexer_progress", "default", 150)
	require.NoError(t, err)

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "ON CONFLICT (id) DO UPDATE")
	assert.Contains(t, exec.queries[0], "GREATEST(core.indexer_progress.last_height, EXCLUDED.last_height)")
	assert.Equal(t, []any{"default", uint64(150)}, exec.args[0])
}

func TestQualifyUsesCorePrefixByDefault(t *testing.T) {
	assert.Equal(t, "core.indexer_progress", qualify("", "indexer_progress"))
	assert.Equal(t, "custom.indexer_progress", qualify("custom", "indexer_progress"))
}
