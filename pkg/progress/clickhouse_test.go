package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChExecutor struct {
	queries []string
	args    [][]any
}

func (f *fakeChExecutor) Exec(ctx context.Context, query string, args ...any) error {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return nil
}

func TestUpsertClickhouseInsertsRowForMerge(t *testing.T) {
	exec := &fakeChExecutor{}
	err := UpsertClickhouse(context.Background(), exec, "default", 200)
	require.NoError(t, err)

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "INSERT INTO indexer_progress")
	require.Len(t, exec.args[0], 3)
	assert.Equal(t, "default", exec.args[0][0])
	assert.Equal(t, uint64(200), exec.args[0][1])
}
