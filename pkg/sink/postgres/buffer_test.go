package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmos-network/cosmosingest/pkg/config"
	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
	"github.com/cosmos-network/cosmosingest/pkg/model"
)

func TestBufferAppendTracksHeightRange(t *testing.T) {
	var b buffer
	b.append(model.BlockRecord{Height: 105, Block: model.Block{Height: 105}})
	b.append(model.BlockRecord{Height: 100, Block: model.Block{Height: 100}})
	b.append(model.BlockRecord{Height: 110, Block: model.Block{Height: 110}})

	min, max := b.heightRange()
	assert.Equal(t, uint64(100), min)
	assert.Equal(t, uint64(110), max)
	assert.Equal(t, 3, b.blockCount)
	assert.False(t, b.empty())
}

func TestBufferExceedsThresholdOnAnyTable(t *testing.T) {
	var b buffer
	cfg := config.Postgres{BatchBlocks: 2, BatchTxs: 1000, BatchMsgs: 1000, BatchEvents: 1000, BatchAttrs: 1000}

	b.append(model.BlockRecord{Height: 1, Block: model.Block{Height: 1}})
	require.False(t, b.exceedsThreshold(cfg))

	b.append(model.BlockRecord{Height: 2, Block: model.Block{Height: 2}})
	assert.True(t, b.exceedsThreshold(cfg))
}

func TestBufferResetClearsAllSlices(t *testing.T) {
	var b buffer
	b.append(model.BlockRecord{
		Height:       1,
		Block:        model.Block{Height: 1},
		Transactions: []model.Transaction{{Height: 1, TxHash: "A"}},
	})
	require.False(t, b.empty())

	b.reset()
	assert.True(t, b.empty())
	assert.Equal(t, 0, b.rowCount())
}

func TestChunkInsertSplitsLargeSlices(t *testing.T) {
	rows := make([]model.Block, 25)
	for i := range rows {
		rows[i] = model.Block{Height: uint64(i)}
	}

	// paramsPerRow of maxParamsPerStatement/10 gives a chunk size of 10;
	// the insert func ignores its Executor, so none is needed.
	var calls [][]model.Block
	err := chunkInsert(context.Background(), nil, rows, maxParamsPerStatement/10,
		func(_ context.Context, _ dbpostgres.Executor, chunk []model.Block) error {
			calls = append(calls, chunk)
			return nil
		})
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Len(t, calls[0], 10)
	assert.Len(t, calls[1], 10)
	assert.Len(t, calls[2], 5)
}
