package assemble

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cosmos-network/cosmosingest/pkg/caseconv"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func blockWithTxs(txs ...string) *rpctransport.BlockResponse {
	var b rpctransport.BlockResponse
	b.Block.Data.Txs = txs
	b.Block.Header.Time = time.Unix(0, 0).UTC().Format(time.RFC3339Nano)
	return &b
}

func TestAssembleMatchedTxsResultsLogsNothing(t *testing.T) {
	logger, logs := observedLogger()
	txB64 := base64.StdEncoding.EncodeToString([]byte("tx-bytes"))
	block := blockWithTxs(txB64)
	results := &rpctransport.BlockResultsResponse{TxsResults: []rpctransport.TxResult{{Code: 0}}}
	decoded := []decode.Result{{TxHash: "", Tx: decode.DecodedTx{TypeURL: "/cosmos.tx.v1beta1.Tx"}}}

	out, err := Assemble(logger, Meta{Height: 100}, block, results, decoded, caseconv.Snake)
	require.NoError(t, err)
	require.Len(t, out.Txs, 1)
	assert.Equal(t, 0, logs.FilterMessage("txs_results length does not match tx count, padding with zero-value results").Len())
}

func TestAssembleLogsDebugOnTxsResultsMismatch(t *testing.T) {
	logger, logs := observedLogger()
	txB64 := base64.StdEncoding.EncodeToString([]byte("tx-bytes"))
	block := blockWithTxs(txB64)
	results := &rpctransport.BlockResultsResponse{} // no txs_results at all
	decoded := []decode.Result{{TxHash: "", Tx: decode.DecodedTx{TypeURL: "/cosmos.tx.v1beta1.Tx"}}}

	out, err := Assemble(logger, Meta{Height: 200}, block, results, decoded, caseconv.Snake)
	require.NoError(t, err)
	require.Len(t, out.Txs, 1)
	// The padded tx still assembles with a zero-value TxResponse.
	assert.Equal(t, uint32(0), out.Txs[0].TxResponse.Code)

	entries := logs.FilterMessage("txs_results length does not match tx count, padding with zero-value results")
	require.Equal(t, 1, entries.Len())
	fields := entries.All()[0].ContextMap()
	assert.Equal(t, uint64(200), fields["height"])
	assert.Equal(t, int64(1), fields["tx_count"])
	assert.Equal(t, int64(0), fields["txs_results_count"])
}

func TestAssembleRejectsDecodedCountMismatch(t *testing.T) {
	logger, _ := observedLogger()
	block := blockWithTxs(base64.StdEncoding.EncodeToString([]byte("tx-bytes")))
	results := &rpctransport.BlockResultsResponse{TxsResults: []rpctransport.TxResult{{}}}

	_, err := Assemble(logger, Meta{Height: 1}, block, results, nil, caseconv.Snake)
	assert.Error(t, err)
}
