// Package assemble composes a fetched block, its block-results, and
// the decoder pool's per-tx output into one normalized in-memory
// structure, ready for the row extractor. Assemble is a pure function:
// given the same three inputs it always returns the same output, with
// no I/O of its own.
package assemble

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/caseconv"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	"github.com/cosmos-network/cosmosingest/pkg/normalize"
	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

// Meta identifies the block a Block belongs to.
type Meta struct {
	ChainID string
	Height  uint64
	Time    time.Time
}

// Raw carries both encodings of one transaction's bytes.
type Raw struct {
	Base64 string
	Hex    string
}

// TxResponse is the projection of one BR.txs_results[i] entry the
// pipeline needs, plus the logs normalized from raw_log and tx-level
// events, plus the block's timestamp.
type TxResponse struct {
	Code      uint32
	Codespace string
	Data      string
	GasWanted int64
	GasUsed   int64
	RawLog    string
	Events    []normalize.Event
	Logs      []normalize.Event
	Timestamp time.Time
}

// Tx is one fully assembled transaction: its hash, both raw
// encodings, the decoder pool's output (case-converted), and its
// execution projection.
type Tx struct {
	Hash       string
	Raw        Raw
	Decoded    decode.DecodedTx
	TxResponse TxResponse
}

// Block is the assembler's output for one height.
type Block struct {
	Meta Meta
	Txs  []Tx
}

// Assemble composes one height's block + block-results + decoded txs
// into a Block. decoded must be aligned by index with
// block.Block.Data.Txs; Assemble does not itself invoke the decoder
// pool.
func Assemble(logger *zap.Logger, meta Meta, block *rpctransport.BlockResponse, results *rpctransport.BlockResultsResponse, decoded []decode.Result, mode caseconv.Mode) (*Block, error) {
	if block == nil || results == nil {
		return nil, fmt.Errorf("assemble: nil block or block results for height %d", meta.Height)
	}
	rawTxs := block.Block.Data.Txs
	if len(decoded) != len(rawTxs) {
		return nil, fmt.Errorf("assemble: height %d: decoded tx count %d does not match raw tx count %d", meta.Height, len(decoded), len(rawTxs))
	}
	if len(results.TxsResults) != len(rawTxs) {
		logger.Debug("txs_results length does not match tx count, padding with zero-value results",
			zap.Uint64("height", meta.Height),
			zap.Int("tx_count", len(rawTxs)),
			zap.Int("txs_results_count", len(results.TxsResults)))
	}

	out := &Block{Meta: meta, Txs: make([]Tx, len(rawTxs))}
	for i, b64 := range rawTxs {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("assemble: height %d tx %d: invalid base64: %w", meta.Height, i, err)
		}
		sum := sha256.Sum256(raw)
		hash := strings.ToUpper(hex.EncodeToString(sum[:]))

		var txr rpctransport.TxResult
		if i < len(results.TxsResults) {
			txr = results.TxsResults[i]
		}

		decodedTx := decoded[i].Tx
		convertMessagePayloads(&decodedTx, mode)

		out.Txs[i] = Tx{
			Hash: hash,
			Raw: Raw{
				Base64: b64,
				Hex:    strings.ToUpper(hex.EncodeToString(raw)),
			},
			Decoded: decodedTx,
			TxResponse: TxResponse{
				Code:      txr.Code,
				Codespace: txr.Codespace,
				Data:      txr.Data,
				GasWanted: parseInt64(txr.GasWanted),
				GasUsed:   parseInt64(txr.GasUsed),
				RawLog:    txr.Log,
				Events:    normalize.ABCIEvents(txr.Events, -1),
				Logs:      normalize.Logs(txr.Log, txr.Events),
				Timestamp: meta.Time,
			},
		}
	}
	return out, nil
}

func convertMessagePayloads(tx *decode.DecodedTx, mode caseconv.Mode) {
	for i := range tx.Body.Messages {
		tx.Body.Messages[i].Value = caseconv.Convert(tx.Body.Messages[i].Value, mode).(map[string]any)
	}
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
