package extract

import (
	"testing"
	"time"

	"github.com/cosmos-network/cosmosingest/pkg/assemble"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	"github.com/cosmos-network/cosmosingest/pkg/normalize"
)

func TestBlockExtractsTransferFromEvent(t *testing.T) {
	tx := assemble.Tx{
		Hash: "ABC123",
		Decoded: decode.DecodedTx{
			TypeURL: "/cosmos.tx.v1beta1.Tx",
			Body: decode.DecodedTxBody{
				Messages: []decode.DecodedMessage{
					{TypeURL: "/cosmos.bank.v1beta1.MsgSend", Value: map[string]any{
						"from_address": "cosmos1sender0000",
						"to_address":   "cosmos1recipient00",
					}},
				},
			},
		},
		TxResponse: assemble.TxResponse{
			Code: 0,
			Logs: []normalize.Event{
				{
					MsgIndex:  0,
					EventType: "transfer",
					Attributes: []normalize.Attribute{
						{Key: "sender", Value: "cosmos1sender0000"},
						{Key: "recipient", Value: "cosmos1recipient00"},
						{Key: "amount", Value: "100uatom"},
					},
				},
			},
		},
	}

	b := &assemble.Block{
		Meta: assemble.Meta{Height: 100, Time: time.Unix(0, 0)},
		Txs:  []assemble.Tx{tx},
	}

	rec := Block("test-chain", b)

	if len(rec.Transactions) != 1 {
		t.Fatalf("expected 1 transaction row, got %d", len(rec.Transactions))
	}
	if len(rec.Events) != 1 {
		t.Fatalf("expected 1 event row, got %d", len(rec.Events))
	}
	if len(rec.Attributes) != 3 {
		t.Fatalf("expected 3 attribute rows, got %d", len(rec.Attributes))
	}
	if len(rec.Transfers) != 1 {
		t.Fatalf("expected 1 transfer row, got %d", len(rec.Transfers))
	}
	xfer := rec.Transfers[0]
	if xfer.Amount != "100" || xfer.Denom != "uatom" {
		t.Fatalf("unexpected transfer amount/denom: %+v", xfer)
	}
	if rec.Block.TxCount != 1 {
		t.Fatalf("expected tx_count 1, got %d", rec.Block.TxCount)
	}
}

func TestSignersOfPrefersSignerField(t *testing.T) {
	tx := assemble.Tx{
		Decoded: decode.DecodedTx{
			Body: decode.DecodedTxBody{
				Messages: []decode.DecodedMessage{
					{TypeURL: "/x", Value: map[string]any{"signer": "cosmos1abcdefghi"}},
				},
			},
		},
	}
	signers := signersOf(tx)
	if len(signers) != 1 || signers[0] != "cosmos1abcdefghi" {
		t.Fatalf("unexpected signers: %v", signers)
	}
}

func TestGovVoteSimpleHasNilWeight(t *testing.T) {
	msg := decode.DecodedMessage{TypeURL: "/cosmos.gov.v1.MsgVote", Value: map[string]any{
		"proposal_id": "12",
		"voter":       "cosmos1voter",
		"option":      "VOTE_OPTION_YES",
	}}
	v, ok := govVote(100, "ABC", 0, msg)
	if !ok {
		t.Fatalf("expected govVote to match")
	}
	if v.ProposalID != 12 || v.Option != "VOTE_OPTION_YES" || v.Weight != nil {
		t.Fatalf("unexpected vote row: %+v", v)
	}
}

func TestGovVoteWeightedCarriesFirstOptionWeight(t *testing.T) {
	msg := decode.DecodedMessage{TypeURL: "/cosmos.gov.v1.MsgVoteWeighted", Value: map[string]any{
		"proposal_id": "12",
		"voter":       "cosmos1voter",
		"options": []any{
			map[string]any{"option": "VOTE_OPTION_YES", "weight": "0.700000000000000000"},
			map[string]any{"option": "VOTE_OPTION_NO", "weight": "0.300000000000000000"},
		},
	}}
	v, ok := govVote(100, "ABC", 0, msg)
	if !ok {
		t.Fatalf("expected govVote to match")
	}
	if v.Option != "VOTE_OPTION_YES" || v.Weight == nil || *v.Weight != "0.700000000000000000" {
		t.Fatalf("unexpected weighted vote row: %+v", v)
	}
}

func TestWasmExecutionMarksFailureFromCode(t *testing.T) {
	tx := assemble.Tx{
		Hash: "DEF",
		TxResponse: assemble.TxResponse{Code: 5, RawLog: "execute wasm contract failed"},
	}
	msg := decode.DecodedMessage{TypeURL: "/cosmwasm.wasm.v1.MsgExecuteContract", Value: map[string]any{
		"sender": "cosmos1x", "contract": "cosmos1contract",
	}}
	out := wasmExecution(42, tx, 0, msg)
	if out.Success {
		t.Fatalf("expected Success=false for non-zero code")
	}
	if out.Error != "execute wasm contract failed" {
		t.Fatalf("expected error to be log summary, got %q", out.Error)
	}
}
