package model

import "time"

// Progress is the single-row-per-identity checkpoint that records the
// highest height committed to the sink.
type Progress struct {
	ID         string    `json:"id"`
	LastHeight uint64    `json:"last_height"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BlockRecord is the row extractor's output (extract.Block): a block
// plus every row set derived from its transactions, ready to hand to a
// sink in one unit of work.
type BlockRecord struct {
	ChainID string `json:"chain_id"`
	Height  uint64 `json:"height"`

	Block Block `json:"block"`

	Transactions []Transaction            `json:"transactions"`
	Messages     []Message                `json:"messages"`
	Events       []Event                  `json:"events"`
	Attributes   []EventAttribute         `json:"attributes"`
	Transfers    []Transfer               `json:"transfers"`
	Delegations  []StakeDelegationEvent   `json:"delegations"`
	Distribution []StakeDistributionEvent `json:"distribution"`
	WasmExecs    []WasmExecution          `json:"wasm_execs"`
	WasmEvents   []WasmEvent              `json:"wasm_events"`
	GovProposals []GovProposal            `json:"gov_proposals"`
	GovDeposits  []GovDeposit             `json:"gov_deposits"`
	GovVotes     []GovVote                `json:"gov_votes"`
}

// Skip describes a height abandoned after exhausting its retry budget.
// The range runner does not use this type: it keeps an abandoned
// height in its ready buffer as a result carrying the final error,
// which preserves ordered flush without emitting a row for that height.
type Skip struct {
	Height uint64
	Err    error
}
