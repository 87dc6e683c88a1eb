package model

// Transfer is a derived row built from a "transfer" event carrying
// sender, recipient, and amount attributes.
type Transfer struct {
	Height   uint64 `json:"height"`
	TxHash   string `json:"tx_hash"`
	MsgIndex int    `json:"msg_index"`
	FromAddr string `json:"from_addr"`
	ToAddr   string `json:"to_addr"`
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
}

// StakeDelegationEvent covers delegate/redelegate/unbond/complete_unbonding.
type StakeDelegationEvent struct {
	Height          uint64 `json:"height"`
	TxHash          string `json:"tx_hash"`
	MsgIndex        int    `json:"msg_index"`
	EventType       string `json:"event_type"`
	DelegatorAddr   string `json:"delegator_address"`
	ValidatorSrc    string `json:"validator_src,omitempty"`
	ValidatorDst    string `json:"validator_dst,omitempty"`
	Amount          string `json:"amount"`
	Denom           string `json:"denom"`
}

// StakeDistributionEvent covers withdraw_rewards/withdraw_commission/
// set_withdraw_address.
type StakeDistributionEvent struct {
	Height          uint64 `json:"height"`
	TxHash          string `json:"tx_hash"`
	MsgIndex        int    `json:"msg_index"`
	EventType       string `json:"event_type"`
	ValidatorAddr   string `json:"validator_address,omitempty"`
	DelegatorAddr   string `json:"delegator_address,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Denom           string `json:"denom,omitempty"`
	WithdrawAddress string `json:"withdraw_address,omitempty"`
}

// WasmExecution is emitted for every MsgExecuteContract message.
type WasmExecution struct {
	Height          uint64 `json:"height"`
	TxHash          string `json:"tx_hash"`
	MsgIndex        int    `json:"msg_index"`
	ContractAddress string `json:"contract_address"`
	Sender          string `json:"sender"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

// WasmEvent is derived from a "wasm" event carrying a contract address
// attribute.
type WasmEvent struct {
	Height          uint64            `json:"height"`
	TxHash          string            `json:"tx_hash"`
	MsgIndex        int               `json:"msg_index"`
	EventIndex      int               `json:"event_index"`
	ContractAddress string            `json:"contract_address"`
	Attributes      map[string]string `json:"attributes"`
}

// GovProposal is merged across its lifecycle via a coalescing upsert, so
// every field is optional aside from the key.
type GovProposal struct {
	ProposalID   uint64  `json:"proposal_id"`
	Title        *string `json:"title,omitempty"`
	Summary      *string `json:"summary,omitempty"`
	ProposalType *string `json:"proposal_type,omitempty"`
	Status       *string `json:"status,omitempty"`
	SubmitHeight *uint64 `json:"submit_height,omitempty"`
	DepositEnd   *string `json:"deposit_end,omitempty"`
	VotingStart  *string `json:"voting_start,omitempty"`
	VotingEnd    *string `json:"voting_end,omitempty"`
}

// GovDeposit is one deposit toward a governance proposal.
type GovDeposit struct {
	Height     uint64 `json:"height"`
	TxHash     string `json:"tx_hash"`
	MsgIndex   int    `json:"msg_index"`
	ProposalID uint64 `json:"proposal_id"`
	Depositor  string `json:"depositor"`
	Amount     string `json:"amount"`
	Denom      string `json:"denom"`
}

// GovVote is one vote cast on a governance proposal. Weight is set
// only for a weighted vote's first option (decimal string); a simple
// vote leaves it nil.
type GovVote struct {
	Height     uint64  `json:"height"`
	TxHash     string  `json:"tx_hash"`
	MsgIndex   int     `json:"msg_index"`
	ProposalID uint64  `json:"proposal_id"`
	Voter      string  `json:"voter"`
	Option     string  `json:"option"`
	Weight     *string `json:"weight,omitempty"`
}
