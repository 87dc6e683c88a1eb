package model

import "time"

// Block is the normalized consensus block header, stripped of the raw tx
// list and evidence payload once the block's transactions have been
// assembled into Transaction rows.
type Block struct {
	Height         uint64    `json:"height"`
	BlockHash      string    `json:"block_hash"`
	Time           time.Time `json:"time"`
	ProposerAddr   string    `json:"proposer_address"`
	TxCount        int       `json:"tx_count"`
	SizeBytes      *int64    `json:"size_bytes,omitempty"`
	LastCommitHash string    `json:"last_commit_hash"`
	DataHash       string    `json:"data_hash"`
	EvidenceCount  int       `json:"evidence_count"`
	AppHash        string    `json:"app_hash"`
}
