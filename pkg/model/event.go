package model

// Event is one ABCI event, scoped either to a message (MsgIndex >= 0) or
// to the whole transaction / block (MsgIndex == -1).
type Event struct {
	Height     uint64           `json:"height"`
	TxHash     string           `json:"tx_hash"`
	MsgIndex   int              `json:"msg_index"`
	EventIndex int              `json:"event_index"`
	EventType  string           `json:"event_type"`
	Attributes []EventAttribute `json:"attributes"`
}

// EventAttribute is one decoded key/value attribute of an Event, also
// persisted as its own flattened row.
type EventAttribute struct {
	Height     uint64 `json:"height"`
	TxHash     string `json:"tx_hash"`
	MsgIndex   int    `json:"msg_index"`
	EventIndex int    `json:"event_index"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}
