package normalize

import (
	"encoding/json"

	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

// rawLogEntry is one element of the raw_log JSON array: the events
// attributed to a single message within the transaction.
type rawLogEntry struct {
	MsgIndex *int                      `json:"msg_index"`
	Events   []rpctransport.ABCIEvent `json:"events"`
}

// Logs parses a tx result's raw_log field into per-message Events and
// appends the tx-level events (begin/end-of-tx ABCI events, not tied
// to any message) as a pseudo-entry with MsgIndex == -1. A raw_log
// parse failure yields just the tx-level events, never an error: the
// row extractor treats an empty log as "no per-message detail",
// not a fatal condition.
func Logs(rawLog string, txLevelEvents []rpctransport.ABCIEvent) []Event {
	var out []Event

	var entries []rawLogEntry
	if rawLog != "" {
		if err := json.Unmarshal([]byte(rawLog), &entries); err == nil {
			for _, e := range entries {
				idx := -1
				if e.MsgIndex != nil {
					idx = *e.MsgIndex
				}
				out = append(out, ABCIEvents(e.Events, idx)...)
			}
		}
	}

	out = append(out, ABCIEvents(txLevelEvents, -1)...)
	return out
}
