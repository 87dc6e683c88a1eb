// Package normalize turns raw CometBFT ABCI events and per-tx raw_log
// JSON into the flattened Event/EventAttribute shape the row extractor
// consumes.
package normalize

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

// Attribute is one decoded key/value pair of a normalized event.
type Attribute struct {
	Key   string
	Value string
}

// Event is one normalized ABCI event, scoped to a message index (-1
// for tx- or block-level events).
type Event struct {
	MsgIndex   int
	EventType  string
	Attributes []Attribute
}

// ABCIEvents normalizes a slice of raw ABCI events (as returned over
// RPC, with base64-encoded key/value attributes) to msgIndex-scoped
// Events.
func ABCIEvents(events []rpctransport.ABCIEvent, msgIndex int) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, Event{
			MsgIndex:   msgIndex,
			EventType:  e.Type,
			Attributes: normalizeAttributes(e.Attributes),
		})
	}
	return out
}

func normalizeAttributes(raw []rpctransport.ABCIEventAttrRaw) []Attribute {
	out := make([]Attribute, 0, len(raw))
	for _, a := range raw {
		out = append(out, Attribute{
			Key:   decodeAttrField(a.Key),
			Value: decodeAttrField(a.Value),
		})
	}
	return out
}

// decodeAttrField decodes a CometBFT event attribute field: the RPC
// layer base64-encodes key/value pairs, but some node builds pass them
// through as plain text already. Treat a successful base64 decode
// that round-trips to printable content as canonical; otherwise keep
// the original string.
func decodeAttrField(s string) string {
	if s == "" {
		return s
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	if base64.StdEncoding.EncodeToString(b) != s {
		return s
	}
	if !isPrintable(b) {
		return s
	}
	return string(b)
}

// isPrintable reports whether b is valid UTF-8 made only of tab, LF,
// CR, printable ASCII (0x20-0x7E) or code points at or above 0x80.
func isPrintable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r != 0x09 && r != 0x0a && r != 0x0d && (r < 0x20 || r == 0x7f) {
			return false
		}
	}
	return true
}
