package normalize

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestABCIEventsDecodesCanonicalBase64Attributes(t *testing.T) {
	events := []rpctransport.ABCIEvent{
		{
			Type: "transfer",
			Attributes: []rpctransport.ABCIEventAttrRaw{
				{Key: b64("recipient"), Value: b64("cosmos1abc")},
			},
		},
	}

	out := ABCIEvents(events, 0)

	require.Len(t, out, 1)
	assert.Equal(t, "transfer", out[0].EventType)
	assert.Equal(t, 0, out[0].MsgIndex)
	require.Len(t, out[0].Attributes, 1)
	assert.Equal(t, "recipient", out[0].Attributes[0].Key)
	assert.Equal(t, "cosmos1abc", out[0].Attributes[0].Value)
}

func TestABCIEventsPassesThroughNonBase64Attributes(t *testing.T) {
	events := []rpctransport.ABCIEvent{
		{
			Type: "message",
			Attributes: []rpctransport.ABCIEventAttrRaw{
				{Key: "action", Value: "/cosmos.bank.v1beta1.MsgSend"},
			},
		},
	}

	out := ABCIEvents(events, -1)

	require.Len(t, out, 1)
	assert.Equal(t, "action", out[0].Attributes[0].Key)
	assert.Equal(t, "/cosmos.bank.v1beta1.MsgSend", out[0].Attributes[0].Value)
}

func TestDecodeAttrFieldRejectsNonPrintableDecode(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte{0x00, 0x01, 0x02})
	assert.Equal(t, raw, decodeAttrField(raw))
}

func TestDecodeAttrFieldEmptyStringPassesThrough(t *testing.T) {
	assert.Equal(t, "", decodeAttrField(""))
}
