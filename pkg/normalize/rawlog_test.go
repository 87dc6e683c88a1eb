package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmos-network/cosmosingest/pkg/rpctransport"
)

func TestLogsParsesPerMessageAndTxLevelEvents(t *testing.T) {
	rawLog := `[{"msg_index":0,"events":[{"type":"transfer","attributes":[{"key":"` +
		b64("recipient") + `","value":"` + b64("cosmos1abc") + `"}]}]}]`

	txLevel := []rpctransport.ABCIEvent{{Type: "tx", Attributes: nil}}

	out := Logs(rawLog, txLevel)

	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].MsgIndex)
	assert.Equal(t, "transfer", out[0].EventType)
	assert.Equal(t, -1, out[1].MsgIndex)
	assert.Equal(t, "tx", out[1].EventType)
}

func TestLogsMalformedRawLogYieldsOnlyTxLevelEvents(t *testing.T) {
	txLevel := []rpctransport.ABCIEvent{{Type: "tx"}}

	out := Logs("not json", txLevel)

	require.Len(t, out, 1)
	assert.Equal(t, -1, out[0].MsgIndex)
}

func TestLogsEmptyRawLogYieldsOnlyTxLevelEvents(t *testing.T) {
	out := Logs("", []rpctransport.ABCIEvent{{Type: "tx"}})
	require.Len(t, out, 1)
}
