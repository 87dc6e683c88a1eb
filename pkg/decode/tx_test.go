package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

// buildMsgSend builds the raw bytes of a cosmos.bank.v1beta1.MsgSend.
func buildMsgSend(from, to, denom, amount string) []byte {
	var coinBytes []byte
	coinBytes = appendBytesField(coinBytes, 1, []byte(denom))
	coinBytes = appendBytesField(coinBytes, 2, []byte(amount))

	var b []byte
	b = appendBytesField(b, 1, []byte(from))
	b = appendBytesField(b, 2, []byte(to))
	b = appendBytesField(b, 3, coinBytes)
	return b
}

func buildAny(typeURL string, value []byte) []byte {
	var b []byte
	b = appendBytesField(b, 1, []byte(typeURL))
	b = appendBytesField(b, 2, value)
	return b
}

func buildTxBody(messages [][]byte, memo string) []byte {
	var b []byte
	for _, m := range messages {
		b = appendBytesField(b, 1, m)
	}
	if memo != "" {
		b = appendBytesField(b, 2, []byte(memo))
	}
	return b
}

func buildCoin(denom, amount string) []byte {
	var b []byte
	b = appendBytesField(b, 1, []byte(denom))
	b = appendBytesField(b, 2, []byte(amount))
	return b
}

func buildFee(coins [][]byte, gasLimit uint64) []byte {
	var b []byte
	for _, c := range coins {
		b = appendBytesField(b, 1, c)
	}
	b = appendVarintField(b, 2, gasLimit)
	return b
}

func buildAuthInfo(fee []byte) []byte {
	return appendBytesField(nil, 2, fee)
}

func buildTxRaw(bodyBytes, authInfoBytes []byte, sigs ...[]byte) []byte {
	var b []byte
	b = appendBytesField(b, 1, bodyBytes)
	b = appendBytesField(b, 2, authInfoBytes)
	for _, s := range sigs {
		b = appendBytesField(b, 3, s)
	}
	return b
}

func TestDecodeTxBytesFastPathMsgSend(t *testing.T) {
	msgSend := buildMsgSend("cosmos1from", "cosmos1to", "uatom", "1000")
	any1 := buildAny("/cosmos.bank.v1beta1.MsgSend", msgSend)
	body := buildTxBody([][]byte{any1}, "hello")
	fee := buildFee([][]byte{buildCoin("uatom", "500")}, 200000)
	authInfo := buildAuthInfo(fee)
	raw := buildTxRaw(body, authInfo, []byte{0xde, 0xad})

	out := decodeTxBytes(zap.NewNop(), nil, raw)

	require.Equal(t, "/cosmos.tx.v1beta1.Tx", out.TypeURL)
	require.Equal(t, "hello", out.Body.Memo)
	require.Len(t, out.Body.Messages, 1)
	assert.Equal(t, "/cosmos.bank.v1beta1.MsgSend", out.Body.Messages[0].TypeURL)
	assert.Equal(t, "cosmos1from", out.Body.Messages[0].Value["from_address"])
	assert.Equal(t, "cosmos1to", out.Body.Messages[0].Value["to_address"])
	assert.Equal(t, uint64(200000), out.AuthInfo.Fee.GasLimit)
	require.Len(t, out.AuthInfo.Fee.Amount, 1)
	assert.Equal(t, "uatom", out.AuthInfo.Fee.Amount[0]["denom"])
	require.Len(t, out.Signatures, 1)
	assert.Equal(t, "dead", out.Signatures[0])
}

func TestDecodeTxBytesUnknownTypeFallsBackToOpaque(t *testing.T) {
	any1 := buildAny("/some.unknown.MsgType", []byte("opaque-bytes"))
	body := buildTxBody([][]byte{any1}, "")
	raw := buildTxRaw(body, nil)

	out := decodeTxBytes(zap.NewNop(), nil, raw)

	require.Len(t, out.Body.Messages, 1)
	assert.Equal(t, "/some.unknown.MsgType", out.Body.Messages[0].TypeURL)
	_, hasValueB64 := out.Body.Messages[0].Value["value_b64"]
	assert.True(t, hasValueB64)
}

func TestDecodeTxBytesEmptyBodyYieldsPlaceholder(t *testing.T) {
	out := decodeTxBytes(zap.NewNop(), nil, []byte{})
	assert.Equal(t, "/cosmos.tx.v1beta1.Tx", out.TypeURL)
	assert.Empty(t, out.Body.Messages)
}

func TestDecodeTxRawSharesFieldNumbersWithTx(t *testing.T) {
	// protowire.AppendTag is exercised indirectly via the helpers above;
	// this asserts the wire-format equivalence that lets one TxRaw scan
	// also read a whole encoded Tx.
	var bodyWrapped []byte
	bodyWrapped = protowire.AppendTag(bodyWrapped, 1, protowire.BytesType)
	bodyWrapped = protowire.AppendBytes(bodyWrapped, []byte("body"))

	tr, err := decodeTxRaw(bodyWrapped)
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), tr.BodyBytes)
}
