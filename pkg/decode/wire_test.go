package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func TestScanWireRepeatedFieldsPreserveOrder(t *testing.T) {
	var b []byte
	b = appendBytesField(b, 1, []byte("first"))
	b = appendBytesField(b, 1, []byte("second"))

	fields, err := scanWire(b)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, allBytes(fields, 1))
}

func TestScanWireInvalidTagFails(t *testing.T) {
	_, err := scanWire([]byte{0xff})
	assert.Error(t, err)
}

func TestFirstStringAndFirstUint(t *testing.T) {
	var b []byte
	b = appendBytesField(b, 2, []byte("memo"))
	b = appendVarintField(b, 3, 42)

	fields, err := scanWire(b)
	require.NoError(t, err)
	assert.Equal(t, "memo", firstString(fields, 2))
	assert.Equal(t, uint64(42), firstUint(fields, 3))
	assert.Equal(t, "", firstString(fields, 99))
}
