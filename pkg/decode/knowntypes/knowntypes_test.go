package knowntypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func buildMsgVote(proposalID, option uint64, voter string) []byte {
	var b []byte
	b = appendVarintField(b, 1, proposalID)
	b = appendBytesField(b, 2, []byte(voter))
	b = appendVarintField(b, 3, option)
	return b
}

func buildMsgDeposit(proposalID uint64, depositor string) []byte {
	var b []byte
	b = appendVarintField(b, 1, proposalID)
	b = appendBytesField(b, 2, []byte(depositor))
	return b
}

func buildWeightedOption(option uint64, weight string) []byte {
	var b []byte
	b = appendVarintField(b, 1, option)
	b = appendBytesField(b, 2, []byte(weight))
	return b
}

func buildMsgVoteWeighted(proposalID uint64, voter string, options ...[]byte) []byte {
	var b []byte
	b = appendVarintField(b, 1, proposalID)
	b = appendBytesField(b, 2, []byte(voter))
	for _, o := range options {
		b = appendBytesField(b, 3, o)
	}
	return b
}

// TestDecodeMsgVoteEmitsProtojsonShapedScalars guards against the fast
// path emitting native Go uint64 for proposal_id/option, which matches
// neither the string nor float64 arms the extractor's type switches
// look for (that shape is only produced by the dynamic registry tier).
func TestDecodeMsgVoteEmitsProtojsonShapedScalars(t *testing.T) {
	out, err := decodeMsgVote(buildMsgVote(42, 1, "cosmos1voter"))
	require.NoError(t, err)

	proposalID, ok := out["proposal_id"].(string)
	require.True(t, ok, "proposal_id must decode to a string, got %T", out["proposal_id"])
	assert.Equal(t, "42", proposalID)

	option, ok := out["option"].(string)
	require.True(t, ok, "option must decode to a string, got %T", out["option"])
	assert.Equal(t, "VOTE_OPTION_YES", option)
	assert.Equal(t, "cosmos1voter", out["voter"])
}

func TestDecodeMsgDepositEmitsProtojsonShapedProposalID(t *testing.T) {
	out, err := decodeMsgDeposit(buildMsgDeposit(7, "cosmos1depositor"))
	require.NoError(t, err)

	proposalID, ok := out["proposal_id"].(string)
	require.True(t, ok, "proposal_id must decode to a string, got %T", out["proposal_id"])
	assert.Equal(t, "7", proposalID)
	assert.Equal(t, "cosmos1depositor", out["depositor"])
}

func TestDecodeMsgVoteWeightedCarriesFirstOptionAndWeight(t *testing.T) {
	value := buildMsgVoteWeighted(9, "cosmos1voter",
		buildWeightedOption(1, "0.700000000000000000"),
		buildWeightedOption(3, "0.300000000000000000"),
	)
	out, err := decodeMsgVoteWeighted(value)
	require.NoError(t, err)

	assert.Equal(t, "9", out["proposal_id"])
	assert.Equal(t, "cosmos1voter", out["voter"])

	options, ok := out["options"].([]any)
	require.True(t, ok)
	require.Len(t, options, 2)

	first, ok := options[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VOTE_OPTION_YES", first["option"])
	assert.Equal(t, "0.700000000000000000", first["weight"])
}
