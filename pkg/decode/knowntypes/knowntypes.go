// Package knowntypes is the decoder pool's fast path: a small, fixed
// dispatch table from type URL to a hand-written decoder for the
// message kinds that dominate real chain traffic (transfers, staking,
// wasm execution, governance). Anything not in this table falls
// through to the dynamic registry.
package knowntypes

import (
	"encoding/base64"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decoder turns the raw value bytes of a google.protobuf.Any into a
// map of proto field name (snake_case) to value, following protojson
// conventions for scalars it touches.
type Decoder func(value []byte) (map[string]any, error)

// Dispatch maps a fully-qualified type URL (with leading "/") to its
// fast decoder.
var Dispatch = map[string]Decoder{
	"/cosmos.bank.v1beta1.MsgSend":                  decodeMsgSend,
	"/cosmos.staking.v1beta1.MsgDelegate":            decodeMsgDelegate,
	"/cosmos.staking.v1beta1.MsgUndelegate":          decodeMsgDelegate,
	"/cosmos.staking.v1beta1.MsgBeginRedelegate":     decodeMsgBeginRedelegate,
	"/cosmos.distribution.v1beta1.MsgWithdrawDelegatorReward": decodeMsgWithdrawDelegatorReward,
	"/cosmos.distribution.v1beta1.MsgSetWithdrawAddress":      decodeMsgSetWithdrawAddress,
	"/cosmwasm.wasm.v1.MsgExecuteContract":          decodeMsgExecuteContract,
	"/cosmos.gov.v1beta1.MsgVote":                   decodeMsgVote,
	"/cosmos.gov.v1.MsgVote":                        decodeMsgVote,
	"/cosmos.gov.v1beta1.MsgVoteWeighted":           decodeMsgVoteWeighted,
	"/cosmos.gov.v1.MsgVoteWeighted":                decodeMsgVoteWeighted,
	"/cosmos.gov.v1beta1.MsgDeposit":                decodeMsgDeposit,
	"/cosmos.gov.v1.MsgDeposit":                      decodeMsgDeposit,
}

// voteOptionNames mirrors cosmos.gov.v1beta1.VoteOption's enum names,
// the protojson-shaped string form the dynamic registry tier produces
// for the same field.
var voteOptionNames = map[uint64]string{
	0: "VOTE_OPTION_UNSPECIFIED",
	1: "VOTE_OPTION_YES",
	2: "VOTE_OPTION_ABSTAIN",
	3: "VOTE_OPTION_NO",
	4: "VOTE_OPTION_NO_WITH_VETO",
}

func voteOptionName(v uint64) string {
	if name, ok := voteOptionNames[v]; ok {
		return name
	}
	return "VOTE_OPTION_UNSPECIFIED"
}

type field struct {
	Num   protowire.Number
	Type  protowire.Type
	Bytes []byte
	Uint  uint64
}

func scan(b []byte) []field {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return out
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return out
			}
			out = append(out, field{Num: num, Type: typ, Bytes: v})
			b = b[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return out
			}
			out = append(out, field{Num: num, Type: typ, Uint: v})
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return out
			}
			b = b[m:]
		}
	}
	return out
}

func str(fs []field, num protowire.Number) string {
	for _, f := range fs {
		if f.Num == num && f.Type == protowire.BytesType {
			return string(f.Bytes)
		}
	}
	return ""
}

func msgs(fs []field, num protowire.Number) [][]byte {
	var out [][]byte
	for _, f := range fs {
		if f.Num == num && f.Type == protowire.BytesType {
			out = append(out, f.Bytes)
		}
	}
	return out
}

func coin(b []byte) map[string]any {
	fs := scan(b)
	return map[string]any{"denom": str(fs, 1), "amount": str(fs, 2)}
}

func coins(raws [][]byte) []any {
	out := make([]any, 0, len(raws))
	for _, r := range raws {
		out = append(out, coin(r))
	}
	return out
}

func decodeMsgSend(value []byte) (map[string]any, error) {
	fs := scan(value)
	return map[string]any{
		"from_address": str(fs, 1),
		"to_address":   str(fs, 2),
		"amount":       coins(msgs(fs, 3)),
	}, nil
}

func decodeMsgDelegate(value []byte) (map[string]any, error) {
	fs := scan(value)
	m := map[string]any{
		"delegator_address": str(fs, 1),
		"validator_address": str(fs, 2),
	}
	if amt := msgs(fs, 3); len(amt) > 0 {
		m["amount"] = coin(amt[0])
	}
	return m, nil
}

func decodeMsgBeginRedelegate(value []byte) (map[string]any, error) {
	fs := scan(value)
	m := map[string]any{
		"delegator_address":     str(fs, 1),
		"validator_src_address": str(fs, 2),
		"validator_dst_address": str(fs, 3),
	}
	if amt := msgs(fs, 4); len(amt) > 0 {
		m["amount"] = coin(amt[0])
	}
	return m, nil
}

func decodeMsgWithdrawDelegatorReward(value []byte) (map[string]any, error) {
	fs := scan(value)
	return map[string]any{
		"delegator_address": str(fs, 1),
		"validator_address": str(fs, 2),
	}, nil
}

func decodeMsgSetWithdrawAddress(value []byte) (map[string]any, error) {
	fs := scan(value)
	return map[string]any{
		"delegator_address": str(fs, 1),
		"withdraw_address":  str(fs, 2),
	}, nil
}

func decodeMsgExecuteContract(value []byte) (map[string]any, error) {
	fs := scan(value)
	m := map[string]any{
		"sender":   str(fs, 1),
		"contract": str(fs, 2),
	}
	if raws := msgs(fs, 3); len(raws) > 0 {
		m["msg"] = base64.StdEncoding.EncodeToString(raws[0])
	}
	if funds := msgs(fs, 5); len(funds) > 0 {
		m["funds"] = coins(funds)
	}
	return m, nil
}

func decodeMsgVote(value []byte) (map[string]any, error) {
	fs := scan(value)
	return map[string]any{
		"proposal_id": firstUintString(fs, 1),
		"voter":       str(fs, 2),
		"option":      voteOptionName(firstUint(fs, 3)),
	}, nil
}

// decodeMsgVoteWeighted decodes cosmos.gov.{v1beta1,v1}.MsgVoteWeighted,
// whose repeated WeightedVoteOption entries (field 3) each carry an
// option enum (field 1) and a Dec weight marshaled as a decimal string
// (field 2).
func decodeMsgVoteWeighted(value []byte) (map[string]any, error) {
	fs := scan(value)
	var options []any
	for _, raw := range msgs(fs, 3) {
		ofs := scan(raw)
		options = append(options, map[string]any{
			"option": voteOptionName(firstUint(ofs, 1)),
			"weight": str(ofs, 2),
		})
	}
	return map[string]any{
		"proposal_id": firstUintString(fs, 1),
		"voter":       str(fs, 2),
		"options":     options,
	}, nil
}

func decodeMsgDeposit(value []byte) (map[string]any, error) {
	fs := scan(value)
	return map[string]any{
		"proposal_id": firstUintString(fs, 1),
		"depositor":   str(fs, 2),
		"amount":      coins(msgs(fs, 3)),
	}, nil
}

func firstUint(fs []field, num protowire.Number) uint64 {
	for _, f := range fs {
		if f.Num == num {
			return f.Uint
		}
	}
	return 0
}

func firstUintString(fs []field, num protowire.Number) string {
	return strconv.FormatUint(firstUint(fs, num), 10)
}
