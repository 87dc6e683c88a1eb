// Package extract projects an assembled block into the flat row sets
// the sink persists: blocks, transactions, messages, events,
// attributes, and the handful of entity types derived from well-known
// event types and message shapes.
package extract

import (
	"regexp"
	"strconv"

	"github.com/cosmos-network/cosmosingest/pkg/assemble"
	"github.com/cosmos-network/cosmosingest/pkg/decode"
	"github.com/cosmos-network/cosmosingest/pkg/model"
	"github.com/cosmos-network/cosmosingest/pkg/normalize"
)

var transferAmountRe = regexp.MustCompile(`^(\d+)([a-zA-Z/][\w/:-]*)$`)

var signerFieldPriority = []string{"signer", "from_address", "delegator_address"}

var inferredSignerFields = []string{
	"signer", "from_address", "delegator_address", "validator_address",
	"authority", "admin", "granter", "grantee", "sender", "creator",
}

// Block extracts the full row set for one assembled block.
func Block(chainID string, b *assemble.Block) model.BlockRecord {
	rec := model.BlockRecord{ChainID: chainID, Height: b.Meta.Height}

	for i, tx := range b.Txs {
		rec.Transactions = append(rec.Transactions, transaction(b.Meta.Height, i, tx))

		for mi, msg := range tx.Decoded.Body.Messages {
			rec.Messages = append(rec.Messages, message(b.Meta.Height, tx.Hash, mi, msg))
		}

		eventCounts := map[int]int{}
		for _, ev := range tx.TxResponse.Logs {
			eventIndex := eventCounts[ev.MsgIndex]
			eventCounts[ev.MsgIndex]++
			eventRow, attrRows := eventAndAttrs(b.Meta.Height, tx.Hash, eventIndex, ev)
			rec.Events = append(rec.Events, eventRow)
			rec.Attributes = append(rec.Attributes, attrRows...)

			if xfer, ok := transferFromEvent(b.Meta.Height, tx.Hash, ev); ok {
				rec.Transfers = append(rec.Transfers, xfer)
			}
			if del, ok := delegationFromEvent(b.Meta.Height, tx.Hash, ev, tx.Decoded.Body.Messages); ok {
				rec.Delegations = append(rec.Delegations, del)
			}
			if dist, ok := distributionFromEvent(b.Meta.Height, tx.Hash, ev); ok {
				rec.Distribution = append(rec.Distribution, dist)
			}
			if wev, ok := wasmEventFromEvent(b.Meta.Height, tx.Hash, ev); ok {
				wev.EventIndex = eventIndex
				rec.WasmEvents = append(rec.WasmEvents, wev)
			}
		}

		for mi, msg := range tx.Decoded.Body.Messages {
			switch msg.TypeURL {
			case "/cosmwasm.wasm.v1.MsgExecuteContract":
				rec.WasmExecs = append(rec.WasmExecs, wasmExecution(b.Meta.Height, tx, mi, msg))
			case "/cosmos.gov.v1beta1.MsgDeposit", "/cosmos.gov.v1.MsgDeposit":
				rec.GovDeposits = append(rec.GovDeposits, govDeposits(b.Meta.Height, tx.Hash, mi, msg)...)
			case "/cosmos.gov.v1beta1.MsgVote", "/cosmos.gov.v1.MsgVote",
				"/cosmos.gov.v1beta1.MsgVoteWeighted", "/cosmos.gov.v1.MsgVoteWeighted":
				if v, ok := govVote(b.Meta.Height, tx.Hash, mi, msg); ok {
					rec.GovVotes = append(rec.GovVotes, v)
				}
			case "/cosmos.gov.v1beta1.MsgSubmitProposal", "/cosmos.gov.v1.MsgSubmitProposal":
				if p, ok := govProposalFromSubmit(b.Meta.Height, tx.TxResponse.Logs); ok {
					rec.GovProposals = append(rec.GovProposals, p)
				}
			}
		}
	}

	rec.Block = blockRow(b)
	return rec
}

func blockRow(b *assemble.Block) model.Block {
	return model.Block{
		Height:  b.Meta.Height,
		Time:    b.Meta.Time,
		TxCount: len(b.Txs),
	}
}

func transaction(height uint64, index int, tx assemble.Tx) model.Transaction {
	return model.Transaction{
		Height:     height,
		TxHash:     tx.Hash,
		TxIndex:    index,
		Code:       tx.TxResponse.Code,
		Codespace:  tx.TxResponse.Codespace,
		GasWanted:  tx.TxResponse.GasWanted,
		GasUsed:    tx.TxResponse.GasUsed,
		Fee:        feeOf(tx),
		Memo:       tx.Decoded.Body.Memo,
		Signers:    signersOf(tx),
		RawTx:      tx.Decoded,
		LogSummary: logSummary(tx),
		Time:       tx.TxResponse.Timestamp,
	}
}

func feeOf(tx assemble.Tx) model.Fee {
	f := model.Fee{
		GasLimit: tx.Decoded.AuthInfo.Fee.GasLimit,
		Payer:    tx.Decoded.AuthInfo.Fee.Payer,
		Granter:  tx.Decoded.AuthInfo.Fee.Granter,
	}
	for _, c := range tx.Decoded.AuthInfo.Fee.Amount {
		f.Amount = append(f.Amount, model.Coin{
			Denom:  stringField(c, "denom"),
			Amount: stringField(c, "amount"),
		})
	}
	return f
}

func logSummary(tx assemble.Tx) string {
	if tx.TxResponse.Code != 0 {
		return tx.TxResponse.RawLog
	}
	return ""
}

// signersOf derives the signer list per the decoder's message
// payloads: prefer signer/from_address/delegator_address in priority
// order (first match per message), falling back to the broader set
// of address-shaped fields when nothing matched.
func signersOf(tx assemble.Tx) []string {
	seen := map[string]bool{}
	var out []string
	for _, msg := range tx.Decoded.Body.Messages {
		for _, f := range signerFieldPriority {
			if v, ok := msg.Value[f].(string); ok && len(v) >= 10 && !seen[v] {
				seen[v] = true
				out = append(out, v)
				break
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, msg := range tx.Decoded.Body.Messages {
		for _, f := range inferredSignerFields {
			if v, ok := msg.Value[f].(string); ok && len(v) >= 10 && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func message(height uint64, txHash string, index int, msg decode.DecodedMessage) model.Message {
	signer := ""
	for _, f := range signerFieldPriority {
		if v, ok := msg.Value[f].(string); ok {
			signer = v
			break
		}
	}
	return model.Message{
		Height:   height,
		TxHash:   txHash,
		MsgIndex: index,
		TypeURL:  msg.TypeURL,
		Value:    msg.Value,
		Signer:   signer,
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func eventAndAttrs(height uint64, txHash string, eventIndex int, ev normalize.Event) (model.Event, []model.EventAttribute) {
	row := model.Event{
		Height:     height,
		TxHash:     txHash,
		MsgIndex:   ev.MsgIndex,
		EventIndex: eventIndex,
		EventType:  ev.EventType,
	}
	attrs := make([]model.EventAttribute, 0, len(ev.Attributes))
	for _, a := range ev.Attributes {
		attrRow := model.EventAttribute{
			Height: height, TxHash: txHash, MsgIndex: ev.MsgIndex, EventIndex: eventIndex,
			Key: a.Key, Value: a.Value,
		}
		row.Attributes = append(row.Attributes, attrRow)
		attrs = append(attrs, attrRow)
	}
	return row, attrs
}

func attr(ev normalize.Event, key string) (string, bool) {
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func transferFromEvent(height uint64, txHash string, ev normalize.Event) (model.Transfer, bool) {
	if ev.EventType != "transfer" {
		return model.Transfer{}, false
	}
	sender, ok1 := attr(ev, "sender")
	recipient, ok2 := attr(ev, "recipient")
	amount, ok3 := attr(ev, "amount")
	if !ok1 || !ok2 || !ok3 {
		return model.Transfer{}, false
	}
	m := transferAmountRe.FindStringSubmatch(amount)
	if m == nil {
		return model.Transfer{}, false
	}
	return model.Transfer{
		Height:   height,
		TxHash:   txHash,
		MsgIndex: ev.MsgIndex,
		FromAddr: sender,
		ToAddr:   recipient,
		Denom:    m[2],
		Amount:   m[1],
	}, true
}

var delegationEventTypes = map[string]bool{
	"delegate": true, "redelegate": true, "unbond": true, "complete_unbonding": true,
}

func delegationFromEvent(height uint64, txHash string, ev normalize.Event, msgs []decode.DecodedMessage) (model.StakeDelegationEvent, bool) {
	if !delegationEventTypes[ev.EventType] {
		return model.StakeDelegationEvent{}, false
	}
	out := model.StakeDelegationEvent{
		Height: height, TxHash: txHash, MsgIndex: ev.MsgIndex, EventType: ev.EventType,
	}
	if v, ok := attr(ev, "delegator_address"); ok {
		out.DelegatorAddr = v
	}
	if v, ok := attr(ev, "source_validator_address"); ok {
		out.ValidatorSrc = v
	}
	if v, ok := attr(ev, "destination_validator_address"); ok {
		out.ValidatorDst = v
	}
	if v, ok := attr(ev, "validator_address"); ok && out.ValidatorSrc == "" && out.ValidatorDst == "" {
		out.ValidatorDst = v
	}

	amount := ""
	if v, ok := attr(ev, "amount"); ok {
		amount = v
	} else if v, ok := attr(ev, "completion_amount"); ok {
		amount = v
	}
	if m := transferAmountRe.FindStringSubmatch(amount); m != nil {
		out.Amount, out.Denom = m[1], m[2]
	}

	// Fall back to the message payload when the event carried no
	// address attributes (some chains omit them on unbond/complete).
	if out.DelegatorAddr == "" || (out.ValidatorSrc == "" && out.ValidatorDst == "") {
		if ev.MsgIndex >= 0 && ev.MsgIndex < len(msgs) {
			fillDelegationFromMessage(&out, msgs[ev.MsgIndex])
		}
	}
	return out, true
}

func fillDelegationFromMessage(out *model.StakeDelegationEvent, msg decode.DecodedMessage) {
	if out.DelegatorAddr == "" {
		out.DelegatorAddr = stringField(msg.Value, "delegator_address")
	}
	switch msg.TypeURL {
	case "/cosmos.staking.v1beta1.MsgBeginRedelegate":
		if out.ValidatorSrc == "" {
			out.ValidatorSrc = stringField(msg.Value, "validator_src_address")
		}
		if out.ValidatorDst == "" {
			out.ValidatorDst = stringField(msg.Value, "validator_dst_address")
		}
	case "/cosmos.staking.v1beta1.MsgDelegate", "/cosmos.staking.v1beta1.MsgUndelegate":
		if out.ValidatorDst == "" {
			out.ValidatorDst = stringField(msg.Value, "validator_address")
		}
	}
	if out.Amount == "" {
		if c, ok := msg.Value["amount"].(map[string]any); ok {
			out.Amount = stringField(c, "amount")
			out.Denom = stringField(c, "denom")
		}
	}
}

var distributionEventTypes = map[string]bool{
	"withdraw_rewards": true, "withdraw_commission": true, "set_withdraw_address": true,
}

func distributionFromEvent(height uint64, txHash string, ev normalize.Event) (model.StakeDistributionEvent, bool) {
	if !distributionEventTypes[ev.EventType] {
		return model.StakeDistributionEvent{}, false
	}
	out := model.StakeDistributionEvent{Height: height, TxHash: txHash, MsgIndex: ev.MsgIndex, EventType: ev.EventType}
	if v, ok := attr(ev, "validator"); ok {
		out.ValidatorAddr = v
	}
	if v, ok := attr(ev, "delegator"); ok {
		out.DelegatorAddr = v
	}
	if v, ok := attr(ev, "withdraw_address"); ok {
		out.WithdrawAddress = v
	}
	if v, ok := attr(ev, "amount"); ok {
		if m := transferAmountRe.FindStringSubmatch(v); m != nil {
			out.Amount, out.Denom = m[1], m[2]
		}
	}
	return out, true
}

func wasmEventFromEvent(height uint64, txHash string, ev normalize.Event) (model.WasmEvent, bool) {
	if ev.EventType != "wasm" {
		return model.WasmEvent{}, false
	}
	contract, ok := attr(ev, "_contract_address")
	if !ok {
		contract, ok = attr(ev, "contract_address")
	}
	if !ok {
		return model.WasmEvent{}, false
	}
	attrs := map[string]string{}
	for _, a := range ev.Attributes {
		attrs[a.Key] = a.Value
	}
	return model.WasmEvent{
		Height: height, TxHash: txHash, MsgIndex: ev.MsgIndex,
		ContractAddress: contract, Attributes: attrs,
	}, true
}

func wasmExecution(height uint64, tx assemble.Tx, msgIndex int, msg decode.DecodedMessage) model.WasmExecution {
	out := model.WasmExecution{
		Height:          height,
		TxHash:          tx.Hash,
		MsgIndex:        msgIndex,
		ContractAddress: stringField(msg.Value, "contract"),
		Sender:          stringField(msg.Value, "sender"),
		Success:         tx.TxResponse.Code == 0,
	}
	if !out.Success {
		out.Error = logSummary(tx)
	}
	return out
}

func govDeposits(height uint64, txHash string, msgIndex int, msg decode.DecodedMessage) []model.GovDeposit {
	proposalID := parseUint(stringField(msg.Value, "proposal_id"))
	depositor := stringField(msg.Value, "depositor")
	coins, _ := msg.Value["amount"].([]any)
	out := make([]model.GovDeposit, 0, len(coins))
	for _, c := range coins {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.GovDeposit{
			Height:     height,
			TxHash:     txHash,
			MsgIndex:   msgIndex,
			ProposalID: proposalID,
			Depositor:  depositor,
			Amount:     stringField(cm, "amount"),
			Denom:      stringField(cm, "denom"),
		})
	}
	return out
}

// govVote builds one GovVote row from either a simple MsgVote (an
// "option" scalar, no weight) or a MsgVoteWeighted (an "options" list;
// only the first entry's option and weight are kept, since gov.votes
// carries one option per row).
func govVote(height uint64, txHash string, msgIndex int, msg decode.DecodedMessage) (model.GovVote, bool) {
	proposalID := parseUint(stringField(msg.Value, "proposal_id"))
	voter := stringField(msg.Value, "voter")
	if voter == "" {
		return model.GovVote{}, false
	}
	option := optionString(msg.Value["option"])
	var weight *string
	if options, ok := msg.Value["options"].([]any); ok && len(options) > 0 {
		if om, ok := options[0].(map[string]any); ok {
			option = optionString(om["option"])
			if w := stringField(om, "weight"); w != "" {
				weight = &w
			}
		}
	}
	return model.GovVote{
		Height:     height,
		TxHash:     txHash,
		MsgIndex:   msgIndex,
		ProposalID: proposalID,
		Voter:      voter,
		Option:     option,
		Weight:     weight,
	}, true
}

func optionString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func govProposalFromSubmit(height uint64, logs []normalize.Event) (model.GovProposal, bool) {
	for _, ev := range logs {
		if ev.EventType != "submit_proposal" && ev.EventType != "proposal" {
			continue
		}
		idStr, ok := attr(ev, "proposal_id")
		if !ok {
			continue
		}
		id := parseUint(idStr)
		if id == 0 {
			continue
		}
		p := model.GovProposal{ProposalID: id}
		if v, ok := attr(ev, "proposal_type"); ok {
			p.ProposalType = &v
		}
		return p, true
	}
	return model.GovProposal{}, false
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
