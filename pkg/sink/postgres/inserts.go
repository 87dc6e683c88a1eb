package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
	"github.com/cosmos-network/cosmosingest/pkg/model"
)

// insertBlockRecord inserts every row set of one block, in the fixed
// table order required by spec.md §5: blocks, txs, messages, events,
// attrs, transfers, stake, wasm, gov.
func insertBlockRecord(ctx context.Context, client *dbpostgres.Client, rec model.BlockRecord) error {
	exec := client.GetExecutor(ctx)

	if err := fmtInsertError("block", insertBlocks(ctx, exec, []model.Block{rec.Block})); err != nil {
		return err
	}
	if err := fmtInsertError("transactions", insertTransactions(ctx, exec, rec.Transactions)); err != nil {
		return err
	}
	if err := fmtInsertError("messages", insertMessages(ctx, exec, rec.Messages)); err != nil {
		return err
	}
	if err := fmtInsertError("events", insertEvents(ctx, exec, rec.Events)); err != nil {
		return err
	}
	if err := fmtInsertError("event_attrs", insertAttributes(ctx, exec, rec.Attributes)); err != nil {
		return err
	}
	if err := fmtInsertError("transfers", insertTransfers(ctx, exec, rec.Transfers)); err != nil {
		return err
	}
	if err := fmtInsertError("delegation_events", insertDelegations(ctx, exec, rec.Delegations)); err != nil {
		return err
	}
	if err := fmtInsertError("distribution_events", insertDistribution(ctx, exec, rec.Distribution)); err != nil {
		return err
	}
	if err := fmtInsertError("wasm_executions", insertWasmExecs(ctx, exec, rec.WasmExecs)); err != nil {
		return err
	}
	if err := fmtInsertError("wasm_events", insertWasmEvents(ctx, exec, rec.WasmEvents)); err != nil {
		return err
	}
	if err := fmtInsertError("gov_proposals", insertGovProposals(ctx, exec, rec.GovProposals)); err != nil {
		return err
	}
	if err := fmtInsertError("gov_deposits", insertGovDeposits(ctx, exec, rec.GovDeposits)); err != nil {
		return err
	}
	if err := fmtInsertError("gov_votes", insertGovVotes(ctx, exec, rec.GovVotes)); err != nil {
		return err
	}
	return nil
}

func fmtInsertError(entity string, err error) error {
	if err != nil {
		return fmt.Errorf("insert %s: %w", entity, err)
	}
	return nil
}

func executeBatch(ctx context.Context, exec dbpostgres.Executor, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := exec.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch statement %d failed: %w", i, err)
		}
	}
	return nil
}

func insertBlocks(ctx context.Context, exec dbpostgres.Executor, blocks []model.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO core.blocks (
			height, block_hash, time, proposer_address, tx_count, size_bytes,
			last_commit_hash, data_hash, evidence_count, app_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (height) DO NOTHING
	`
	for _, b := range blocks {
		batch.Queue(query, b.Height, b.BlockHash, b.Time, b.ProposerAddr, b.TxCount, b.SizeBytes,
			b.LastCommitHash, b.DataHash, b.EvidenceCount, b.AppHash)
	}
	return executeBatch(ctx, exec, batch)
}

func insertTransactions(ctx context.Context, exec dbpostgres.Executor, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO core.transactions (
			height, tx_hash, tx_index, code, codespace, gas_wanted, gas_used,
			fee, memo, signers, raw_tx, log_summary, time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (height, tx_hash) DO UPDATE SET
			gas_used = EXCLUDED.gas_used,
			log_summary = EXCLUDED.log_summary
	`
	for _, t := range txs {
		fee, err := json.Marshal(t.Fee)
		if err != nil {
			return fmt.Errorf("marshal fee: %w", err)
		}
		rawTx, err := json.Marshal(t.RawTx)
		if err != nil {
			return fmt.Errorf("marshal raw_tx: %w", err)
		}
		batch.Queue(query, t.Height, t.TxHash, t.TxIndex, t.Code, t.Codespace, t.GasWanted, t.GasUsed,
			fee, t.Memo, t.Signers, rawTx, t.LogSummary, t.Time)
	}
	return executeBatch(ctx, exec, batch)
}

func insertMessages(ctx context.Context, exec dbpostgres.Executor, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO core.messages (height, tx_hash, msg_index, type_url, value, signer)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (height, tx_hash, msg_index) DO NOTHING
	`
	for _, m := range msgs {
		value, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("marshal message value: %w", err)
		}
		batch.Queue(query, m.Height, m.TxHash, m.MsgIndex, m.TypeURL, value, nullableString(m.Signer))
	}
	return executeBatch(ctx, exec, batch)
}

func insertEvents(ctx context.Context, exec dbpostgres.Executor, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO core.events (height, tx_hash, msg_index, event_index, event_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (height, tx_hash, msg_index, event_index) DO NOTHING
	`
	for _, e := range events {
		batch.Queue(query, e.Height, e.TxHash, e.MsgIndex, e.EventIndex, e.EventType)
	}
	return executeBatch(ctx, exec, batch)
}

func insertAttributes(ctx context.Context, exec dbpostgres.Executor, attrs []model.EventAttribute) error {
	if len(attrs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO core.event_attrs (height, tx_hash, msg_index, event_index, key, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (height, tx_hash, msg_index, event_index, key) DO NOTHING
	`
	for _, a := range attrs {
		batch.Queue(query, a.Height, a.TxHash, a.MsgIndex, a.EventIndex, a.Key, a.Value)
	}
	return executeBatch(ctx, exec, batch)
}

func insertTransfers(ctx context.Context, exec dbpostgres.Executor, transfers []model.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO bank.transfers (height, tx_hash, msg_index, from_addr, to_addr, denom, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (height, tx_hash, msg_index, from_addr, to_addr, denom) DO NOTHING
	`
	for _, t := range transfers {
		batch.Queue(query, t.Height, t.TxHash, t.MsgIndex, t.FromAddr, t.ToAddr, t.Denom, t.Amount)
	}
	return executeBatch(ctx, exec, batch)
}

func insertDelegations(ctx context.Context, exec dbpostgres.Executor, rows []model.StakeDelegationEvent) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO stake.delegation_events (
			height, tx_hash, msg_index, event_type, delegator_address,
			validator_src, validator_dst, amount, denom
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (height, tx_hash, msg_index, event_type) DO NOTHING
	`
	for _, r := range rows {
		batch.Queue(query, r.Height, r.TxHash, r.MsgIndex, r.EventType, r.DelegatorAddr,
			nullableString(r.ValidatorSrc), nullableString(r.ValidatorDst), nullableString(r.Amount), nullableString(r.Denom))
	}
	return executeBatch(ctx, exec, batch)
}

func insertDistribution(ctx context.Context, exec dbpostgres.Executor, rows []model.StakeDistributionEvent) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO stake.distribution_events (
			height, tx_hash, msg_index, event_type, validator_address,
			delegator_address, amount, denom, withdraw_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (height, tx_hash, msg_index, event_type) DO NOTHING
	`
	for _, r := range rows {
		batch.Queue(query, r.Height, r.TxHash, r.MsgIndex, r.EventType, nullableString(r.ValidatorAddr),
			nullableString(r.DelegatorAddr), nullableString(r.Amount), nullableString(r.Denom), nullableString(r.WithdrawAddress))
	}
	return executeBatch(ctx, exec, batch)
}

func insertWasmExecs(ctx context.Context, exec dbpostgres.Executor, rows []model.WasmExecution) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO wasm.executions (height, tx_hash, msg_index, contract_address, sender, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (height, tx_hash, msg_index) DO NOTHING
	`
	for _, r := range rows {
		batch.Queue(query, r.Height, r.TxHash, r.MsgIndex, r.ContractAddress, r.Sender, r.Success, nullableString(r.Error))
	}
	return executeBatch(ctx, exec, batch)
}

func insertWasmEvents(ctx context.Context, exec dbpostgres.Executor, rows []model.WasmEvent) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO wasm.events (height, tx_hash, msg_index, event_index, contract_address, attributes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (height, tx_hash, msg_index, event_index) DO NOTHING
	`
	for _, r := range rows {
		attrs, err := json.Marshal(r.Attributes)
		if err != nil {
			return fmt.Errorf("marshal wasm event attributes: %w", err)
		}
		batch.Queue(query, r.Height, r.TxHash, r.MsgIndex, r.EventIndex, r.ContractAddress, attrs)
	}
	return executeBatch(ctx, exec, batch)
}

// insertGovProposals coalesces each optional field against the
// existing row, since a proposal's lifecycle (submit, vote, deposit
// end) is observed across many separate heights.
func insertGovProposals(ctx context.Context, exec dbpostgres.Executor, rows []model.GovProposal) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO gov.proposals (
			proposal_id, title, summary, proposal_type, status, submit_height,
			deposit_end, voting_start, voting_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (proposal_id) DO UPDATE SET
			title = COALESCE(EXCLUDED.title, gov.proposals.title),
			summary = COALESCE(EXCLUDED.summary, gov.proposals.summary),
			proposal_type = COALESCE(EXCLUDED.proposal_type, gov.proposals.proposal_type),
			status = COALESCE(EXCLUDED.status, gov.proposals.status),
			submit_height = COALESCE(EXCLUDED.submit_height, gov.proposals.submit_height),
			deposit_end = COALESCE(EXCLUDED.deposit_end, gov.proposals.deposit_end),
			voting_start = COALESCE(EXCLUDED.voting_start, gov.proposals.voting_start),
			voting_end = COALESCE(EXCLUDED.voting_end, gov.proposals.voting_end)
	`
	for _, r := range rows {
		batch.Queue(query, r.ProposalID, r.Title, r.Summary, r.ProposalType, r.Status, r.SubmitHeight,
			r.DepositEnd, r.VotingStart, r.VotingEnd)
	}
	return executeBatch(ctx, exec, batch)
}

func insertGovDeposits(ctx context.Context, exec dbpostgres.Executor, rows []model.GovDeposit) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO gov.deposits (height, tx_hash, msg_index, proposal_id, depositor, amount, denom)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (height, tx_hash, msg_index, denom) DO NOTHING
	`
	for _, r := range rows {
		batch.Queue(query, r.Height, r.TxHash, r.MsgIndex, r.ProposalID, r.Depositor, r.Amount, r.Denom)
	}
	return executeBatch(ctx, exec, batch)
}

func insertGovVotes(ctx context.Context, exec dbpostgres.Executor, rows []model.GovVote) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO gov.votes (height, tx_hash, msg_index, proposal_id, voter, option, weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (height, tx_hash, msg_index) DO NOTHING
	`
	for _, r := range rows {
		batch.Queue(query, r.Height, r.TxHash, r.MsgIndex, r.ProposalID, r.Voter, r.Option, r.Weight)
	}
	return executeBatch(ctx, exec, batch)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
