package postgres

import (
	"context"

	"github.com/cosmos-network/cosmosingest/pkg/config"
	dbpostgres "github.com/cosmos-network/cosmosingest/pkg/db/postgres"
	"github.com/cosmos-network/cosmosingest/pkg/model"
)

// maxParamsPerStatement caps the total placeholder count of a single
// batched INSERT, independent of the per-table row-count caps below.
const maxParamsPerStatement = 30_000

// buffer accumulates row sets across many blocks for batch-insert
// mode. It is owned by one Sink; Write and Flush are never called
// concurrently on the same Sink, so no internal locking is needed.
type buffer struct {
	blockCount int
	minHeight  uint64
	maxHeight  uint64

	blocks       []model.Block
	transactions []model.Transaction
	messages     []model.Message
	events       []model.Event
	attributes   []model.EventAttribute
	transfers    []model.Transfer
	delegations  []model.StakeDelegationEvent
	distribution []model.StakeDistributionEvent
	wasmExecs    []model.WasmExecution
	wasmEvents   []model.WasmEvent
	govProposals []model.GovProposal
	govDeposits  []model.GovDeposit
	govVotes     []model.GovVote
}

func (b *buffer) empty() bool { return b.blockCount == 0 }

func (b *buffer) append(rec model.BlockRecord) {
	if b.blockCount == 0 || rec.Height < b.minHeight {
		b.minHeight = rec.Height
	}
	if rec.Height > b.maxHeight {
		b.maxHeight = rec.Height
	}
	b.blockCount++

	b.blocks = append(b.blocks, rec.Block)
	b.transactions = append(b.transactions, rec.Transactions...)
	b.messages = append(b.messages, rec.Messages...)
	b.events = append(b.events, rec.Events...)
	b.attributes = append(b.attributes, rec.Attributes...)
	b.transfers = append(b.transfers, rec.Transfers...)
	b.delegations = append(b.delegations, rec.Delegations...)
	b.distribution = append(b.distribution, rec.Distribution...)
	b.wasmExecs = append(b.wasmExecs, rec.WasmExecs...)
	b.wasmEvents = append(b.wasmEvents, rec.WasmEvents...)
	b.govProposals = append(b.govProposals, rec.GovProposals...)
	b.govDeposits = append(b.govDeposits, rec.GovDeposits...)
	b.govVotes = append(b.govVotes, rec.GovVotes...)
}

func (b *buffer) heightRange() (uint64, uint64) { return b.minHeight, b.maxHeight }

func (b *buffer) rowCount() int {
	return len(b.blocks) + len(b.transactions) + len(b.messages) + len(b.events) + len(b.attributes) +
		len(b.transfers) + len(b.delegations) + len(b.distribution) + len(b.wasmExecs) + len(b.wasmEvents) +
		len(b.govProposals) + len(b.govDeposits) + len(b.govVotes)
}

func (b *buffer) exceedsThreshold(cfg config.Postgres) bool {
	return len(b.blocks) >= cfg.BatchBlocks ||
		len(b.transactions) >= cfg.BatchTxs ||
		len(b.messages) >= cfg.BatchMsgs ||
		len(b.events) >= cfg.BatchEvents ||
		len(b.attributes) >= cfg.BatchAttrs
}

func (b *buffer) reset() { *b = buffer{} }

// insertAll writes every buffered row set in the fixed table order,
// chunking each table's rows so that no single batched statement
// exceeds maxParamsPerStatement placeholders.
func (b *buffer) insertAll(ctx context.Context, client *dbpostgres.Client, cfg config.Postgres) error {
	exec := client.GetExecutor(ctx)

	if err := fmtInsertError("block", chunkInsert(ctx, exec, b.blocks, 10, insertBlocks)); err != nil {
		return err
	}
	if err := fmtInsertError("transactions", chunkInsert(ctx, exec, b.transactions, 13, insertTransactions)); err != nil {
		return err
	}
	if err := fmtInsertError("messages", chunkInsert(ctx, exec, b.messages, 6, insertMessages)); err != nil {
		return err
	}
	if err := fmtInsertError("events", chunkInsert(ctx, exec, b.events, 5, insertEvents)); err != nil {
		return err
	}
	if err := fmtInsertError("event_attrs", chunkInsert(ctx, exec, b.attributes, 6, insertAttributes)); err != nil {
		return err
	}
	if err := fmtInsertError("transfers", chunkInsert(ctx, exec, b.transfers, 7, insertTransfers)); err != nil {
		return err
	}
	if err := fmtInsertError("delegation_events", chunkInsert(ctx, exec, b.delegations, 9, insertDelegations)); err != nil {
		return err
	}
	if err := fmtInsertError("distribution_events", chunkInsert(ctx, exec, b.distribution, 9, insertDistribution)); err != nil {
		return err
	}
	if err := fmtInsertError("wasm_executions", chunkInsert(ctx, exec, b.wasmExecs, 7, insertWasmExecs)); err != nil {
		return err
	}
	if err := fmtInsertError("wasm_events", chunkInsert(ctx, exec, b.wasmEvents, 6, insertWasmEvents)); err != nil {
		return err
	}
	if err := fmtInsertError("gov_proposals", chunkInsert(ctx, exec, b.govProposals, 9, insertGovProposals)); err != nil {
		return err
	}
	if err := fmtInsertError("gov_deposits", chunkInsert(ctx, exec, b.govDeposits, 7, insertGovDeposits)); err != nil {
		return err
	}
	if err := fmtInsertError("gov_votes", chunkInsert(ctx, exec, b.govVotes, 7, insertGovVotes)); err != nil {
		return err
	}
	return nil
}

// chunkInsert splits rows into slices no larger than
// maxParamsPerStatement/paramsPerRow and runs insertFn over each, so a
// single flush of a very large buffer never produces one oversized
// batched statement.
func chunkInsert[T any](ctx context.Context, exec dbpostgres.Executor, rows []T, paramsPerRow int, insertFn func(context.Context, dbpostgres.Executor, []T) error) error {
	if len(rows) == 0 {
		return nil
	}
	chunkSize := maxParamsPerStatement / paramsPerRow
	if chunkSize <= 0 {
		chunkSize = 1
	}
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertFn(ctx, exec, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}
