package clickhouse

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cosmos-network/cosmosingest/pkg/config"
	"github.com/cosmos-network/cosmosingest/pkg/model"
	"github.com/cosmos-network/cosmosingest/pkg/progress"
)

// Sink buffers block records and flushes them as native ClickHouse
// batch inserts once any per-table threshold is exceeded, mirroring
// the batch-insert mode of pkg/sink/postgres but without partition
// management (ClickHouse MergeTree tables self-partition).
type Sink struct {
	client     *Client
	logger     *zap.Logger
	cfg        config.Postgres
	progressID string

	blocks       []model.Block
	transactions []model.Transaction
	messages     []model.Message
	events       []model.Event
	attributes   []model.EventAttribute
	transfers    []model.Transfer
	maxHeight    uint64
}

func New(ctx context.Context, logger *zap.Logger, cfg config.Postgres) (*Sink, error) {
	client, err := newClient(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, &client); err != nil {
		return nil, err
	}
	return &Sink{client: &client, logger: logger, cfg: cfg, progressID: cfg.ProgressID}, nil
}

func (s *Sink) Write(ctx context.Context, rec model.BlockRecord) error {
	s.blocks = append(s.blocks, rec.Block)
	s.transactions = append(s.transactions, rec.Transactions...)
	s.messages = append(s.messages, rec.Messages...)
	s.events = append(s.events, rec.Events...)
	s.attributes = append(s.attributes, rec.Attributes...)
	s.transfers = append(s.transfers, rec.Transfers...)
	if rec.Height > s.maxHeight {
		s.maxHeight = rec.Height
	}

	if len(s.blocks) >= s.cfg.BatchBlocks || len(s.transactions) >= s.cfg.BatchTxs ||
		len(s.messages) >= s.cfg.BatchMsgs || len(s.events) >= s.cfg.BatchEvents ||
		len(s.attributes) >= s.cfg.BatchAttrs {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Sink) Flush(ctx context.Context) error {
	if len(s.blocks) == 0 {
		return nil
	}

	start := time.Now()
	if err := s.flushBlocks(ctx); err != nil {
		return err
	}
	if err := s.flushTransactions(ctx); err != nil {
		return err
	}
	if err := s.flushMessages(ctx); err != nil {
		return err
	}
	if err := s.flushEvents(ctx); err != nil {
		return err
	}
	if err := s.flushAttributes(ctx); err != nil {
		return err
	}
	if err := s.flushTransfers(ctx); err != nil {
		return err
	}
	if err := progress.UpsertClickhouse(ctx, s.client, s.progressID, s.maxHeight); err != nil {
		return err
	}

	s.logger.Info("clickhouse sink flush committed",
		zap.Uint64("max_height", s.maxHeight), zap.Duration("duration", time.Since(start)))

	s.blocks, s.transactions, s.messages = nil, nil, nil
	s.events, s.attributes, s.transfers = nil, nil, nil
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	return s.client.Close()
}

func (s *Sink) flushBlocks(ctx context.Context) error {
	batch, err := s.client.PrepareBatch(ctx, "INSERT INTO blocks")
	if err != nil {
		return err
	}
	for _, b := range s.blocks {
		if err := batch.Append(b.Height, b.BlockHash, b.Time, b.ProposerAddr, uint32(b.TxCount), b.SizeBytes,
			b.LastCommitHash, b.DataHash, uint32(b.EvidenceCount), b.AppHash); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) flushTransactions(ctx context.Context) error {
	batch, err := s.client.PrepareBatch(ctx, "INSERT INTO transactions")
	if err != nil {
		return err
	}
	for _, t := range s.transactions {
		fee, err := json.Marshal(t.Fee)
		if err != nil {
			return err
		}
		rawTx, err := json.Marshal(t.RawTx)
		if err != nil {
			return err
		}
		if err := batch.Append(t.Height, t.TxHash, uint32(t.TxIndex), t.Code, t.Codespace, t.GasWanted, t.GasUsed,
			string(fee), t.Memo, t.Signers, string(rawTx), t.LogSummary, t.Time); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) flushMessages(ctx context.Context) error {
	batch, err := s.client.PrepareBatch(ctx, "INSERT INTO messages")
	if err != nil {
		return err
	}
	for _, m := range s.messages {
		value, err := json.Marshal(m.Value)
		if err != nil {
			return err
		}
		if err := batch.Append(m.Height, m.TxHash, uint32(m.MsgIndex), m.TypeURL, string(value), m.Signer); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) flushEvents(ctx context.Context) error {
	batch, err := s.client.PrepareBatch(ctx, "INSERT INTO events")
	if err != nil {
		return err
	}
	for _, e := range s.events {
		if err := batch.Append(e.Height, e.TxHash, int32(e.MsgIndex), uint32(e.EventIndex), e.EventType); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) flushAttributes(ctx context.Context) error {
	batch, err := s.client.PrepareBatch(ctx, "INSERT INTO event_attrs")
	if err != nil {
		return err
	}
	for _, a := range s.attributes {
		if err := batch.Append(a.Height, a.TxHash, int32(a.MsgIndex), uint32(a.EventIndex), a.Key, a.Value); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) flushTransfers(ctx context.Context) error {
	batch, err := s.client.PrepareBatch(ctx, "INSERT INTO transfers")
	if err != nil {
		return err
	}
	for _, t := range s.transfers {
		if err := batch.Append(t.Height, t.TxHash, uint32(t.MsgIndex), t.FromAddr, t.ToAddr, t.Denom, t.Amount); err != nil {
			return err
		}
	}
	return batch.Send()
}
