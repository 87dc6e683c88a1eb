// Package sink defines the destination interface the range and follow
// runners write assembled block records to, plus the handful of
// backend implementations (stdout, file, null, postgres, clickhouse).
package sink

import (
	"context"

	"github.com/cosmos-network/cosmosingest/pkg/model"
)

// Sink persists a sequence of BlockRecords, observed in strictly
// ascending height order by the caller, and advances a progress
// checkpoint consistently with what has actually been written.
type Sink interface {
	// Write hands one block record to the sink. In block-atomic mode
	// this commits immediately; in batch-insert mode it buffers until
	// a Flush threshold is reached.
	Write(ctx context.Context, rec model.BlockRecord) error

	// Flush forces any buffered rows to be committed, along with the
	// progress checkpoint for the highest height written so far.
	Flush(ctx context.Context) error

	// Close flushes and releases any underlying resources (pool,
	// file handle).
	Close(ctx context.Context) error
}
