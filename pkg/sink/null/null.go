// Package null is a no-op Sink, useful for dry-run decode/assemble
// benchmarking without touching storage.
package null

import (
	"context"

	"github.com/cosmos-network/cosmosingest/pkg/model"
)

type Sink struct{}

func New() *Sink { return &Sink{} }

func (s *Sink) Write(ctx context.Context, rec model.BlockRecord) error { return nil }
func (s *Sink) Flush(ctx context.Context) error                        { return nil }
func (s *Sink) Close(ctx context.Context) error                        { return nil }
