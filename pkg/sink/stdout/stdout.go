// Package stdout is a Sink that prints each block record as one JSON
// line to standard output, for local inspection and smoke testing.
package stdout

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/cosmos-network/cosmosingest/pkg/model"
)

type Sink struct {
	w   io.Writer
	enc *json.Encoder
}

func New() *Sink {
	return NewWithWriter(os.Stdout)
}

func NewWithWriter(w io.Writer) *Sink {
	return &Sink{w: w, enc: json.NewEncoder(w)}
}

func (s *Sink) Write(ctx context.Context, rec model.BlockRecord) error {
	return s.enc.Encode(rec)
}

func (s *Sink) Flush(ctx context.Context) error { return nil }
func (s *Sink) Close(ctx context.Context) error { return nil }
