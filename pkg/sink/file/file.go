// Package file is a Sink that appends each block record as one JSON
// line to a file on disk, buffering FlushEvery records before an
// explicit fsync.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/cosmos-network/cosmosingest/pkg/model"
)

type Sink struct {
	f          *os.File
	w          *bufio.Writer
	enc        *json.Encoder
	flushEvery int
	pending    int
}

func New(path string, flushEvery int) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if flushEvery <= 0 {
		flushEvery = 1
	}
	return &Sink{f: f, w: w, enc: json.NewEncoder(w), flushEvery: flushEvery}, nil
}

func (s *Sink) Write(ctx context.Context, rec model.BlockRecord) error {
	if err := s.enc.Encode(rec); err != nil {
		return err
	}
	s.pending++
	if s.pending >= s.flushEvery {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Sink) Flush(ctx context.Context) error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	s.pending = 0
	return s.f.Sync()
}

func (s *Sink) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}
