// Package memory provides an in-memory report sink for tests.
package memory

import (
	"context"
	"sync"

	"kanri/internal/sheets"
)

type Sink struct {
	mu    sync.Mutex
	snaps []sheets.Snapshot
	err   error
}

var _ sheets.ReportSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{}
}

// Fail makes every subsequent Export return err.
func (s *Sink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Sink) Export(_ context.Context, snap sheets.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.snaps = append(s.snaps, snap)
	return nil
}

// Snapshots returns every exported snapshot in order.
func (s *Sink) Snapshots() []sheets.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Snapshot(nil), s.snaps...)
}
