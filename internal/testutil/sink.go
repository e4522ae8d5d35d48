package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentfactory/trace"
)

// RecordingSink keeps every saved record in memory.
type RecordingSink struct {
	mu     sync.Mutex
	traces []trace.Record
	spans  []trace.Record
	// Err is returned from every save when set.
	Err error
}

// SaveTrace implements trace.Sink.
func (s *RecordingSink) SaveTrace(_ context.Context, rec trace.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces = append(s.traces, rec)
	return s.Err
}

// SaveSpan implements trace.Sink.
func (s *RecordingSink) SaveSpan(_ context.Context, rec trace.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = append(s.spans, rec)
	return s.Err
}

// Traces returns the saved trace records in order.
func (s *RecordingSink) Traces() []trace.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]trace.Record(nil), s.traces...)
}

// Spans returns the saved span records in order.
func (s *RecordingSink) Spans() []trace.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]trace.Record(nil), s.spans...)
}
