// Package trace defines the per-turn trace and span records emitted by agent
// runtimes and the sinks that persist them.
//
// Sinks are write-only from the runtime's point of view. Emission goes
// through an Emitter, which logs and drops sink errors so persistence can
// never change the outcome of an agent turn.
package trace

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a record.
type Status string

const (
	// StatusRunning marks a turn in flight.
	StatusRunning Status = "running"
	// StatusCompleted marks a successful turn.
	StatusCompleted Status = "completed"
	// StatusFailed marks a turn whose completion call failed.
	StatusFailed Status = "failed"
)

// SpanTypeAgentExecution is the span type of an agent turn.
const SpanTypeAgentExecution = "agent_execution"

// Record is a trace or span record. A turn writes the same ids twice:
// once running, once completed or failed.
type Record struct {
	TraceID    string     `json:"trace_id"`
	SpanID     string     `json:"span_id,omitempty"`
	SpanType   string     `json:"span_type,omitempty"`
	AgentName  string     `json:"agent_name"`
	Model      string     `json:"model,omitempty"`
	WorkflowID string     `json:"workflow_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	Status     Status     `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
	Input      string     `json:"input"`
	Output     string     `json:"output,omitempty"`
}

// Finish returns a copy of r closed at end with the given status and output.
func (r Record) Finish(status Status, output string, end time.Time) Record {
	r.Status = status
	r.Output = output
	r.EndTime = &end
	r.DurationMS = end.Sub(r.StartTime).Milliseconds()
	return r
}

// AsSpan returns the span view of a trace record.
func (r Record) AsSpan(spanID string) Record {
	r.SpanID = spanID
	r.SpanType = SpanTypeAgentExecution
	return r
}

// Sink persists records. Saving the same id twice updates the record.
type Sink interface {
	SaveTrace(ctx context.Context, rec Record) error
	SaveSpan(ctx context.Context, rec Record) error
}

// MultiSink fans records out to every sink and joins their errors.
type MultiSink []Sink

// SaveTrace implements Sink.
func (m MultiSink) SaveTrace(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveTrace(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveSpan implements Sink.
func (m MultiSink) SaveSpan(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveSpan(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
