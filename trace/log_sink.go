package trace

import (
	"context"

	"github.com/hupe1980/agentfactory/logging"
)

// LogSink writes records to a Logger.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// SaveTrace implements Sink.
func (s *LogSink) SaveTrace(_ context.Context, rec Record) error {
	s.logger.Info("trace", recordAttrs(rec)...)
	return nil
}

// SaveSpan implements Sink.
func (s *LogSink) SaveSpan(_ context.Context, rec Record) error {
	s.logger.Debug("span", append(recordAttrs(rec), "span_id", rec.SpanID, "span_type", rec.SpanType)...)
	return nil
}

func recordAttrs(rec Record) []any {
	return []any{
		"trace_id", rec.TraceID,
		"agent_name", rec.AgentName,
		"model", rec.Model,
		"status", string(rec.Status),
		"duration_ms", rec.DurationMS,
	}
}
