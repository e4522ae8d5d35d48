package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelSink converts finished span records into OpenTelemetry spans. Running
// records and trace records are ignored; the span record carries the same
// payload.
type OTelSink struct {
	tracer oteltrace.Tracer
}

// NewOTelSink creates an OTelSink using tracer.
func NewOTelSink(tracer oteltrace.Tracer) *OTelSink {
	return &OTelSink{tracer: tracer}
}

// SaveTrace implements Sink.
func (s *OTelSink) SaveTrace(context.Context, Record) error { return nil }

// SaveSpan implements Sink.
func (s *OTelSink) SaveSpan(ctx context.Context, rec Record) error {
	if rec.Status == StatusRunning || rec.EndTime == nil {
		return nil
	}

	_, span := s.tracer.Start(ctx, "agent.turn",
		oteltrace.WithTimestamp(rec.StartTime),
		oteltrace.WithAttributes(
			attribute.String("agent.name", rec.AgentName),
			attribute.String("agent.model", rec.Model),
			attribute.String("agent.trace_id", rec.TraceID),
			attribute.String("agent.span_id", rec.SpanID),
			attribute.String("workflow.id", rec.WorkflowID),
			attribute.Int64("duration_ms", rec.DurationMS),
		),
	)

	if rec.Status == StatusFailed {
		span.SetStatus(codes.Error, rec.Output)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(oteltrace.WithTimestamp(*rec.EndTime))

	return nil
}
