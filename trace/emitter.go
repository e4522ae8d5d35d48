package trace

import (
	"context"

	"github.com/hupe1980/agentfactory/logging"
)

// Emitter forwards records to a Sink on a best-effort basis.
type Emitter struct {
	sink    Sink
	logger  logging.Logger
	onError func(kind string, err error)
}

// EmitterOptions configures an Emitter.
type EmitterOptions struct {
	Logger logging.Logger
	// OnError is called for every dropped record, e.g. to count it.
	OnError func(kind string, err error)
}

// NewEmitter creates an Emitter. A nil sink makes Emit a no-op.
func NewEmitter(sink Sink, optFns ...func(o *EmitterOptions)) *Emitter {
	opts := EmitterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Emitter{sink: sink, logger: opts.Logger, onError: opts.OnError}
}

// Enabled reports whether a sink is attached.
func (e *Emitter) Enabled() bool { return e != nil && e.sink != nil }

// Emit saves the trace record and its span. Errors are logged and dropped.
func (e *Emitter) Emit(ctx context.Context, traceRec, spanRec Record) {
	if !e.Enabled() {
		return
	}

	if err := e.sink.SaveTrace(ctx, traceRec); err != nil {
		e.drop("trace", traceRec, err)
	}

	if err := e.sink.SaveSpan(ctx, spanRec); err != nil {
		e.drop("span", spanRec, err)
	}
}

func (e *Emitter) drop(kind string, rec Record, err error) {
	e.logger.Warn("failed to save trace record",
		"kind", kind,
		"trace_id", rec.TraceID,
		"status", string(rec.Status),
		"error", err.Error(),
	)

	if e.onError != nil {
		e.onError(kind, err)
	}
}
