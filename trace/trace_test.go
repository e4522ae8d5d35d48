package trace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
)

func sampleRecord() Record {
	return Record{
		TraceID:    "trace-1",
		AgentName:  "writer",
		Model:      "gpt-4o-mini",
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     StatusRunning,
		StartTime:  time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		Input:      "write a poem",
	}
}

type errSink struct{ err error }

func (s errSink) SaveTrace(context.Context, Record) error { return s.err }
func (s errSink) SaveSpan(context.Context, Record) error  { return s.err }

type countSink struct{ traces, spans int }

func (s *countSink) SaveTrace(context.Context, Record) error { s.traces++; return nil }
func (s *countSink) SaveSpan(context.Context, Record) error  { s.spans++; return nil }

func TestRecordFinish(t *testing.T) {
	rec := sampleRecord()
	end := rec.StartTime.Add(1500 * time.Millisecond)

	done := rec.Finish(StatusCompleted, "a poem", end)

	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "a poem", done.Output)
	assert.Equal(t, int64(1500), done.DurationMS)
	require.NotNil(t, done.EndTime)
	assert.Equal(t, StatusRunning, rec.Status, "original record must be unchanged")

	span := done.AsSpan("span-1")
	assert.Equal(t, "span-1", span.SpanID)
	assert.Equal(t, SpanTypeAgentExecution, span.SpanType)
}

func TestEmitterSwallowsErrors(t *testing.T) {
	var kinds []string
	e := NewEmitter(errSink{err: errors.New("boom")}, func(o *EmitterOptions) {
		o.OnError = func(kind string, _ error) { kinds = append(kinds, kind) }
	})

	assert.NotPanics(t, func() {
		e.Emit(context.Background(), sampleRecord(), sampleRecord().AsSpan("s"))
	})
	assert.Equal(t, []string{"trace", "span"}, kinds)
}

func TestEmitterNilSink(t *testing.T) {
	e := NewEmitter(nil)
	assert.False(t, e.Enabled())
	e.Emit(context.Background(), sampleRecord(), sampleRecord())

	var nilEmitter *Emitter
	assert.False(t, nilEmitter.Enabled())
}

func TestMultiSink(t *testing.T) {
	a, b := &countSink{}, &countSink{}
	m := MultiSink{a, errSink{err: errors.New("down")}, b}

	err := m.SaveTrace(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")

	require.Error(t, m.SaveSpan(context.Background(), sampleRecord()))
	assert.Equal(t, 1, a.traces)
	assert.Equal(t, 1, b.spans)
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewRedisSink(client, func(o *RedisSinkOptions) { o.Prefix = "test" })
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, sink.SaveTrace(ctx, rec))

	done := rec.Finish(StatusCompleted, "done", rec.StartTime.Add(time.Second))
	require.NoError(t, sink.SaveTrace(ctx, done))
	require.NoError(t, sink.SaveSpan(ctx, done.AsSpan("span-1")))

	got, err := sink.Trace(ctx, "trace-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Output)
	assert.Equal(t, "user-1", got.UserID)

	span, err := sink.Span(ctx, "span-1")
	require.NoError(t, err)
	assert.Equal(t, "trace-1", span.TraceID)

	ids, err := sink.AgentTraces(ctx, "writer", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"trace-1"}, ids)

	assert.True(t, mr.Exists("test:trace:trace-1"))
}

func TestRedisSinkUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewRedisSink(client).SaveTrace(context.Background(), sampleRecord())
	require.Error(t, err)
}

func TestGormSink(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sink, err := NewGormSink(db)
	require.NoError(t, err)

	ctx := context.Background()
	rec := sampleRecord()
	require.NoError(t, sink.SaveTrace(ctx, rec))

	done := rec.Finish(StatusFailed, "timeout", rec.StartTime.Add(2*time.Second))
	require.NoError(t, sink.SaveTrace(ctx, done))
	require.NoError(t, sink.SaveSpan(ctx, done.AsSpan("span-1")))

	rows, err := sink.Traces(ctx, "writer", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, string(StatusFailed), rows[0].Status)
	assert.Equal(t, int64(2000), rows[0].DurationMS)

	var spans int64
	require.NoError(t, db.Model(&SpanRow{}).Count(&spans).Error)
	assert.Equal(t, int64(1), spans)
}

func TestOTelSink(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	sink := NewOTelSink(tp.Tracer("test"))
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, sink.SaveSpan(ctx, rec.AsSpan("span-1")))
	assert.Empty(t, exporter.GetSpans(), "running spans are not exported")

	done := rec.Finish(StatusCompleted, "ok", rec.StartTime.Add(time.Second)).AsSpan("span-1")
	require.NoError(t, sink.SaveSpan(ctx, done))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "agent.turn", spans[0].Name)
	assert.Equal(t, rec.StartTime, spans[0].StartTime)
}
