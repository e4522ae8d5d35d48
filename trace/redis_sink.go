package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink stores records as JSON values keyed by id, plus a per-agent
// sorted set of trace ids ordered by start time.
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisSinkOptions configures a RedisSink.
type RedisSinkOptions struct {
	Prefix string
	// TTL of stored records. Zero keeps them forever.
	TTL time.Duration
}

// NewRedisSink creates a RedisSink on an existing client.
func NewRedisSink(client *redis.Client, optFns ...func(o *RedisSinkOptions)) *RedisSink {
	opts := RedisSinkOptions{Prefix: "agentfactory", TTL: 7 * 24 * time.Hour}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RedisSink{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *RedisSink) traceKey(id string) string { return fmt.Sprintf("%s:trace:%s", s.prefix, id) }
func (s *RedisSink) spanKey(id string) string  { return fmt.Sprintf("%s:span:%s", s.prefix, id) }
func (s *RedisSink) agentKey(name string) string {
	return fmt.Sprintf("%s:agent:%s:traces", s.prefix, name)
}

// SaveTrace implements Sink.
func (s *RedisSink) SaveTrace(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.traceKey(rec.TraceID), data, s.ttl)
	pipe.ZAdd(ctx, s.agentKey(rec.AgentName), redis.Z{
		Score:  float64(rec.StartTime.UnixMilli()),
		Member: rec.TraceID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save trace %s: %w", rec.TraceID, err)
	}

	return nil
}

// SaveSpan implements Sink.
func (s *RedisSink) SaveSpan(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal span: %w", err)
	}

	if err := s.client.Set(ctx, s.spanKey(rec.SpanID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save span %s: %w", rec.SpanID, err)
	}

	return nil
}

// Trace loads a stored trace record.
func (s *RedisSink) Trace(ctx context.Context, id string) (Record, error) {
	return s.load(ctx, s.traceKey(id))
}

// Span loads a stored span record.
func (s *RedisSink) Span(ctx context.Context, id string) (Record, error) {
	return s.load(ctx, s.spanKey(id))
}

// AgentTraces returns up to limit trace ids of an agent, newest first.
func (s *RedisSink) AgentTraces(ctx context.Context, agent string, limit int64) ([]string, error) {
	return s.client.ZRevRange(ctx, s.agentKey(agent), 0, limit-1).Result()
}

func (s *RedisSink) load(ctx context.Context, key string) (Record, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", key, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", key, err)
	}

	return rec, nil
}
