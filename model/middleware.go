package model

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Model
	limiter *rate.Limiter
}

// WithRateLimit throttles calls to m through limiter. Sharing one limiter
// across agents enforces a process-wide request rate.
func WithRateLimit(m Model, limiter *rate.Limiter) Model {
	return &rateLimited{next: m, limiter: limiter}
}

func (r *rateLimited) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Complete(ctx, req)
}

func (r *rateLimited) Info() Info { return r.next.Info() }

// BreakerOptions configures WithCircuitBreaker.
type BreakerOptions struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	OnStateChange       func(name string, from, to gobreaker.State)
}

type breaker struct {
	next Model
	cb   *gobreaker.CircuitBreaker[*Response]
}

// WithCircuitBreaker stops calling m after repeated failures. While open,
// calls fail fast with gobreaker.ErrOpenState.
func WithCircuitBreaker(m Model, opts BreakerOptions) Model {
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}

	if opts.Name == "" {
		opts.Name = m.Info().Provider
	}

	return &breaker{
		next: m,
		cb: gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:        opts.Name,
			MaxRequests: 1,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= opts.ConsecutiveFailures
			},
			OnStateChange: opts.OnStateChange,
		}),
	}
}

func (b *breaker) Complete(ctx context.Context, req Request) (*Response, error) {
	return b.cb.Execute(func() (*Response, error) {
		return b.next.Complete(ctx, req)
	})
}

func (b *breaker) Info() Info { return b.next.Info() }
