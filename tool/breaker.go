package tool

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hupe1980/agentfactory/logging"
)

// BreakerOptions configures the per-provider circuit breakers.
type BreakerOptions struct {
	// ConsecutiveFailures trips the breaker. Zero disables breaking.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

func newBreaker(name string, opts BreakerOptions, logger logging.Logger) *gobreaker.CircuitBreaker[Receipt] {
	if opts.ConsecutiveFailures == 0 {
		return nil
	}

	return gobreaker.NewCircuitBreaker[Receipt](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProviderUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
}

// guarded runs fn through cb when a breaker is configured.
func guarded(cb *gobreaker.CircuitBreaker[Receipt], fn func() (Receipt, error)) (Receipt, error) {
	if cb == nil {
		return fn()
	}
	return cb.Execute(fn)
}

// unavailable reports whether err means the provider could not be reached at
// all, as opposed to a call that failed.
func unavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}
