package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a process local Store. It is safe for concurrent access.
// Expired entries are dropped lazily on access.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	res     Result
	expires time.Time
}

// NewInMemoryStore constructs an empty store. A zero ttl keeps entries forever.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{results: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Put implements Store.
func (s *InMemoryStore) Put(_ context.Context, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}

	s.results[res.TraceID] = entry{res: res, expires: expires}

	return nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, traceID string) (Result, error) {
	s.mu.RLock()
	e, ok := s.results[traceID]
	s.mu.RUnlock()

	if !ok {
		return Result{}, ErrNotFound
	}

	if !e.expires.IsZero() && s.now().After(e.expires) {
		s.mu.Lock()
		delete(s.results, traceID)
		s.mu.Unlock()

		return Result{}, ErrNotFound
	}

	return e.res, nil
}
