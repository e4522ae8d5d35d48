package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("workflow result not found")

// Status is the state of a workflow run.
type Status string

const (
	// StatusNotCompleted marks a run that is still executing.
	StatusNotCompleted Status = "not_completed"
	// StatusCompleted marks a finished run.
	StatusCompleted Status = "completed"
	// StatusFailed marks a run that returned an error.
	StatusFailed Status = "failed"
	// StatusNotFound is reported for ids the store does not know.
	StatusNotFound Status = "not_found"
)

// Result is the stored state of one workflow run.
type Result struct {
	TraceID   string    `json:"trace_id"`
	UserID    string    `json:"user_id,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Status    Status    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists workflow results.
type Store interface {
	// Put creates or replaces a result.
	Put(ctx context.Context, res Result) error
	// Get returns the result of a run or ErrNotFound.
	Get(ctx context.Context, traceID string) (Result, error)
}
