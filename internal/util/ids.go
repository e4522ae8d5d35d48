package util

import "github.com/google/uuid"

// NewID returns a random UUIDv4 string used for trace, span and run ids.
func NewID() string { return uuid.NewString() }
