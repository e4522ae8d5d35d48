package agent

import "fmt"

// TurnError reports a failed completion call of an agent turn.
type TurnError struct {
	Agent string
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

// Unwrap returns the underlying completion error.
func (e *TurnError) Unwrap() error { return e.Err }
