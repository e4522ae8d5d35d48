package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Pattern selects how agents collaborate on a task.
type Pattern string

const (
	// PatternSingle runs only the first agent.
	PatternSingle Pattern = "single"
	// PatternChain pipes each agent's output into the next agent.
	PatternChain Pattern = "chain"
	// PatternManager runs agents in order, handing each one the previous
	// output together with the original task.
	PatternManager Pattern = "manager"
	// PatternGroupChat runs every agent on the original task.
	PatternGroupChat Pattern = "group-chat"
	// PatternTriage currently runs exactly like PatternGroupChat.
	PatternTriage Pattern = "triage"
)

// Patterns lists the supported patterns.
var Patterns = []Pattern{PatternSingle, PatternChain, PatternManager, PatternGroupChat, PatternTriage}

// ErrUnknownPattern is returned for pattern names outside Patterns.
var ErrUnknownPattern = errors.New("unknown collaboration pattern")

// ParsePattern validates a pattern name. Names are case-insensitive and
// "group_chat" is accepted for "group-chat".
func ParsePattern(s string) (Pattern, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, p := range Patterns {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPattern, s)
}

// handoff selects the input of the next step.
type handoff int

const (
	// every step sees the original task
	handoffTask handoff = iota
	// every step sees the previous step's output
	handoffOutput
	// every step sees the previous output framed with the original task
	handoffManager
)

// policy drives the shared step loop.
type policy struct {
	// maxAgents limits the number of steps; zero runs every agent.
	maxAgents int
	handoff   handoff
	// isolateFailures renders a failed step inline and continues instead
	// of aborting the workflow.
	isolateFailures bool
	// compose joins per-agent sections instead of returning the last output.
	compose bool
}

var policies = map[Pattern]policy{
	PatternSingle:    {maxAgents: 1, handoff: handoffTask},
	PatternChain:     {handoff: handoffOutput},
	PatternManager:   {handoff: handoffManager, isolateFailures: true, compose: true},
	PatternGroupChat: {handoff: handoffTask, isolateFailures: true, compose: true},
	PatternTriage:    {handoff: handoffTask, isolateFailures: true, compose: true},
}
