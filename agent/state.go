package agent

// State is the lifecycle state of a Runtime.
type State int32

const (
	// StateIdle waits for the next turn.
	StateIdle State = iota
	// StateAwaitingCompletion waits for the model.
	StateAwaitingCompletion
	// StateExecutingTools runs embedded tool commands.
	StateExecutingTools
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateExecutingTools:
		return "executing_tools"
	default:
		return "unknown"
	}
}
