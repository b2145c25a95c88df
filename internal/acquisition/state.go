package acquisition

import "fmt"

// State is a lifecycle state of the Loop.
type State int

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateSessionActive
	StateGazePermissionDenied
	StateGazeReady
	StatePublishing
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSessionActive:
		return "session_active"
	case StateGazePermissionDenied:
		return "gaze_permission_denied"
	case StateGazeReady:
		return "gaze_ready"
	case StatePublishing:
		return "publishing"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateGazePermissionDenied || s == StateStopped || s == StateFailed
}

// Outcome is how a Run ended.
type Outcome int

// Run outcomes.
const (
	OutcomeStopped Outcome = iota
	OutcomePermissionDenied
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "stopped"
	case OutcomePermissionDenied:
		return "permission_denied"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
