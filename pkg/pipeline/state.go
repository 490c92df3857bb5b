package pipeline

import "fmt"

// State is the lifecycle state of a processing pipeline.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateStopping
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransition reports whether the state machine allows s -> to.
func (s State) CanTransition(to State) bool {
	switch s {
	case StateIdle:
		return to == StateProcessing
	case StateProcessing:
		return to == StateStopping || to == StateError
	case StateStopping:
		return to == StateIdle || to == StateError
	case StateError:
		return to == StateIdle
	}
	return false
}
