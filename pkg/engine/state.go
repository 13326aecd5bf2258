// ABOUTME: Engine lifecycle states
// ABOUTME: Enumerates the controller state machine and its printable names
package engine

import "fmt"

// State is the lifecycle state of a Controller
type State int32

const (
	// StateUninitialized is the state of a new controller
	StateUninitialized State = iota

	// StateInitialized is held only while Start is building subsystems
	StateInitialized

	// StatePlaying means the worker and sink are running
	StatePlaying

	// StateStopped means playback ended; Start may resume it
	StateStopped

	// StateDestroyed is terminal
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MarshalText renders the state name, so JSON carries "playing" rather than 2
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for st := StateUninitialized; st <= StateDestroyed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown engine state %q", text)
}
