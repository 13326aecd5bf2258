// ABOUTME: Engine error taxonomy
// ABOUTME: Sentinel error kinds plus the Error type carrying operation and state context
package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Controller matches exactly one.
var (
	// ErrInvalidState is returned for an operation the current state does not allow
	ErrInvalidState = errors.New("invalid state")

	// ErrDecoderInit is returned when the source cannot be opened or its format is unsupported
	ErrDecoderInit = errors.New("decoder init failed")

	// ErrAudioOutputInit is returned when the output device cannot be opened
	ErrAudioOutputInit = errors.New("audio output init failed")

	// ErrDecode reports an unrecoverable mid-stream decode failure
	ErrDecode = errors.New("decode failed")

	// ErrAudioOutputRuntime reports an output device failure during playback
	ErrAudioOutputRuntime = errors.New("audio output failed")

	// ErrWorkerJoinTimeout is returned when the decode worker did not exit in time
	ErrWorkerJoinTimeout = errors.New("decode worker did not stop")
)

// Error describes a failed engine operation
type Error struct {
	Op    string // Operation that failed (e.g., "start", "stop", "playback")
	State State  // State when the operation was attempted
	Kind  error  // One of the Err* kinds above
	Err   error  // Underlying error (if any)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s (%s): %v: %v", e.Op, e.State, e.Kind, e.Err)
	}
	return fmt.Sprintf("engine %s (%s): %v", e.Op, e.State, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(op string, state State, kind, err error) *Error {
	return &Error{Op: op, State: state, Kind: kind, Err: err}
}

// KindOf returns the kind of err, or nil if err did not come from the engine
func KindOf(err error) error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return nil
}
