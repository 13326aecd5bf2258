// ABOUTME: Audio output sink interface definition
// ABOUTME: Common callback-driven interface for audio playback backends
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

// Backend names accepted by New
const (
	BackendOto   = "oto"
	BackendMalgo = "malgo"
	BackendClock = "clock"
	BackendNull  = "null"
)

// DefaultPeriodFrames is used when Config.PeriodFrames is zero (10ms at 48kHz)
const DefaultPeriodFrames = 480

// ErrUnknownBackend is returned by New for an unrecognised backend name
var ErrUnknownBackend = errors.New("unknown audio output backend")

// Callback fills out with exactly len(out) interleaved samples. It runs on
// the backend's audio context and must not block.
type Callback func(out []int32)

// Config describes the stream a sink should play
type Config struct {
	Format audio.Format

	// PeriodFrames is the requested callback size in sample frames
	PeriodFrames int

	Callback Callback

	// OnError reports a runtime failure after Open succeeded. It is called
	// at most once per Open and never from inside Callback.
	OnError func(error)

	Logger *slog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.Callback == nil {
		return c, errors.New("output config has no callback")
	}
	if err := c.Format.Validate(); err != nil {
		return c, err
	}
	if c.PeriodFrames <= 0 {
		c.PeriodFrames = DefaultPeriodFrames
	}
	if c.OnError == nil {
		c.OnError = func(error) {}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}

// Sink represents a callback-driven audio output device
type Sink interface {
	// Open starts the device; Callback is invoked until Close
	Open(cfg Config) error

	// Close stops the callback and releases the device; safe to call more than once
	Close() error
}

// New returns a sink for the named backend
func New(name string) (Sink, error) {
	switch strings.ToLower(name) {
	case "", BackendOto:
		return NewOto(), nil
	case BackendMalgo:
		return NewMalgo(), nil
	case BackendClock, BackendNull:
		return NewClock(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: oto, malgo, clock)", ErrUnknownBackend, name)
	}
}
