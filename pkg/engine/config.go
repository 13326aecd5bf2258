// ABOUTME: Engine configuration
// ABOUTME: Source, output backend, buffering and timing knobs with their defaults
package engine

import (
	"log/slog"
	"time"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/output"
)

// Defaults applied to zero Config fields
const (
	DefaultBufferMs             = 200
	DefaultPeriodFrames         = output.DefaultPeriodFrames
	DefaultStopTimeout          = 2 * time.Second
	DefaultPrimeTimeout         = 500 * time.Millisecond
	DefaultMaxConsecutiveErrors = 8
	DefaultBackend              = output.BackendOto
)

// Config holds engine configuration
type Config struct {
	// Source is the elementary stream played by Start
	Source decode.Source

	// Backend names the output sink passed to NewSink
	Backend string

	// NewSink builds an output sink; defaults to output.New
	NewSink func(backend string) (output.Sink, error)

	// OpenDecoder opens the source; defaults to decode.Open
	OpenDecoder func(decode.Source, decode.Options) (decode.Decoder, error)

	// BufferMs sizes the ring buffer. Larger values survive longer decode
	// stalls at the cost of latency. Never less than two callback periods.
	BufferMs int

	// PeriodFrames is the output callback size in sample frames
	PeriodFrames int

	// OutputSampleRate forces the device rate; 0 plays at the stream rate
	OutputSampleRate int

	// StopTimeout bounds the wait for the decode worker to exit
	StopTimeout time.Duration

	// PrimeTimeout bounds how long Start waits for the first period of audio
	PrimeTimeout time.Duration

	// MaxConsecutiveErrors is how many corrupt frames in a row are skipped
	MaxConsecutiveErrors int

	Logger *slog.Logger

	// Notifications, invoked one at a time in transition order and never
	// with the control lock held. A control call made from a notification
	// returns before its own notifications are delivered.
	OnStateChange func(State)
	OnComplete    func()
	OnError       func(error)
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.NewSink == nil {
		c.NewSink = output.New
	}
	if c.OpenDecoder == nil {
		c.OpenDecoder = decode.Open
	}
	if c.BufferMs <= 0 {
		c.BufferMs = DefaultBufferMs
	}
	if c.PeriodFrames <= 0 {
		c.PeriodFrames = DefaultPeriodFrames
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.PrimeTimeout <= 0 {
		c.PrimeTimeout = DefaultPrimeTimeout
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OnStateChange == nil {
		c.OnStateChange = func(State) {}
	}
	if c.OnComplete == nil {
		c.OnComplete = func() {}
	}
	if c.OnError == nil {
		c.OnError = func(error) {}
	}
	return c
}
