// ABOUTME: Process-wide engine instance and host entry points
// ABOUTME: Maps start, stop and destroy onto integer result codes for embedding hosts
// Package host exposes the engine the way an embedding application drives
// it: one lazily created engine per process and three calls that return an
// integer status instead of an error.
package host

import (
	"errors"
	"sync"

	"github.com/Resonate-Protocol/audio-engine/pkg/engine"
)

// Result codes returned by the entry points
const (
	CodeOK                 = 0
	CodeInvalidState       = 1
	CodeDecoderInit        = 2
	CodeAudioOutputInit    = 3
	CodeDecode             = 4
	CodeAudioOutputRuntime = 5
	CodeWorkerJoinTimeout  = 6
	CodeUnknown            = 99
)

// ErrAlreadyConstructed is returned by Configure once the engine exists
var ErrAlreadyConstructed = errors.New("engine already constructed")

var (
	mu       sync.Mutex
	config   engine.Config
	instance *engine.Controller
)

// Configure sets the configuration used to build the process engine. It
// must be called before the first entry point.
func Configure(cfg engine.Config) error {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return ErrAlreadyConstructed
	}
	config = cfg
	return nil
}

// Engine returns the process engine, creating it on first use
func Engine() *engine.Controller {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = engine.New(config)
	}
	return instance
}

// StartAudioPlayer starts playback
func StartAudioPlayer() int {
	return Code(Engine().Start())
}

// StopAudioPlayer stops playback
func StopAudioPlayer() int {
	return Code(Engine().Stop())
}

// DestroyEngine releases the engine. The process engine is destroyed
// exactly once; later calls report success.
func DestroyEngine() int {
	return Code(Engine().Destroy())
}

// Status reports the process engine status
func Status() engine.Status {
	return Engine().Status()
}

// Code maps an engine error to its result code
func Code(err error) int {
	if err == nil {
		return CodeOK
	}
	switch engine.KindOf(err) {
	case engine.ErrInvalidState:
		return CodeInvalidState
	case engine.ErrDecoderInit:
		return CodeDecoderInit
	case engine.ErrAudioOutputInit:
		return CodeAudioOutputInit
	case engine.ErrDecode:
		return CodeDecode
	case engine.ErrAudioOutputRuntime:
		return CodeAudioOutputRuntime
	case engine.ErrWorkerJoinTimeout:
		return CodeWorkerJoinTimeout
	default:
		return CodeUnknown
	}
}

// Describe returns a short description of a result code
func Describe(code int) string {
	switch code {
	case CodeOK:
		return "ok"
	case CodeInvalidState:
		return engine.ErrInvalidState.Error()
	case CodeDecoderInit:
		return engine.ErrDecoderInit.Error()
	case CodeAudioOutputInit:
		return engine.ErrAudioOutputInit.Error()
	case CodeDecode:
		return engine.ErrDecode.Error()
	case CodeAudioOutputRuntime:
		return engine.ErrAudioOutputRuntime.Error()
	case CodeWorkerJoinTimeout:
		return engine.ErrWorkerJoinTimeout.Error()
	default:
		return "unknown error"
	}
}

// reset drops the process engine so tests can start over
func reset() {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		instance.Destroy()
	}
	instance = nil
	config = engine.Config{}
}
