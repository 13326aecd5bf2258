// ABOUTME: Decode worker
// ABOUTME: Pulls frames from the decoder and pushes them into the ring until stopped or finished
package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/resample"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/ringbuf"
)

// workerOutcome says why the worker loop exited
type workerOutcome int

const (
	outcomeStopped workerOutcome = iota
	outcomeEndOfStream
	outcomeFailed
)

type workerResult struct {
	outcome workerOutcome
	err     error
}

// worker feeds one session's ring. It never touches engine state; the
// session supervisor turns its result into a transition.
type worker struct {
	dec       decode.Decoder
	ring      *ringbuf.Ring
	resampler *resample.Resampler // nil when playing at the stream rate
	quit      <-chan struct{}
	decoded   *atomic.Int64
	log       *slog.Logger
}

func (w *worker) run() workerResult {
	var scratch []int32

	for {
		select {
		case <-w.quit:
			return workerResult{outcome: outcomeStopped}
		default:
		}

		frame, err := w.dec.Next()
		if err != nil {
			w.log.Error("Decode failed", "error", err)
			return workerResult{outcome: outcomeFailed, err: err}
		}
		if frame == nil {
			w.ring.CloseWrite()
			w.log.Debug("Decoder reached end of stream", "frames", w.decoded.Load())
			return workerResult{outcome: outcomeEndOfStream}
		}

		samples := frame.Samples
		if w.resampler != nil {
			scratch = w.resampler.Process(scratch[:0], samples)
			samples = scratch
		}

		if err := w.ring.Push(samples); err != nil {
			// Ring closed by stop
			return workerResult{outcome: outcomeStopped}
		}
		w.decoded.Add(int64(frame.FrameCount()))
	}
}
