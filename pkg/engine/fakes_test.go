// ABOUTME: Test doubles for the engine
// ABOUTME: Resource-tracking fake decoder and sink plus a controller builder
package engine

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/audio-engine/internal/logger"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/output"
)

// tracker counts live resources across every fake a test creates
type tracker struct {
	decoders   atomic.Int32
	sinks      atomic.Int32
	opens      atomic.Int32
	sinkOpens  atomic.Int32
	sinkCloses atomic.Int32
}

type fakeDecoder struct {
	tr           *tracker
	format       audio.Format
	frames       int // -1 never ends
	frameSamples int
	failAt       int // -1 never fails
	block        chan struct{}

	n       int
	skipped atomic.Int64
	closed  atomic.Bool
}

func (d *fakeDecoder) Format() audio.Format { return d.format }

func (d *fakeDecoder) Skipped() int64 { return d.skipped.Load() }

func (d *fakeDecoder) Next() (*audio.Frame, error) {
	if d.closed.Load() {
		return nil, decode.ErrClosed
	}
	if d.block != nil {
		<-d.block
	}
	if d.failAt >= 0 && d.n == d.failAt {
		return nil, &decode.DecodeError{Codec: "fake", Position: int64(d.n), Err: errors.New("bitstream corrupt")}
	}
	if d.frames >= 0 && d.n >= d.frames {
		return nil, nil
	}
	d.n++

	samples := make([]int32, d.frameSamples*d.format.Channels)
	for i := range samples {
		samples[i] = int32(d.n)
	}
	return &audio.Frame{Samples: samples, Format: d.format}, nil
}

func (d *fakeDecoder) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		d.tr.decoders.Add(-1)
	}
	return nil
}

type fakeSink struct {
	tr      *tracker
	openErr error
	pull    bool
	record  *recorder

	mu   sync.Mutex
	cfg  output.Config
	done chan struct{}
	wg   sync.WaitGroup
}

func (s *fakeSink) Open(cfg output.Config) error {
	if s.openErr != nil {
		return s.openErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.done = make(chan struct{})
	s.tr.sinks.Add(1)
	s.tr.sinkOpens.Add(1)

	if s.pull {
		buf := make([]int32, cfg.PeriodFrames*cfg.Format.Channels)
		done := s.done
		rec := s.record
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					cfg.Callback(buf)
					if rec != nil {
						rec.add(buf)
					}
				}
			}
		}()
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	s.done = nil
	s.tr.sinks.Add(-1)
	s.tr.sinkCloses.Add(1)
	return nil
}

// fail simulates a device failure during playback
func (s *fakeSink) fail(err error) {
	s.mu.Lock()
	onError := s.cfg.OnError
	s.mu.Unlock()
	onError(err)
}

// recorder keeps every non-silent sample a sink pulled, in order
type recorder struct {
	mu  sync.Mutex
	got []int32
}

func (r *recorder) add(buf []int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range buf {
		if v != 0 {
			r.got = append(r.got, v)
		}
	}
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func (r *recorder) samples() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.got)
}

// harness builds controllers wired to fakes
type harness struct {
	tr *tracker

	format       audio.Format
	frames       int
	frameSamples int
	failAt       int
	block        chan struct{}
	openErr      error
	sinkOpenErr  error
	sinkPulls    bool
	record       *recorder

	mu       sync.Mutex
	lastSink *fakeSink

	complete chan struct{}
	errs     chan error
}

func newHarness() *harness {
	return &harness{
		tr:           &tracker{},
		format:       audio.Format{Codec: "fake", SampleRate: 48000, Channels: 1, BitDepth: 16},
		frames:       -1,
		frameSamples: 480,
		failAt:       -1,
		sinkPulls:    true,
		complete:     make(chan struct{}, 8),
		errs:         make(chan error, 8),
	}
}

func (h *harness) config() Config {
	return Config{
		Source:       decode.Source{Path: "fake.pcm"},
		Backend:      "fake",
		BufferMs:     200,
		PeriodFrames: 480,
		StopTimeout:  time.Second,
		PrimeTimeout: 100 * time.Millisecond,
		Logger:       logger.NewTestLogger(),
		OpenDecoder: func(decode.Source, decode.Options) (decode.Decoder, error) {
			if h.openErr != nil {
				return nil, h.openErr
			}
			h.tr.decoders.Add(1)
			h.tr.opens.Add(1)
			return &fakeDecoder{
				tr:           h.tr,
				format:       h.format,
				frames:       h.frames,
				frameSamples: h.frameSamples,
				failAt:       h.failAt,
				block:        h.block,
			}, nil
		},
		NewSink: func(string) (output.Sink, error) {
			s := &fakeSink{tr: h.tr, openErr: h.sinkOpenErr, pull: h.sinkPulls, record: h.record}
			h.mu.Lock()
			h.lastSink = s
			h.mu.Unlock()
			return s, nil
		},
		OnComplete: func() { h.complete <- struct{}{} },
		OnError:    func(err error) { h.errs <- err },
	}
}

func (h *harness) sink() *fakeSink {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSink
}

func (h *harness) controller(t *testing.T) *Controller {
	t.Helper()
	return New(h.config())
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}
