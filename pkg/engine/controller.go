// ABOUTME: Engine controller owning the playback lifecycle
// ABOUTME: Serializes start, stop and destroy and supervises the worker and sink of each session
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/output"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/resample"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/ringbuf"
)

const primePoll = 2 * time.Millisecond

// Worker exit handshake values
const (
	workerRunning int32 = iota
	workerExited
	workerAbandoned
)

// Status is a point-in-time snapshot of a controller
type Status struct {
	EngineID        string       `json:"engine_id"`
	State           State        `json:"state"`
	Format          audio.Format `json:"format"`
	BufferedSamples int          `json:"buffered_samples"`
	BufferCapacity  int          `json:"buffer_capacity"`
	Underruns       uint64       `json:"underruns"`
	Contentions     uint64       `json:"contentions"`
	FramesDecoded   int64        `json:"frames_decoded"`
	FramesSkipped   int64        `json:"frames_skipped"`
	LastError       string       `json:"last_error,omitempty"`
}

// session is one Playing period: a worker, a sink and their supervisor
type session struct {
	quit       chan struct{}
	workerDone chan struct{}
	supDone    chan struct{}
	sinkErr    chan error
	announced  chan struct{} // closed once Start has posted StatePlaying

	result workerResult // valid once workerDone is closed
	exited atomic.Int32

	dec  decode.Decoder
	ring *ringbuf.Ring
	sink output.Sink
}

func (s *session) reportSinkError(err error) {
	select {
	case s.sinkErr <- err:
	default:
	}
}

// Controller drives one decoder, ring buffer and output sink through the
// engine lifecycle. All methods are safe for concurrent use; control calls
// are serialized.
type Controller struct {
	cfg Config
	id  string
	log *slog.Logger

	mu      sync.Mutex
	state   atomic.Int32
	decoder decode.Decoder
	ring    *ringbuf.Ring
	sess    *session
	format  audio.Format
	pending error // returned by the next Stop after an automatic stop
	lastErr error
	notify  notifier

	decoded        atomic.Int64
	skippedBase    int64
	underrunBase   uint64
	contentionBase uint64
}

// New creates a controller. Nothing is opened until Start.
func New(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &Controller{
		cfg: cfg,
		id:  id,
		log: cfg.Logger.With("component", "engine", "engine_id", id),
	}
}

// ID returns the engine instance id
func (c *Controller) ID() string {
	return c.id
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Start opens the source and output and begins playback from the start of
// the source. It is a no-op while Playing. On failure everything opened by
// this call is released and the state is unchanged.
func (c *Controller) Start() error {
	c.mu.Lock()
	err := c.start()
	c.mu.Unlock()

	c.notify.flush()
	return err
}

func (c *Controller) start() error {
	prev := c.State()
	switch prev {
	case StatePlaying:
		return nil
	case StateUninitialized, StateStopped:
	default:
		return newError("start", prev, ErrInvalidState, nil)
	}

	c.setState(StateInitialized)
	s, err := c.startSession(prev)
	if err != nil {
		c.setState(prev)
		c.lastErr = err
		c.log.Error("Start failed", "error", err)
		return err
	}

	c.sess = s
	c.pending = nil
	c.setState(StatePlaying)
	c.notify.post(func() {
		c.cfg.OnStateChange(StatePlaying)
		close(s.announced)
	})
	go c.supervise(s)

	c.log.Info("Playback started",
		"source", c.cfg.Source.String(),
		"format", c.format.String(),
		"buffer_samples", s.ring.Cap(),
		"period_frames", c.cfg.PeriodFrames)
	return nil
}

func (c *Controller) startSession(prev State) (*session, error) {
	openedDecoder := false
	if c.decoder == nil {
		dec, err := c.cfg.OpenDecoder(c.cfg.Source, decode.Options{
			MaxConsecutiveErrors: c.cfg.MaxConsecutiveErrors,
			Logger:               c.log,
		})
		if err != nil {
			return nil, newError("start", prev, ErrDecoderInit, err)
		}
		c.decoder = dec
		openedDecoder = true
	}
	release := func() {
		if openedDecoder {
			c.closeDecoder()
		}
	}

	in := c.decoder.Format()
	out, err := c.outputFormat(in)
	if err != nil {
		release()
		return nil, newError("start", prev, ErrDecoderInit, err)
	}

	period := c.cfg.PeriodFrames * out.Channels
	capacity := max(out.SamplesFor(time.Duration(c.cfg.BufferMs)*time.Millisecond), 2*period)
	c.prepareRing(capacity)

	sink, err := c.cfg.NewSink(c.cfg.Backend)
	if err != nil {
		release()
		return nil, newError("start", prev, ErrAudioOutputInit, err)
	}

	s := &session{
		quit:       make(chan struct{}),
		workerDone: make(chan struct{}),
		supDone:    make(chan struct{}),
		sinkErr:    make(chan error, 1),
		announced:  make(chan struct{}),
		dec:        c.decoder,
		ring:       c.ring,
		sink:       sink,
	}

	w := &worker{
		dec:     s.dec,
		ring:    s.ring,
		quit:    s.quit,
		decoded: &c.decoded,
		log:     c.log.With("component", "worker"),
	}
	if out.SampleRate != in.SampleRate {
		w.resampler = resample.New(in.SampleRate, out.SampleRate, in.Channels)
		c.log.Debug("Resampling", "from", in.SampleRate, "to", out.SampleRate)
	}

	go func() {
		res := w.run()
		s.result = res
		if !s.exited.CompareAndSwap(workerRunning, workerExited) {
			// The controller stopped waiting; the decoder is ours to release
			s.dec.Close()
		}
		close(s.workerDone)
	}()

	c.prime(s, period)

	ring := s.ring
	err = sink.Open(output.Config{
		Format:       out,
		PeriodFrames: c.cfg.PeriodFrames,
		Callback:     func(buf []int32) { ring.Pull(buf) },
		OnError:      s.reportSinkError,
		Logger:       c.log.With("component", "output"),
	})
	if err != nil {
		c.teardown(s)
		release()
		return nil, newError("start", prev, ErrAudioOutputInit, err)
	}

	c.format = out
	return s, nil
}

// outputFormat derives the device format from the decoded stream
func (c *Controller) outputFormat(in audio.Format) (audio.Format, error) {
	out := in
	if c.cfg.OutputSampleRate > 0 {
		out.SampleRate = c.cfg.OutputSampleRate
	}
	switch {
	case in.BitDepth <= 16:
		out.BitDepth = 16
	case in.BitDepth <= 24:
		out.BitDepth = 24
	default:
		out.BitDepth = 32
	}
	return out, out.Validate()
}

// prime waits for one callback period of audio so the first pulls do not underrun
func (c *Controller) prime(s *session, period int) {
	deadline := time.NewTimer(c.cfg.PrimeTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(primePoll)
	defer ticker.Stop()

	for s.ring.Len() < period {
		select {
		case <-s.workerDone:
			return
		case <-deadline.C:
			c.log.Warn("Buffer not primed before timeout", "buffered", s.ring.Len(), "period", period)
			return
		case <-ticker.C:
		}
	}
}

// prepareRing empties the ring for a new session, reallocating only when
// the capacity changed
func (c *Controller) prepareRing(capacity int) {
	if c.ring != nil && c.ring.Cap() == capacity {
		c.ring.Reset()
		return
	}
	c.retireRing()
	c.ring = ringbuf.New(capacity)
}

// retireRing drops the ring, keeping its counters
func (c *Controller) retireRing() {
	if c.ring == nil {
		return
	}
	c.underrunBase += c.ring.Underruns()
	c.contentionBase += c.ring.Contentions()
	c.ring = nil
}

func (c *Controller) closeDecoder() {
	if c.decoder == nil {
		return
	}
	c.skippedBase += c.decoder.Skipped()
	if err := c.decoder.Close(); err != nil {
		c.log.Warn("Decoder close error", "error", err)
	}
	c.decoder = nil
}

// teardown stops a session's worker and sink, in that order, then empties
// the ring and closes the decoder. Audio still buffered is dropped, so the
// next Start reopens the source from the beginning. Must hold c.mu.
func (c *Controller) teardown(s *session) error {
	close(s.quit)
	s.ring.Close()

	joinErr := c.join(s)

	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			c.log.Warn("Output close error", "error", err)
		}
	}

	if joinErr != nil {
		// The stuck worker may still push; never hand its ring to another session
		if c.ring == s.ring {
			c.retireRing()
		}
		return joinErr
	}

	s.ring.Reset()
	c.closeDecoder()
	return nil
}

// join waits up to StopTimeout for the worker. On timeout the worker is
// abandoned together with its decoder, which it closes when it returns.
func (c *Controller) join(s *session) error {
	timer := time.NewTimer(c.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-s.workerDone:
		return nil
	case <-timer.C:
	}

	if !s.exited.CompareAndSwap(workerRunning, workerAbandoned) {
		<-s.workerDone
		return nil
	}

	c.log.Error("Decode worker did not stop in time", "timeout", c.cfg.StopTimeout)
	if c.decoder == s.dec {
		c.skippedBase += c.decoder.Skipped()
		c.decoder = nil
	}
	return ErrWorkerJoinTimeout
}

// Stop ends playback. It is a no-op while Stopped, except that the error
// behind an automatic stop is returned once.
func (c *Controller) Stop() error {
	c.mu.Lock()
	s, err := c.stop()
	c.mu.Unlock()

	if s != nil {
		<-s.supDone
	}
	c.notify.flush()
	return err
}

func (c *Controller) stop() (*session, error) {
	state := c.State()
	switch state {
	case StateStopped:
		err := c.pending
		c.pending = nil
		return nil, err
	case StatePlaying:
	default:
		return nil, newError("stop", state, ErrInvalidState, nil)
	}

	s := c.sess
	c.sess = nil
	joinErr := c.teardown(s)
	c.setState(StateStopped)
	c.notify.post(func() { c.cfg.OnStateChange(StateStopped) })
	c.logSessionEnd(slog.LevelInfo, "Playback stopped")

	if joinErr != nil {
		err := newError("stop", state, ErrWorkerJoinTimeout, nil)
		c.lastErr = err
		return s, err
	}
	return s, nil
}

// Destroy stops playback if needed and releases every resource. The
// controller cannot be used afterwards; repeated calls return nil.
func (c *Controller) Destroy() error {
	c.mu.Lock()
	s, err := c.destroy()
	c.mu.Unlock()

	if s != nil {
		<-s.supDone
	}
	c.notify.flush()
	return err
}

func (c *Controller) destroy() (*session, error) {
	state := c.State()
	if state == StateDestroyed {
		return nil, nil
	}

	var s *session
	var err error
	if state == StatePlaying {
		s = c.sess
		c.sess = nil
		if joinErr := c.teardown(s); joinErr != nil {
			err = newError("destroy", state, ErrWorkerJoinTimeout, nil)
			c.lastErr = err
		}
		c.logSessionEnd(slog.LevelInfo, "Playback stopped")
	}

	c.closeDecoder()
	c.retireRing()
	c.pending = nil
	c.setState(StateDestroyed)
	c.notify.post(func() { c.cfg.OnStateChange(StateDestroyed) })
	c.log.Info("Engine destroyed")
	return s, err
}

// supervise turns worker and sink events of one session into an automatic stop
func (c *Controller) supervise(s *session) {
	defer close(s.supDone)

	var cause error
	select {
	case <-s.quit:
		return
	case err := <-s.sinkErr:
		cause = newError("playback", StatePlaying, ErrAudioOutputRuntime, err)
	case <-s.workerDone:
		switch s.result.outcome {
		case outcomeFailed:
			cause = newError("playback", StatePlaying, ErrDecode, s.result.err)
		case outcomeEndOfStream:
			// Let the sink play out what is buffered
			select {
			case <-s.quit:
				return
			case err := <-s.sinkErr:
				cause = newError("playback", StatePlaying, ErrAudioOutputRuntime, err)
			case <-s.ring.Drained():
			}
		default:
			return
		}
	}

	// StatePlaying goes out before the Stopped that follows it
	select {
	case <-s.announced:
	case <-s.quit:
		return
	}

	c.finish(s, cause)
}

// finish performs the automatic stop for s unless a control call got there first
func (c *Controller) finish(s *session, cause error) {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	c.sess = nil
	if joinErr := c.teardown(s); joinErr != nil {
		// The worker is gone for good; report that over the original cause
		cause = newError("playback", StatePlaying, ErrWorkerJoinTimeout, cause)
	}
	c.setState(StateStopped)
	c.notify.post(func() { c.cfg.OnStateChange(StateStopped) })
	if cause != nil {
		c.pending = cause
		c.lastErr = cause
		c.notify.post(func() { c.cfg.OnError(cause) })
		c.logSessionEnd(slog.LevelError, "Playback failed", "error", cause)
	} else {
		c.notify.post(c.cfg.OnComplete)
		c.logSessionEnd(slog.LevelInfo, "Playback complete")
	}
	c.mu.Unlock()

	c.notify.flush()
}

// logSessionEnd must hold c.mu
func (c *Controller) logSessionEnd(level slog.Level, msg string, args ...any) {
	st := c.status()
	args = append(args,
		"frames_decoded", st.FramesDecoded,
		"frames_skipped", st.FramesSkipped,
		"underruns", st.Underruns,
		"contentions", st.Contentions)
	c.log.Log(context.Background(), level, msg, args...)
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

func (c *Controller) status() Status {
	st := Status{
		EngineID:      c.id,
		State:         c.State(),
		Format:        c.format,
		FramesDecoded: c.decoded.Load(),
		FramesSkipped: c.skippedBase,
		Underruns:     c.underrunBase,
		Contentions:   c.contentionBase,
	}
	if c.decoder != nil {
		st.FramesSkipped += c.decoder.Skipped()
	}
	if c.ring != nil {
		st.BufferedSamples = c.ring.Len()
		st.BufferCapacity = c.ring.Cap()
		st.Underruns += c.ring.Underruns()
		st.Contentions += c.ring.Contentions()
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}
