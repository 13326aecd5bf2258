// ABOUTME: Oto-based audio output sink
// ABOUTME: Feeds oto's mixer from the sink callback through a pull-style io.Reader
package output

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

const otoErrorPoll = 50 * time.Millisecond

// oto only allows one context per process, so it is shared by every sink
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func sharedOtoContext(rate, channels int, bufferSize time.Duration, log *slog.Logger) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != rate || otoChannels != channels {
			return nil, fmt.Errorf("oto context already running at %dHz %dch, cannot switch to %dHz %dch",
				otoRate, otoChannels, rate, channels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoRate = rate
	otoChannels = channels
	log.Debug("Created oto context", "sample_rate", rate, "channels", channels, "buffer", bufferSize)
	return ctx, nil
}

// Oto output sink using the oto library (16-bit only)
type Oto struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	reader *otoReader
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewOto creates a new Oto sink
func NewOto() *Oto {
	return &Oto{}
}

// Open starts playback through the shared oto context
func (o *Oto) Open(cfg Config) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto sink already open")
	}

	if cfg.Format.BitDepth != 16 {
		cfg.Logger.Debug("oto only supports 16-bit output, downconverting", "bit_depth", cfg.Format.BitDepth)
	}

	period := time.Duration(cfg.PeriodFrames) * time.Second / time.Duration(cfg.Format.SampleRate)
	ctx, err := sharedOtoContext(cfg.Format.SampleRate, cfg.Format.Channels, period, cfg.Logger)
	if err != nil {
		return err
	}
	if err := ctx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	reader := &otoReader{
		callback: cfg.Callback,
		channels: cfg.Format.Channels,
		scratch:  make([]int32, cfg.PeriodFrames*cfg.Format.Channels),
	}
	player := ctx.NewPlayer(reader)
	player.SetBufferSize(cfg.PeriodFrames * cfg.Format.Channels * 2)
	player.Play()

	o.ctx = ctx
	o.player = player
	o.reader = reader
	o.done = make(chan struct{})

	o.wg.Add(1)
	go o.monitor(player, o.done, cfg.OnError)

	cfg.Logger.Info("Audio output initialized",
		"backend", BackendOto,
		"sample_rate", cfg.Format.SampleRate,
		"channels", cfg.Format.Channels,
		"period_frames", cfg.PeriodFrames)
	return nil
}

// monitor reports the first player or driver error
func (o *Oto) monitor(player *oto.Player, done <-chan struct{}, onError func(error)) {
	defer o.wg.Done()

	ticker := time.NewTicker(otoErrorPoll)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := player.Err(); err != nil {
				onError(fmt.Errorf("oto player: %w", err))
				return
			}
			if err := o.ctx.Err(); err != nil {
				onError(fmt.Errorf("oto context: %w", err))
				return
			}
		}
	}
}

// Close stops the player and suspends the shared context
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}

	close(o.done)
	o.wg.Wait()

	o.reader.closed.Store(true)
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	o.reader = nil

	if serr := o.ctx.Suspend(); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}

// otoReader converts callback output to 16-bit little-endian bytes
type otoReader struct {
	callback Callback
	channels int
	scratch  []int32
	closed   atomic.Bool
}

func (r *otoReader) Read(p []byte) (int, error) {
	frames := len(p) / (2 * r.channels)
	if frames == 0 {
		return 0, nil
	}
	n := frames * r.channels
	if cap(r.scratch) < n {
		r.scratch = make([]int32, n)
	}
	samples := r.scratch[:n]

	if r.closed.Load() {
		clear(samples)
	} else {
		r.callback(samples)
	}

	for i, s := range samples {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return n * 2, nil
}
