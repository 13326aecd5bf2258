// ABOUTME: Malgo-based audio output sink with 24-bit support
// ABOUTME: Uses miniaudio via malgo; the device data callback drives the sink callback
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

// errDeviceStopped is reported when miniaudio stops the device on its own
var errDeviceStopped = errors.New("playback device stopped unexpectedly")

// Malgo output sink using malgo/miniaudio
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	log      *slog.Logger

	callback Callback
	onError  func(error)
	channels int
	bitDepth int
	scratch  []int32

	closing  atomic.Bool
	reported atomic.Bool
}

// NewMalgo creates a new Malgo sink
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Open initializes and starts the playback device
func (m *Malgo) Open(cfg Config) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo sink already open")
	}

	// Map bit depth to malgo format
	var format malgo.FormatType
	switch cfg.Format.BitDepth {
	case 16:
		format = malgo.FormatS16
	case 24:
		format = malgo.FormatS24
	case 32:
		format = malgo.FormatS32
	default:
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", cfg.Format.BitDepth)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m.log = cfg.Logger
	m.callback = cfg.Callback
	m.onError = cfg.OnError
	m.channels = cfg.Format.Channels
	m.bitDepth = cfg.Format.BitDepth
	m.scratch = make([]int32, cfg.PeriodFrames*cfg.Format.Channels)
	m.closing.Store(false)
	m.reported.Store(false)

	// Configure device
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			m.dataCallback(pOutput, frameCount)
		},
		Stop: m.stopCallback,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		freeContext(ctx, cfg.Logger)
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		m.closing.Store(true)
		device.Uninit()
		freeContext(ctx, cfg.Logger)
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.malgoCtx = ctx
	m.device = device

	cfg.Logger.Info("Audio output initialized",
		"backend", BackendMalgo,
		"sample_rate", cfg.Format.SampleRate,
		"channels", cfg.Format.Channels,
		"format", formatName(format),
		"period_frames", cfg.PeriodFrames)
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	totalSamples := int(frameCount) * m.channels
	if cap(m.scratch) < totalSamples {
		// miniaudio may exceed the requested period on some backends
		m.scratch = make([]int32, totalSamples)
	}
	samples := m.scratch[:totalSamples]

	if m.closing.Load() {
		clear(samples)
	} else {
		m.callback(samples)
	}

	// Convert int32 to output format
	switch m.bitDepth {
	case 16:
		write16Bit(pOutput, samples)
	case 24:
		write24Bit(pOutput, samples)
	case 32:
		write32Bit(pOutput, samples)
	}
}

// stopCallback fires whenever the device stops, including our own Stop
func (m *Malgo) stopCallback() {
	if m.closing.Load() || !m.reported.CompareAndSwap(false, true) {
		return
	}
	m.log.Error("Playback device stopped")
	// Reported off the audio thread so the handler may close the sink
	go m.onError(errDeviceStopped)
}

// write16Bit converts int32 samples to 16-bit output
func write16Bit(output []byte, samples []int32) {
	for i, sample := range samples {
		sample16 := audio.SampleToInt16(sample)
		output[i*2] = byte(sample16)
		output[i*2+1] = byte(sample16 >> 8)
	}
}

// write24Bit converts int32 samples to 24-bit output (3 bytes per sample)
func write24Bit(output []byte, samples []int32) {
	for i, sample := range samples {
		b := audio.SampleTo24Bit(sample)
		copy(output[i*3:], b[:])
	}
}

// write32Bit converts int32 samples to 32-bit output
func write32Bit(output []byte, samples []int32) {
	for i, sample := range samples {
		// Shift the 24-bit value to the upper bits of the 32-bit container
		sample32 := sample << 8
		output[i*4] = byte(sample32)
		output[i*4+1] = byte(sample32 >> 8)
		output[i*4+2] = byte(sample32 >> 16)
		output[i*4+3] = byte(sample32 >> 24)
	}
}

// Close stops the device and releases the malgo context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}

	m.closing.Store(true)
	var err error
	if serr := m.device.Stop(); serr != nil {
		err = fmt.Errorf("failed to stop device: %w", serr)
	}
	m.device.Uninit()
	m.device = nil

	freeContext(m.malgoCtx, m.log)
	m.malgoCtx = nil
	return err
}

func freeContext(ctx *malgo.AllocatedContext, log *slog.Logger) {
	if err := ctx.Uninit(); err != nil {
		log.Warn("malgo context uninit error", "error", err)
	}
	ctx.Free()
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
