// ABOUTME: Decoder adapter definition
// ABOUTME: Opens elementary audio sources and exposes a pull interface of PCM frames
package decode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

// Supported codecs
const (
	CodecWAV    = "wav"
	CodecPCM    = "pcm"
	CodecMP3    = "mp3"
	CodecFLAC   = "flac"
	CodecOpus   = "opus"
	CodecVorbis = "vorbis"
)

const (
	defaultFrameSamples         = 1024
	defaultMaxConsecutiveErrors = 8
)

var (
	// ErrUnsupported is returned when no reader exists for the source codec
	ErrUnsupported = errors.New("unsupported audio format")

	// ErrFatal matches every unrecoverable DecodeError
	ErrFatal = errors.New("unrecoverable decode error")

	// ErrClosed is returned by Next after Close
	ErrClosed = errors.New("decoder closed")
)

// Source identifies an elementary audio stream
type Source struct {
	Path string

	// Codec overrides detection by file extension
	Codec string

	// Format is required for raw PCM, which carries no header
	Format audio.Format
}

// Resolve returns the codec of the source
func (s Source) Resolve() (string, error) {
	if s.Codec != "" {
		return strings.ToLower(s.Codec), nil
	}
	switch ext := strings.ToLower(filepath.Ext(s.Path)); ext {
	case ".wav", ".wave":
		return CodecWAV, nil
	case ".pcm", ".raw":
		return CodecPCM, nil
	case ".mp3":
		return CodecMP3, nil
	case ".flac":
		return CodecFLAC, nil
	case ".opus":
		return CodecOpus, nil
	case ".ogg", ".oga":
		return CodecVorbis, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: .wav, .pcm, .mp3, .flac, .opus, .ogg)", ErrUnsupported, ext)
	}
}

func (s Source) String() string {
	return s.Path
}

// Options tune decoding
type Options struct {
	// FrameSamples is the number of sample frames per decoded Frame for
	// codecs that do not have a natural frame size
	FrameSamples int

	// MaxConsecutiveErrors is how many corrupt frames in a row are skipped
	// before the stream is declared unrecoverable
	MaxConsecutiveErrors int

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.FrameSamples <= 0 {
		o.FrameSamples = defaultFrameSamples
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = defaultMaxConsecutiveErrors
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Decoder pulls decoded PCM frames from an open source
type Decoder interface {
	// Format describes the decoded stream
	Format() audio.Format

	// Next returns the next frame, or nil at end of stream
	Next() (*audio.Frame, error)

	// Skipped returns the number of corrupt frames dropped so far
	Skipped() int64

	// Close releases decoder resources; safe to call more than once
	Close() error
}

// FrameError marks a single corrupt frame the stream can continue past
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("corrupt frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// DecodeError is a fatal mid-stream decode failure
type DecodeError struct {
	Codec    string
	Position int64 // sample frames decoded before the failure
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode failed at frame %d: %v", e.Codec, e.Position, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports ErrFatal for every DecodeError
func (e *DecodeError) Is(target error) bool {
	return target == ErrFatal
}

// frameReader is implemented by each codec. read returns interleaved
// samples, io.EOF at end of stream, a *FrameError for a skippable frame,
// or any other error when the stream cannot continue.
type frameReader interface {
	format() audio.Format
	read(frames int) ([]int32, error)
	close() error
}

// Open opens src and returns a decoder positioned at the first frame
func Open(src Source, opts Options) (Decoder, error) {
	opts = opts.withDefaults()

	codec, err := src.Resolve()
	if err != nil {
		return nil, err
	}

	var r frameReader
	switch codec {
	case CodecWAV:
		r, err = openWAV(src.Path)
	case CodecPCM:
		r, err = openPCM(src.Path, src.Format)
	case CodecMP3:
		r, err = openMP3(src.Path)
	case CodecFLAC:
		r, err = openFLAC(src.Path)
	case CodecOpus:
		r, err = openOpus(src.Path)
	case CodecVorbis:
		r, err = openVorbis(src.Path)
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupported, codec)
	}
	if err != nil {
		return nil, err
	}

	format := r.format()
	if format.SampleRate <= 0 || format.Channels <= 0 {
		r.close()
		return nil, fmt.Errorf("%w: %s stream reports %dHz %dch", ErrUnsupported, codec, format.SampleRate, format.Channels)
	}

	opts.Logger.Info("Opened source",
		"path", src.Path,
		"codec", format.Codec,
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"bit_depth", format.BitDepth)

	return newStream(r, opts), nil
}

// stream adapts a frameReader to the Decoder contract
type stream struct {
	r    frameReader
	fmt  audio.Format
	opts Options
	log  *slog.Logger

	position    int64
	consecutive int
	eof         bool
	skipped     atomic.Int64

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

func newStream(r frameReader, opts Options) *stream {
	format := r.format()
	return &stream{
		r:    r,
		fmt:  format,
		opts: opts,
		log:  opts.Logger.With("codec", format.Codec),
	}
}

func (s *stream) Format() audio.Format {
	return s.fmt
}

func (s *stream) Skipped() int64 {
	return s.skipped.Load()
}

func (s *stream) Next() (*audio.Frame, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.eof {
		return nil, nil
	}

	for {
		samples, err := s.r.read(s.opts.FrameSamples)
		if err == nil {
			if len(samples) == 0 {
				continue
			}
			s.consecutive = 0
			frame := &audio.Frame{
				Timestamp: s.position * 1_000_000 / int64(s.fmt.SampleRate),
				Samples:   samples,
				Format:    s.fmt,
			}
			s.position += int64(len(samples) / s.fmt.Channels)
			return frame, nil
		}

		if errors.Is(err, io.EOF) {
			s.eof = true
			s.log.Debug("End of stream", "frames", s.position, "skipped", s.skipped.Load())
			return nil, nil
		}

		var frameErr *FrameError
		if !errors.As(err, &frameErr) {
			return nil, &DecodeError{Codec: s.fmt.Codec, Position: s.position, Err: err}
		}

		s.skipped.Add(1)
		s.consecutive++
		s.log.Warn("Skipping corrupt frame", "error", err, "position", s.position, "consecutive", s.consecutive)
		if s.consecutive > s.opts.MaxConsecutiveErrors {
			return nil, &DecodeError{
				Codec:    s.fmt.Codec,
				Position: s.position,
				Err:      fmt.Errorf("%d consecutive corrupt frames: %w", s.consecutive, err),
			}
		}
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.r.close()
	})
	return s.closeErr
}
