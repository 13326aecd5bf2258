// ABOUTME: Ogg Opus reader
// ABOUTME: Decodes Ogg Opus files to int32 samples via libopusfile
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// libopusfile always decodes at 48kHz
const opusSampleRate = 48000

// opusReader decodes an Ogg Opus file
type opusReader struct {
	stream *opus.Stream
	fmt    audio.Format
	pcm    []int16
}

func openOpus(path string) (*opusReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}

	channels, err := opusChannels(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind Opus file: %w", err)
	}

	// The stream closes f on Close
	stream, err := opus.NewStream(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open Opus stream: %w", err)
	}

	return &opusReader{
		stream: stream,
		fmt: audio.Format{
			Codec:      CodecOpus,
			SampleRate: opusSampleRate,
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

// opusChannels reads the channel count from the OpusHead packet, which
// libopusfile does not expose through the Go binding
func opusChannels(r io.Reader) (int, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read Opus header: %w", err)
	}
	head = head[:n]

	idx := bytes.Index(head, []byte("OpusHead"))
	if idx < 0 || idx+9 >= len(head) {
		return 0, fmt.Errorf("%w: no OpusHead packet", ErrUnsupported)
	}
	channels := int(head[idx+9])
	if channels < 1 || channels > 2 {
		return 0, fmt.Errorf("%w: %d channel Opus stream (supported: 1, 2)", ErrUnsupported, channels)
	}
	return channels, nil
}

func (o *opusReader) format() audio.Format {
	return o.fmt
}

func (o *opusReader) read(frames int) ([]int32, error) {
	want := frames * o.fmt.Channels
	if len(o.pcm) != want {
		o.pcm = make([]int16, want)
	}

	n, err := o.stream.Read(o.pcm)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, opus.ErrStreamHole) {
			// A gap in the page sequence; decoding resumes after it
			return nil, &FrameError{Err: err}
		}
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	// Read returns samples per channel
	actualSamples := n * o.fmt.Channels
	samples := make([]int32, actualSamples)
	for i := 0; i < actualSamples; i++ {
		samples[i] = audio.SampleFromInt16(o.pcm[i])
	}
	return samples, nil
}

func (o *opusReader) close() error {
	return o.stream.Close()
}
