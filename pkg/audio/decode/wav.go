// ABOUTME: WAV reader
// ABOUTME: Decodes RIFF/WAVE PCM files via go-audio/wav
package decode

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

// wavReader reads PCM from a WAV container
type wavReader struct {
	file    *os.File
	decoder *wav.Decoder
	fmt     audio.Format
	buf     *goaudio.IntBuffer
}

func openWAV(path string) (*wavReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: not a valid WAV file: %s", ErrUnsupported, path)
	}
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to locate WAV data chunk: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		f.Close()
		return nil, fmt.Errorf("%w: WAV bit depth %d", ErrUnsupported, bitDepth)
	}

	return &wavReader{
		file:    f,
		decoder: decoder,
		fmt: audio.Format{
			Codec:      CodecWAV,
			SampleRate: int(decoder.SampleRate),
			Channels:   int(decoder.NumChans),
			BitDepth:   bitDepth,
		},
	}, nil
}

func (w *wavReader) format() audio.Format {
	return w.fmt
}

func (w *wavReader) read(frames int) ([]int32, error) {
	want := frames * w.fmt.Channels
	if w.buf == nil || len(w.buf.Data) != want {
		w.buf = &goaudio.IntBuffer{Data: make([]int, want)}
	}

	n, err := w.decoder.PCMBuffer(w.buf)
	if err != nil {
		return nil, fmt.Errorf("wav read failed: %w", err)
	}
	n -= n % w.fmt.Channels
	if n <= 0 {
		return nil, io.EOF
	}

	samples := make([]int32, n)
	for i := 0; i < n; i++ {
		v := int32(w.buf.Data[i])
		if w.fmt.BitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = audio.SampleFromDepth(v, w.fmt.BitDepth)
	}
	return samples, nil
}

func (w *wavReader) close() error {
	return w.file.Close()
}
