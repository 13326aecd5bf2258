// ABOUTME: MP3 reader
// ABOUTME: Decodes MP3 files to int32 samples via go-mp3
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit stereo
const mp3Channels = 2

// mp3Reader decodes an MP3 file
type mp3Reader struct {
	file    *os.File
	decoder *mp3.Decoder
	fmt     audio.Format
	buf     []byte
}

func openMP3(path string) (*mp3Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &mp3Reader{
		file:    f,
		decoder: decoder,
		fmt: audio.Format{
			Codec:      CodecMP3,
			SampleRate: decoder.SampleRate(),
			Channels:   mp3Channels,
			BitDepth:   16,
		},
	}, nil
}

func (m *mp3Reader) format() audio.Format {
	return m.fmt
}

func (m *mp3Reader) read(frames int) ([]int32, error) {
	// int16 = 2 bytes per sample
	want := frames * mp3Channels * 2
	if cap(m.buf) < want {
		m.buf = make([]byte, want)
	}
	buf := m.buf[:want]

	n, err := io.ReadFull(m.decoder, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	n -= n % (mp3Channels * 2)
	if n == 0 {
		return nil, io.EOF
	}

	// Convert bytes to int16, then scale to 24-bit range
	numSamples := n / 2
	samples := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return samples, nil
}

func (m *mp3Reader) close() error {
	return m.file.Close()
}
