// ABOUTME: Raw PCM reader
// ABOUTME: Reads headerless 16, 24 and 32-bit little-endian PCM into int32 samples
package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

// pcmReader reads raw interleaved PCM
type pcmReader struct {
	file     *os.File
	r        *bufio.Reader
	fmt      audio.Format
	bitDepth int
	buf      []byte
}

func openPCM(path string, format audio.Format) (*pcmReader, error) {
	switch format.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: raw PCM bit depth %d (supported: 16, 24, 32)", ErrUnsupported, format.BitDepth)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("raw PCM source needs sample rate and channels, got %dHz %dch", format.SampleRate, format.Channels)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM file: %w", err)
	}

	format.Codec = CodecPCM
	return &pcmReader{
		file:     f,
		r:        bufio.NewReader(f),
		fmt:      format,
		bitDepth: format.BitDepth,
	}, nil
}

func (p *pcmReader) format() audio.Format {
	return p.fmt
}

func (p *pcmReader) read(frames int) ([]int32, error) {
	bytesPerSample := p.bitDepth / 8
	want := frames * p.fmt.Channels * bytesPerSample
	if cap(p.buf) < want {
		p.buf = make([]byte, want)
	}
	buf := p.buf[:want]

	n, err := io.ReadFull(p.r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("pcm read failed: %w", err)
	}

	// Drop a trailing partial sample frame
	frameBytes := p.fmt.Channels * bytesPerSample
	n -= n % frameBytes
	if n == 0 {
		return nil, io.EOF
	}

	numSamples := n / bytesPerSample
	samples := make([]int32, numSamples)
	switch p.bitDepth {
	case 32:
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromDepth(int32(binary.LittleEndian.Uint32(buf[i*4:])), 32)
		}
	case 24:
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFrom24Bit([3]byte{buf[i*3], buf[i*3+1], buf[i*3+2]})
		}
	default:
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
		}
	}
	return samples, nil
}

func (p *pcmReader) close() error {
	return p.file.Close()
}
