// ABOUTME: Ogg Vorbis reader
// ABOUTME: Decodes Ogg Vorbis files to int32 samples via beep's vorbis streamer
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/vorbis"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
)

// vorbisReader decodes an Ogg Vorbis file
type vorbisReader struct {
	streamer beep.StreamSeekCloser
	fmt      audio.Format
	buf      [][2]float64
}

func openVorbis(path string) (*vorbisReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Vorbis file: %w", err)
	}

	// The streamer owns f from here on
	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode Vorbis: %w", err)
	}

	channels := format.NumChannels
	if channels > 2 {
		channels = 2
	}

	return &vorbisReader{
		streamer: streamer,
		fmt: audio.Format{
			Codec:      CodecVorbis,
			SampleRate: int(format.SampleRate),
			Channels:   channels,
			BitDepth:   format.Precision * 8,
		},
	}, nil
}

func (v *vorbisReader) format() audio.Format {
	return v.fmt
}

func (v *vorbisReader) read(frames int) ([]int32, error) {
	if len(v.buf) != frames {
		v.buf = make([][2]float64, frames)
	}

	// beep always streams stereo pairs; mono sources duplicate the channel
	n, ok := v.streamer.Stream(v.buf)
	if !ok || n == 0 {
		if err := v.streamer.Err(); err != nil {
			return nil, fmt.Errorf("vorbis decode failed: %w", err)
		}
		return nil, io.EOF
	}

	channels := v.fmt.Channels
	samples := make([]int32, 0, n*channels)
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			samples = append(samples, audio.SampleFromFloat(v.buf[i][ch]))
		}
	}
	return samples, nil
}

func (v *vorbisReader) close() error {
	return v.streamer.Close()
}
