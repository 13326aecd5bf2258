// ABOUTME: FLAC reader
// ABOUTME: Decodes FLAC frames to int32 samples via mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"github.com/mewkiz/flac"
)

// flacReader decodes a FLAC file frame by frame
type flacReader struct {
	stream *flac.Stream
	fmt    audio.Format
}

func openFLAC(path string) (*flacReader, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &flacReader{
		stream: stream,
		fmt: audio.Format{
			Codec:      CodecFLAC,
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
	}, nil
}

func (r *flacReader) format() audio.Format {
	return r.fmt
}

// read ignores the requested size: FLAC frames carry their own block size
func (r *flacReader) read(int) ([]int32, error) {
	frame, err := r.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated FLAC stream: %w", err)
		}
		// CRC mismatches and malformed headers only affect this frame
		return nil, &FrameError{Err: err}
	}

	channels := r.fmt.Channels
	if len(frame.Subframes) < channels {
		return nil, &FrameError{Err: fmt.Errorf("frame has %d subframes, stream has %d channels", len(frame.Subframes), channels)}
	}

	blockSize := int(frame.BlockSize)
	samples := make([]int32, 0, blockSize*channels)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			samples = append(samples, audio.SampleFromDepth(frame.Subframes[ch].Samples[i], r.fmt.BitDepth))
		}
	}
	return samples, nil
}

func (r *flacReader) close() error {
	return r.stream.Close()
}
