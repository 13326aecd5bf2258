// ABOUTME: Tests for the linear resampler
// ABOUTME: Verifies passthrough, interpolation and chunk boundary continuity
package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i * 100)
	}
	return out
}

func TestPassthrough(t *testing.T) {
	r := New(48000, 48000, 2)
	assert.True(t, r.Passthrough())

	in := []int32{1, 2, 3, 4}
	assert.Equal(t, in, r.Process(nil, in))
}

func TestUpsampleInterpolates(t *testing.T) {
	r := New(24000, 48000, 1)

	out := r.Process(nil, []int32{0, 100, 200})
	assert.Equal(t, []int32{0, 50, 100, 150}, out)
}

func TestDownsampleSkipsFrames(t *testing.T) {
	r := New(48000, 24000, 1)

	out := r.Process(nil, ramp(9))
	assert.Equal(t, []int32{0, 200, 400, 600}, out)
}

func TestChunkedMatchesWhole(t *testing.T) {
	input := ramp(64)

	whole := New(24000, 48000, 1).Process(nil, input)

	r := New(24000, 48000, 1)
	var chunked []int32
	for start := 0; start < len(input); start += 10 {
		end := min(start+10, len(input))
		chunked = r.Process(chunked, input[start:end])
	}

	assert.Equal(t, whole, chunked)
}

func TestStereoChannelsStayInterleaved(t *testing.T) {
	r := New(24000, 48000, 2)

	out := r.Process(nil, []int32{0, 1000, 100, 900})
	assert.Equal(t, []int32{0, 1000, 50, 950}, out)
}

func TestResetDropsCarriedFrame(t *testing.T) {
	r := New(24000, 48000, 1)
	r.Process(nil, []int32{500, 600})
	r.Reset()

	out := r.Process(nil, []int32{0, 100})
	assert.Equal(t, []int32{0, 50}, out)
}
