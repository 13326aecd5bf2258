// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Keeps the last input frame between chunks so block boundaries interpolate cleanly
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // read position in input frames, relative to lastFrame when primed
	lastFrame  []int32 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int32, channels),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int {
	return r.outputRate
}

// Process appends the resampled form of input to dst and returns the
// extended slice. input and output are interleaved.
func (r *Resampler) Process(dst, input []int32) []int32 {
	if r.Passthrough() {
		return append(dst, input...)
	}

	frames := len(input) / r.channels
	if frames == 0 {
		return dst
	}

	// Virtual frame 0 is the previous chunk's last frame once primed
	offset := 0
	if r.primed {
		offset = 1
	}
	total := frames + offset

	frame := func(k, ch int) int32 {
		if k < offset {
			return r.lastFrame[ch]
		}
		return input[(k-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := frame(idx, ch)
			s2 := frame(idx+1, ch)
			dst = append(dst, int32(float64(s1)*(1.0-frac)+float64(s2)*frac))
		}
		r.position += r.ratio
	}

	// Rebase onto the frame carried into the next chunk
	r.position -= float64(total - 1)
	copy(r.lastFrame, input[(frames-1)*r.channels:frames*r.channels])
	r.primed = true

	return dst
}

// Reset drops carried state, for use at a stream discontinuity
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	clear(r.lastFrame)
}
