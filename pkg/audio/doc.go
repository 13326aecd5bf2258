// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Frame types and sample conversion functions
// Package audio provides the fundamental audio types shared by the engine.
//
// This package defines:
//   - Format: describes an elementary stream (codec, sample rate, channels, bit depth)
//   - Frame: a block of decoded PCM with its stream timestamp
//
// Samples are carried as interleaved int32 values in the 24-bit range so
// that 16-bit and 24-bit sources travel through the same pipeline.
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "flac",
//	    SampleRate: 48000,
//	    Channels:   2,
//	    BitDepth:   16,
//	}
//
//	period := format.SamplesFor(10 * time.Millisecond)
package audio
