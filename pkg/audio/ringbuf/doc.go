// ABOUTME: Ring buffer package for the decode to output hand-off
// ABOUTME: Documents the blocking and non-blocking halves of the ring
// Package ringbuf provides the bounded buffer that decouples the decode
// worker from the real-time output callback.
//
// The producer calls Push, which waits for space. The consumer calls Pull
// from the audio callback; Pull never waits and never allocates. A pull that
// finds fewer samples than requested pads with silence and counts an
// underrun, unless the producer has already called CloseWrite.
package ringbuf
