// ABOUTME: Bounded sample ring between the decode worker and the output callback
// ABOUTME: Push blocks while full; Pull never blocks and pads shortfalls with silence
package ringbuf

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Push once the ring has been closed or write-closed
var ErrClosed = errors.New("ring buffer closed")

// Ring is a single-producer single-consumer circular buffer of samples
type Ring struct {
	mu      sync.Mutex
	notFull *sync.Cond

	buffer   []int32
	readPos  int
	writePos int
	count    int // Number of samples currently in buffer

	writeClosed bool
	closed      bool
	drained     chan struct{}
	drainedSet  bool

	underruns   atomic.Uint64
	contentions atomic.Uint64
}

// New creates a ring buffer with the given capacity in samples
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	r := &Ring{
		buffer:  make([]int32, capacity),
		drained: make(chan struct{}),
	}
	r.notFull = sync.NewCond(&r.mu)
	return r
}

// Push copies samples into the ring, waiting for space as needed.
// It returns ErrClosed if the ring is closed before every sample fits.
func (r *Ring) Push(samples []int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buffer)
	for len(samples) > 0 {
		for r.count == size && !r.closed {
			r.notFull.Wait()
		}
		if r.closed || r.writeClosed {
			return ErrClosed
		}

		n := min(len(samples), size-r.count)
		first := min(n, size-r.writePos)
		copy(r.buffer[r.writePos:], samples[:first])
		copy(r.buffer, samples[first:n])
		r.writePos = (r.writePos + n) % size
		r.count += n
		samples = samples[n:]
	}
	return nil
}

// Pull fills dst from the ring and returns the number of real samples
// copied. The remainder of dst is zeroed. Pull never waits: if the producer
// holds the lock, dst is filled with silence and a contention is counted.
func (r *Ring) Pull(dst []int32) int {
	if !r.mu.TryLock() {
		clear(dst)
		r.contentions.Add(1)
		return 0
	}

	size := len(r.buffer)
	n := min(len(dst), r.count)
	first := min(n, size-r.readPos)
	copy(dst, r.buffer[r.readPos:r.readPos+first])
	copy(dst[first:n], r.buffer)
	r.readPos = (r.readPos + n) % size
	r.count -= n

	if n < len(dst) && !r.writeClosed && !r.closed {
		r.underruns.Add(1)
	}
	r.markDrained()
	r.mu.Unlock()

	clear(dst[n:])
	if n > 0 {
		r.notFull.Signal()
	}
	return n
}

// CloseWrite marks the end of the stream. Buffered samples remain readable
// and shortfalls stop counting as underruns.
func (r *Ring) CloseWrite() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeClosed = true
	r.markDrained()
	r.notFull.Broadcast()
}

// Close wakes a blocked Push and rejects further writes
func (r *Ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.notFull.Broadcast()
}

// Reset empties the ring and reopens it for a new stream.
// Counters are cumulative and survive a reset.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.buffer)
	r.readPos = 0
	r.writePos = 0
	r.count = 0
	r.writeClosed = false
	r.closed = false
	if r.drainedSet {
		r.drained = make(chan struct{})
		r.drainedSet = false
	}
}

// Drained returns a channel closed once the stream is write-closed and
// every buffered sample has been pulled
func (r *Ring) Drained() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drained
}

// markDrained must hold r.mu
func (r *Ring) markDrained() {
	if r.writeClosed && r.count == 0 && !r.drainedSet {
		close(r.drained)
		r.drainedSet = true
	}
}

// Len returns the number of buffered samples
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity in samples
func (r *Ring) Cap() int {
	return len(r.buffer)
}

// Underruns returns how many pulls came up short while the stream was live
func (r *Ring) Underruns() uint64 {
	return r.underruns.Load()
}

// Contentions returns how many pulls were answered with silence because
// the producer held the lock
func (r *Ring) Contentions() uint64 {
	return r.contentions.Load()
}
