// ABOUTME: Tests for the sample ring buffer
// ABOUTME: Covers FIFO order, silence padding, underrun counting and blocking behaviour
package ringbuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seq(from, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(from + i)
	}
	return out
}

func TestFIFOAcrossWrap(t *testing.T) {
	r := New(8)

	var got []int32
	next := 0
	for round := 0; round < 20; round++ {
		require.NoError(t, r.Push(seq(next, 5)))
		next += 5

		dst := make([]int32, 5)
		n := r.Pull(dst)
		require.Equal(t, 5, n)
		got = append(got, dst...)
	}

	assert.Equal(t, seq(0, 100), got)
	assert.Zero(t, r.Underruns())
}

func TestPullPadsWithSilence(t *testing.T) {
	r := New(16)
	require.NoError(t, r.Push([]int32{7, 8, 9}))

	dst := []int32{-1, -1, -1, -1, -1, -1}
	n := r.Pull(dst)

	assert.Equal(t, 3, n)
	assert.Equal(t, []int32{7, 8, 9, 0, 0, 0}, dst)
	assert.Equal(t, uint64(1), r.Underruns())
}

func TestUnderrunsAreMonotonic(t *testing.T) {
	r := New(4)
	dst := make([]int32, 4)

	var last uint64
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			require.NoError(t, r.Push(seq(0, 4)))
		}
		r.Pull(dst)
		cur := r.Underruns()
		assert.GreaterOrEqual(t, cur, last)
		last = cur
	}
	assert.Equal(t, uint64(6), last)
}

func TestLenAndCap(t *testing.T) {
	r := New(10)
	require.NoError(t, r.Push(seq(0, 4)))

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 10, r.Cap())

	r.Pull(make([]int32, 3))
	assert.Equal(t, 1, r.Len())
}

func TestPushBlocksUntilSpace(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Push(seq(0, 4)))

	done := make(chan error, 1)
	go func() {
		done <- r.Push(seq(4, 4))
	}()

	select {
	case <-done:
		t.Fatal("push should block while the ring is full")
	case <-time.After(50 * time.Millisecond):
	}

	var got []int32
	dst := make([]int32, 2)
	for len(got) < 8 {
		if n := r.Pull(dst); n > 0 {
			got = append(got, dst[:n]...)
		}
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, <-done)
	assert.Equal(t, seq(0, 8), got)
}

func TestCloseReleasesBlockedPush(t *testing.T) {
	r := New(2)
	require.NoError(t, r.Push(seq(0, 2)))

	done := make(chan error, 1)
	go func() {
		done <- r.Push(seq(2, 2))
	}()

	time.Sleep(20 * time.Millisecond)
	r.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked push was not released by Close")
	}

	assert.ErrorIs(t, r.Push(seq(0, 1)), ErrClosed)
}

func TestDrainedAfterCloseWrite(t *testing.T) {
	r := New(8)
	require.NoError(t, r.Push(seq(0, 6)))
	r.CloseWrite()

	select {
	case <-r.Drained():
		t.Fatal("ring reported drained with samples buffered")
	default:
	}

	dst := make([]int32, 4)
	r.Pull(dst)
	r.Pull(dst)
	r.Pull(dst)

	select {
	case <-r.Drained():
	default:
		t.Fatal("ring should be drained")
	}
	// Tail padding after end of stream is not an underrun
	assert.Zero(t, r.Underruns())
	assert.ErrorIs(t, r.Push(seq(0, 1)), ErrClosed)
}

func TestDrainedWhenEmptyAtCloseWrite(t *testing.T) {
	r := New(4)
	r.CloseWrite()

	select {
	case <-r.Drained():
	default:
		t.Fatal("empty ring should be drained immediately")
	}
}

func TestResetReopens(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Push(seq(0, 3)))
	r.CloseWrite()
	r.Pull(make([]int32, 4))
	r.Close()

	r.Reset()

	assert.Equal(t, 0, r.Len())
	select {
	case <-r.Drained():
		t.Fatal("reset ring should not be drained")
	default:
	}

	require.NoError(t, r.Push([]int32{42}))
	dst := make([]int32, 1)
	assert.Equal(t, 1, r.Pull(dst))
	assert.Equal(t, int32(42), dst[0])
}

func TestPullUnderContention(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Push(seq(1, 4)))

	r.mu.Lock()
	dst := []int32{9, 9}
	n := r.Pull(dst)
	r.mu.Unlock()

	assert.Equal(t, 0, n)
	assert.Equal(t, []int32{0, 0}, dst)
	assert.Equal(t, uint64(1), r.Contentions())
	assert.Equal(t, 4, r.Len())
}
