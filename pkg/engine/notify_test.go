// ABOUTME: Tests for ordered notification delivery
// ABOUTME: Covers posting order and callbacks that post from inside a delivery
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierDeliversInPostOrder(t *testing.T) {
	var n notifier
	var got []int

	n.post(func() { got = append(got, 1) }, func() { got = append(got, 2) })
	n.post(func() { got = append(got, 3) })
	n.flush()

	assert.Equal(t, []int{1, 2, 3}, got)

	// Nothing left to deliver
	n.flush()
	assert.Len(t, got, 3)
}

func TestNotifierReentrantPostRunsAfterCurrentCallback(t *testing.T) {
	var n notifier
	var got []string

	n.post(func() {
		n.post(func() { got = append(got, "inner") })
		n.flush() // returns at once; the outer flush delivers inner
		got = append(got, "outer")
	})
	n.flush()

	assert.Equal(t, []string{"outer", "inner"}, got)
}
