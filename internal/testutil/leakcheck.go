// ABOUTME: Goroutine leak check helpers for tests
// ABOUTME: Wraps goleak with the ignore list for audio backend goroutines
// Package testutil provides testing utilities shared across packages.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, append(IgnoreBackendGoroutines(), opts...)...)
}

// IgnoreBackendGoroutines ignores the mixer goroutine that a shared oto
// context starts and never stops.
func IgnoreBackendGoroutines() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreAnyFunction("github.com/ebitengine/oto/v3/internal/mux.(*Mux).loop"),
	}
}
