// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests advertisement records and lifecycle without touching the network
package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Resonate-Protocol/audio-engine/internal/version"
)

func TestTXTRecords(t *testing.T) {
	adv := NewAdvertiser(Config{ServiceName: "Kitchen", Port: 8928, EngineID: "abc"})

	assert.Equal(t, []string{
		"path=/control",
		"version=" + version.Version,
		"engine_id=abc",
	}, adv.TXT())
}

func TestTXTCustomPath(t *testing.T) {
	adv := NewAdvertiser(Config{ServiceName: "Den", Port: 1, Path: "/ws"})
	assert.Contains(t, adv.TXT(), "path=/ws")
}

func TestStopWithoutStart(t *testing.T) {
	adv := NewAdvertiser(Config{ServiceName: "Idle", Port: 8928})
	assert.NoError(t, adv.Stop())
}

func TestGetLocalIPsSkipsLoopback(t *testing.T) {
	ips, err := getLocalIPs()
	assert.NoError(t, err)
	for _, ip := range ips {
		assert.False(t, ip.IsLoopback())
		assert.NotNil(t, ip.To4())
	}
}
