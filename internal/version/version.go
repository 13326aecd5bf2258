// ABOUTME: Product and version constants
// ABOUTME: Reported by the CLI, the remote status reply and mDNS TXT records
package version

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=x.y.z"
var Version = "0.1.0"

const (
	Product      = "audio-engine"
	Manufacturer = "Resonate"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
