// ABOUTME: mDNS advertisement of the remote control endpoint
// ABOUTME: Lets controllers on the LAN find a running engine without configuration
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/hashicorp/mdns"

	"github.com/Resonate-Protocol/audio-engine/internal/version"
)

// ServiceType is the DNS-SD service the engine advertises
const ServiceType = "_audio-engine._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string // WebSocket path, published as a TXT record
	EngineID    string
	Logger      *slog.Logger
}

// Advertiser publishes the control endpoint over mDNS
type Advertiser struct {
	config Config
	log    *slog.Logger

	mu     sync.Mutex
	server *mdns.Server
}

// NewAdvertiser creates an advertiser; nothing is sent until Start
func NewAdvertiser(config Config) *Advertiser {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Advertiser{
		config: config,
		log:    log.With("component", "discovery"),
	}
}

// TXT returns the TXT records published with the service
func (a *Advertiser) TXT() []string {
	path := a.config.Path
	if path == "" {
		path = "/control"
	}
	txt := []string{
		"path=" + path,
		"version=" + version.Version,
	}
	if a.config.EngineID != "" {
		txt = append(txt, "engine_id="+a.config.EngineID)
	}
	return txt
}

// Start begins answering mDNS queries
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		a.config.ServiceName,
		ServiceType,
		"",
		"",
		a.config.Port,
		ips,
		a.TXT(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	a.server = server

	a.log.Info("Advertising mDNS service", "name", a.config.ServiceName, "port", a.config.Port, "type", ServiceType)
	return nil
}

// Stop withdraws the advertisement
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown()
	a.server = nil
	if err != nil {
		return fmt.Errorf("failed to shut down mdns server: %w", err)
	}
	return nil
}

// getLocalIPs returns non-loopback IPv4 addresses of up interfaces
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
