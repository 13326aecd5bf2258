// ABOUTME: serve command
// ABOUTME: Runs the WebSocket control endpoint and optional mDNS advertisement for the process engine
package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/audio-engine/internal/discovery"
	"github.com/Resonate-Protocol/audio-engine/internal/remote"
	"github.com/Resonate-Protocol/audio-engine/pkg/host"
)

const shutdownTimeout = 5 * time.Second

var (
	serveAddr string
	serveName string
	serveMDNS bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Run the WebSocket control endpoint",
	Long: `Build the process engine for a file and accept start, stop, destroy and
status commands on a WebSocket endpoint (path /control).

The file comes from the argument or from source.path in --config.
With --mdns the endpoint is advertised as _audio-engine._tcp.

Examples:
  audio-engine serve track.flac
  audio-engine serve --addr 127.0.0.1:9000 --mdns --name kitchen track.mp3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	addSourceFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8928)")
	serveCmd.Flags().StringVar(&serveName, "name", "", "mDNS instance name (default: hostname)")
	serveCmd.Flags().BoolVar(&serveMDNS, "mdns", false, "advertise the endpoint over mDNS")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applySource(cmd, &cfg, args)
	if cmd.Flags().Changed("addr") {
		cfg.Remote.Addr = serveAddr
	}
	if cmd.Flags().Changed("name") {
		cfg.Remote.Name = serveName
	}
	if cmd.Flags().Changed("mdns") {
		cfg.Remote.MDNS = serveMDNS
	}
	if cfg.Source.Path == "" {
		return errors.New("no source: pass a file or set source.path in the config")
	}
	log := newLogger(cfg)

	ecfg := cfg.EngineConfig(log)
	ecfg.OnError = func(err error) {
		log.Error("Playback stopped on error", "error", err)
	}
	if err := host.Configure(ecfg); err != nil {
		return err
	}
	eng := host.Engine()
	defer host.DestroyEngine()

	srv := remote.New(remote.Config{Addr: cfg.Remote.Addr, Logger: log})
	if err := srv.Start(); err != nil {
		return err
	}

	var advertiser *discovery.Advertiser
	if cfg.Remote.MDNS {
		name := cfg.Remote.Name
		if name == "" {
			name, _ = os.Hostname()
		}
		port := 0
		if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
			port = tcp.Port
		}
		advertiser = discovery.NewAdvertiser(discovery.Config{
			ServiceName: name,
			Port:        port,
			Path:        remote.DefaultPath,
			EngineID:    eng.ID(),
			Logger:      log,
		})
		if err := advertiser.Start(); err != nil {
			// control still works without discovery
			log.Warn("mDNS advertisement failed", "error", err)
			advertiser = nil
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "engine %s listening on ws://%s%s\n", eng.ID(), srv.Addr(), remote.DefaultPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("Shutting down")

	var errs []error
	if advertiser != nil {
		errs = append(errs, advertiser.Stop())
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs = append(errs, srv.Shutdown(shutdownCtx))

	if code := host.DestroyEngine(); code != host.CodeOK {
		errs = append(errs, fmt.Errorf("destroy failed (code %d): %s", code, host.Describe(code)))
	}
	return errors.Join(errs...)
}
