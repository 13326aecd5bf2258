// ABOUTME: Root command and global flags for the audio-engine CLI
// ABOUTME: Merges the config file, defaults and flag overrides into one configuration
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/audio-engine/internal/config"
	"github.com/Resonate-Protocol/audio-engine/internal/logger"
)

var (
	// Global flags
	configPath string
	backend    string
	bufferMs   int
	period     int
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "audio-engine",
	Short: "Native audio playback engine",
	Long: `audio-engine - decode an elementary audio file and play it on the
default output device.

Supported sources: .wav, .mp3, .flac, .opus, .ogg and raw .pcm
(raw PCM needs --rate, --channels and --depth).

Output backends:
  oto     platform audio through ebitengine/oto (default)
  malgo   platform audio through miniaudio
  clock   paced discard, for machines without a sound card

Configuration is read from --config (YAML); flags override file values.

Examples:
  # Play a file on the default device
  audio-engine play track.flac

  # Inspect a file without playing it
  audio-engine probe track.mp3

  # Run the control endpoint and advertise it on the LAN
  audio-engine serve track.wav --mdns
  audio-engine ctl start`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "output backend: oto, malgo or clock")
	rootCmd.PersistentFlags().IntVar(&bufferMs, "buffer-ms", 0, "ring buffer length in milliseconds")
	rootCmd.PersistentFlags().IntVar(&period, "period", 0, "output period in sample frames")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// loadConfig reads --config (or the defaults) and applies the flags the
// user actually set
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Output.Backend = backend
	}
	if flags.Changed("buffer-ms") {
		cfg.Engine.BufferMs = bufferMs
	}
	if flags.Changed("period") {
		cfg.Output.PeriodFrames = period
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default
func newLogger(cfg config.Config) *slog.Logger {
	lc := cfg.LoggerConfig()
	if logLevel != "" {
		// an explicit flag beats the environment
		if level, err := logger.ParseLevel(logLevel); err == nil {
			lc.Level = level
		}
	}
	log := logger.NewLogger(lc)
	slog.SetDefault(log)
	return log
}
