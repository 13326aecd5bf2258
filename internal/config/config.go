// ABOUTME: YAML configuration for the engine, logging and remote control
// ABOUTME: Loads a config file over built-in defaults and converts it to engine.Config
// Package config reads the audio-engine configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/audio-engine/internal/logger"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/output"
	"github.com/Resonate-Protocol/audio-engine/pkg/engine"
)

// Config is the top-level configuration file
type Config struct {
	Source SourceConfig `yaml:"source"`
	Output OutputConfig `yaml:"output"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	Remote RemoteConfig `yaml:"remote"`
}

// SourceConfig identifies the elementary stream to play
type SourceConfig struct {
	Path  string `yaml:"path"`
	Codec string `yaml:"codec,omitempty"`

	// Raw PCM only
	SampleRate int `yaml:"sample_rate,omitempty"`
	Channels   int `yaml:"channels,omitempty"`
	BitDepth   int `yaml:"bit_depth,omitempty"`
}

// OutputConfig selects and sizes the audio device
type OutputConfig struct {
	Backend      string `yaml:"backend"`
	SampleRate   int    `yaml:"sample_rate,omitempty"`
	PeriodFrames int    `yaml:"period_frames"`
}

// EngineConfig tunes buffering and timeouts
type EngineConfig struct {
	BufferMs             int           `yaml:"buffer_ms"`
	StopTimeout          time.Duration `yaml:"stop_timeout"`
	PrimeTimeout         time.Duration `yaml:"prime_timeout"`
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RemoteConfig configures the WebSocket control server
type RemoteConfig struct {
	Addr string `yaml:"addr"`
	Name string `yaml:"name,omitempty"`
	MDNS bool   `yaml:"mdns"`
}

// Defaults returns the configuration used when no file is given
func Defaults() Config {
	return Config{
		Output: OutputConfig{
			Backend:      engine.DefaultBackend,
			PeriodFrames: engine.DefaultPeriodFrames,
		},
		Engine: EngineConfig{
			BufferMs:             engine.DefaultBufferMs,
			StopTimeout:          engine.DefaultStopTimeout,
			PrimeTimeout:         engine.DefaultPrimeTimeout,
			MaxConsecutiveErrors: engine.DefaultMaxConsecutiveErrors,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Remote: RemoteConfig{
			Addr: ":8928",
		},
	}
}

// Load reads path over the defaults and validates the result
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values a caller could get wrong; the source path is not
// required here because the CLI may supply it
func (c Config) Validate() error {
	var errs []error

	if _, err := output.New(c.Output.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Output.PeriodFrames < 0 {
		errs = append(errs, fmt.Errorf("output.period_frames must not be negative: %d", c.Output.PeriodFrames))
	}
	if c.Output.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("output.sample_rate must not be negative: %d", c.Output.SampleRate))
	}
	if c.Engine.BufferMs < 0 {
		errs = append(errs, fmt.Errorf("engine.buffer_ms must not be negative: %d", c.Engine.BufferMs))
	}
	if c.Engine.StopTimeout < 0 || c.Engine.PrimeTimeout < 0 {
		errs = append(errs, errors.New("engine timeouts must not be negative"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// DecodeSource converts the source section to a decoder source
func (c Config) DecodeSource() decode.Source {
	return decode.Source{
		Path:  c.Source.Path,
		Codec: c.Source.Codec,
		Format: audio.Format{
			SampleRate: c.Source.SampleRate,
			Channels:   c.Source.Channels,
			BitDepth:   c.Source.BitDepth,
		},
	}
}

// EngineConfig builds the engine configuration; callbacks are left to the caller
func (c Config) EngineConfig(log *slog.Logger) engine.Config {
	return engine.Config{
		Source:               c.DecodeSource(),
		Backend:              c.Output.Backend,
		BufferMs:             c.Engine.BufferMs,
		PeriodFrames:         c.Output.PeriodFrames,
		OutputSampleRate:     c.Output.SampleRate,
		StopTimeout:          c.Engine.StopTimeout,
		PrimeTimeout:         c.Engine.PrimeTimeout,
		MaxConsecutiveErrors: c.Engine.MaxConsecutiveErrors,
		Logger:               log,
	}
}

// LoggerConfig builds the logger configuration. AUDIO_ENGINE_LOG_LEVEL wins
// over the file.
func (c Config) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	if os.Getenv(logger.LevelEnv) == "" {
		if level, err := logger.ParseLevel(c.Log.Level); err == nil {
			lc.Level = level
		}
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}
