// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, YAML overrides, validation and engine conversion
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/audio-engine/internal/logger"
	"github.com/Resonate-Protocol/audio-engine/pkg/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "oto", cfg.Output.Backend)
	assert.Equal(t, 200, cfg.Engine.BufferMs)
	assert.Equal(t, 2*time.Second, cfg.Engine.StopTimeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  path: /music/take5.raw
  sample_rate: 44100
  channels: 2
  bit_depth: 24
output:
  backend: malgo
  period_frames: 256
engine:
  buffer_ms: 80
  stop_timeout: 750ms
log:
  level: debug
  format: json
remote:
  addr: 127.0.0.1:9000
  mdns: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "malgo", cfg.Output.Backend)
	assert.Equal(t, 256, cfg.Output.PeriodFrames)
	assert.Equal(t, 80, cfg.Engine.BufferMs)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.StopTimeout)
	assert.Equal(t, engine.DefaultPrimeTimeout, cfg.Engine.PrimeTimeout, "unset keys keep defaults")
	assert.True(t, cfg.Remote.MDNS)

	ec := cfg.EngineConfig(logger.NewTestLogger())
	assert.Equal(t, "/music/take5.raw", ec.Source.Path)
	assert.Equal(t, 24, ec.Source.Format.BitDepth)
	assert.Equal(t, "malgo", ec.Backend)
	assert.Equal(t, 256, ec.PeriodFrames)
	assert.Equal(t, 750*time.Millisecond, ec.StopTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
output:
  backend: gramophone
engine:
  buffer_ms: -5
log:
  level: chatty
  format: xml
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gramophone")
	assert.Contains(t, err.Error(), "buffer_ms")
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "log.format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "output: [unclosed"))
	assert.Error(t, err)
}

func TestLoggerConfig(t *testing.T) {
	t.Setenv(logger.LevelEnv, "")
	cfg := Defaults()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"

	lc := cfg.LoggerConfig()
	assert.Equal(t, slog.LevelWarn, lc.Level)
	assert.Equal(t, "json", lc.Format)

	t.Setenv(logger.LevelEnv, "error")
	assert.Equal(t, slog.LevelError, cfg.LoggerConfig().Level, "environment wins over the file")
}
