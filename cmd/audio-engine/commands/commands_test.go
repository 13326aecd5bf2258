// ABOUTME: Tests for the audio-engine CLI commands
// ABOUTME: Runs version, probe, play and ctl through the cobra tree against local fixtures
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/audio-engine/internal/logger"
	"github.com/Resonate-Protocol/audio-engine/internal/remote"
	"github.com/Resonate-Protocol/audio-engine/internal/version"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/audio-engine/pkg/engine"
	"github.com/Resonate-Protocol/audio-engine/pkg/host"
)

// run executes the command tree with args and returns what it printed
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeRawPCM(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.pcm")
	require.NoError(t, os.WriteFile(path, make([]byte, frames*2), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestProbeRawPCMCommand(t *testing.T) {
	path := writeRawPCM(t, 4000)

	out, err := run(t, "probe", "--json", "--rate", "8000", "--channels", "1", "--depth", "16", path)
	require.NoError(t, err)

	var report ProbeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, path, report.Path)
	assert.Equal(t, decode.CodecPCM, report.Format.Codec)
	assert.Equal(t, 8000, report.Format.SampleRate)
	assert.EqualValues(t, 4000, report.Frames)
	assert.Equal(t, "500ms", report.Duration.String())
	assert.Zero(t, report.Skipped)
}

func TestProbeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           make([]int, 2*4410),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	report, err := probe(decode.Source{Path: path}, decode.Options{Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	assert.Equal(t, decode.CodecWAV, report.Format.Codec)
	assert.Equal(t, 2, report.Format.Channels)
	assert.EqualValues(t, 4410, report.Frames)

	var buf bytes.Buffer
	require.NoError(t, printProbe(&buf, report, false))
	assert.Contains(t, buf.String(), "44100 Hz")
	assert.Contains(t, buf.String(), "100ms")
}

func TestProbeMissingFile(t *testing.T) {
	_, err := probe(decode.Source{Path: filepath.Join(t.TempDir(), "missing.flac")}, decode.Options{Logger: logger.NewTestLogger()})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigFromFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  backend: clock
  period_frames: 256
engine:
  buffer_ms: 120
`), 0o644))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })

	// a command with no flags defined sees only the file
	cfg, err := loadConfig(&cobra.Command{})
	require.NoError(t, err)
	assert.Equal(t, "clock", cfg.Output.Backend)
	assert.Equal(t, 256, cfg.Output.PeriodFrames)
	assert.Equal(t, 120, cfg.Engine.BufferMs)

	prevBuffer := bufferMs
	t.Cleanup(func() { bufferMs = prevBuffer })
	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&bufferMs, "buffer-ms", 0, "")
	require.NoError(t, cmd.Flags().Set("buffer-ms", "350"))

	cfg, err = loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 350, cfg.Engine.BufferMs)
	assert.Equal(t, 256, cfg.Output.PeriodFrames)
}

func TestLoadConfigRejectsBadBackend(t *testing.T) {
	prev := backend
	t.Cleanup(func() { backend = prev })
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&backend, "backend", "", "")
	require.NoError(t, cmd.Flags().Set("backend", "jack"))

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestPrintStatusLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, engine.Status{
		State:         engine.StateDestroyed,
		FramesDecoded: 10,
		LastError:     "boom",
	}, false))
	assert.Contains(t, buf.String(), "state=destroyed")
	assert.Contains(t, buf.String(), "decoded=10")
	assert.Contains(t, buf.String(), "last error: boom")
}

func TestPlayToEndOfStream(t *testing.T) {
	if testing.Short() {
		t.Skip("plays one second of audio in real time")
	}
	path := writeRawPCM(t, 8000)

	out, err := run(t, "play", "--backend", "clock", "--json",
		"--rate", "8000", "--channels", "1", "--depth", "16", path)
	require.NoError(t, err)

	var status engine.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, engine.StateDestroyed, status.State)
	assert.EqualValues(t, 8000, status.FramesDecoded)
	assert.Zero(t, status.Underruns)
	assert.Empty(t, status.LastError)
}

// staticBackend answers every command with a fixed state
type staticBackend struct{}

func (staticBackend) StartAudioPlayer() int { return host.CodeOK }
func (staticBackend) StopAudioPlayer() int  { return host.CodeInvalidState }
func (staticBackend) DestroyEngine() int    { return host.CodeOK }
func (staticBackend) Status() engine.Status {
	return engine.Status{EngineID: "static", State: engine.StatePlaying}
}

func TestCtlCommand(t *testing.T) {
	srv := remote.New(remote.Config{Addr: "127.0.0.1:0", Backend: staticBackend{}, Logger: logger.NewTestLogger()})
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	addr := srv.Addr().String()

	out, err := run(t, "ctl", "--addr", addr, "status")
	require.NoError(t, err)
	var resp remote.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, host.CodeOK, resp.Code)
	require.NotNil(t, resp.Status)
	assert.Equal(t, "static", resp.Status.EngineID)

	_, err = run(t, "ctl", "--addr", addr, "stop")
	assert.ErrorContains(t, err, "code 1")

	_, err = run(t, "ctl", "--addr", addr, "rewind")
	assert.Error(t, err)
}
