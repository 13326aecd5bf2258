// ABOUTME: play command
// ABOUTME: Drives the host entry points until the stream ends, fails or is interrupted
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/audio-engine/pkg/engine"
	"github.com/Resonate-Protocol/audio-engine/pkg/host"
)

var playJSON bool

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a file until it ends or is interrupted",
	Long: `Play a file on the configured output backend.

Playback stops at end of stream, on an unrecoverable error, or on Ctrl-C.
The engine is then stopped and destroyed and a status line is printed.

Examples:
  audio-engine play track.flac
  audio-engine play --backend malgo --buffer-ms 400 track.mp3
  audio-engine play --rate 48000 --channels 2 --depth 16 capture.pcm`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	addSourceFlags(playCmd)
	playCmd.Flags().BoolVar(&playJSON, "json", false, "print the final status as JSON")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applySource(cmd, &cfg, args)
	log := newLogger(cfg)

	// buffered so the callbacks never block the engine
	finished := make(chan error, 1)
	ecfg := cfg.EngineConfig(log)
	ecfg.OnComplete = func() {
		select {
		case finished <- nil:
		default:
		}
	}
	ecfg.OnError = func(err error) {
		select {
		case finished <- err:
		default:
		}
	}
	if err := host.Configure(ecfg); err != nil {
		return err
	}

	if code := host.StartAudioPlayer(); code != host.CodeOK {
		status := host.Status()
		host.DestroyEngine()
		return fmt.Errorf("start failed (code %d): %s", code, status.LastError)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	var playErr error
	select {
	case playErr = <-finished:
	case s := <-sig:
		log.Info("Interrupted", "signal", s.String())
	}

	// host teardown order
	stopCode := host.StopAudioPlayer()
	destroyCode := host.DestroyEngine()

	if err := printStatus(cmd.OutOrStdout(), host.Status(), playJSON); err != nil {
		return err
	}

	switch {
	case playErr != nil:
		return fmt.Errorf("playback failed: %w", playErr)
	case stopCode != host.CodeOK:
		return fmt.Errorf("stop failed (code %d): %s", stopCode, host.Describe(stopCode))
	case destroyCode != host.CodeOK:
		return fmt.Errorf("destroy failed (code %d): %s", destroyCode, host.Describe(destroyCode))
	}
	return nil
}

func printStatus(w io.Writer, status engine.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	_, err := fmt.Fprintf(w, "state=%s format=%q decoded=%d skipped=%d underruns=%d contentions=%d\n",
		status.State,
		status.Format.String(),
		status.FramesDecoded,
		status.FramesSkipped,
		status.Underruns,
		status.Contentions)
	if err == nil && status.LastError != "" {
		_, err = fmt.Fprintf(w, "last error: %s\n", status.LastError)
	}
	return err
}
