// ABOUTME: probe command
// ABOUTME: Decodes a file to end of stream without an output device and reports what it found
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/audio-engine/pkg/audio"
	"github.com/Resonate-Protocol/audio-engine/pkg/audio/decode"
)

var probeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Decode a file without playing it and report its format",
	Long: `Open a file with the decoder adapter, decode it to end of stream and
print the stream format, frame count, duration and skipped frames.

Examples:
  audio-engine probe track.flac
  audio-engine probe --json track.opus`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	addSourceFlags(probeCmd)
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(probeCmd)
}

// ProbeReport summarizes a decoded stream
type ProbeReport struct {
	Path     string        `json:"path"`
	Format   audio.Format  `json:"format"`
	Frames   int64         `json:"frames"`
	Duration time.Duration `json:"duration_ns"`
	Skipped  int64         `json:"skipped"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applySource(cmd, &cfg, args)
	log := newLogger(cfg)

	report, err := probe(cfg.DecodeSource(), decode.Options{
		MaxConsecutiveErrors: cfg.Engine.MaxConsecutiveErrors,
		Logger:               log,
	})
	if err != nil {
		return err
	}
	return printProbe(cmd.OutOrStdout(), report, probeJSON)
}

func probe(src decode.Source, opts decode.Options) (ProbeReport, error) {
	dec, err := decode.Open(src, opts)
	if err != nil {
		return ProbeReport{}, fmt.Errorf("failed to open %s: %w", src.Path, err)
	}
	defer dec.Close()

	report := ProbeReport{Path: src.Path, Format: dec.Format()}
	samples := 0
	for {
		frame, err := dec.Next()
		if err != nil {
			return report, fmt.Errorf("decode failed after %d frames: %w", report.Frames, err)
		}
		if frame == nil {
			break
		}
		report.Frames += int64(frame.FrameCount())
		samples += frame.SampleCount()
	}

	report.Skipped = dec.Skipped()
	report.Duration = report.Format.DurationOf(samples)
	return report, nil
}

func printProbe(w io.Writer, r ProbeReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	_, err := fmt.Fprintf(w, "%s\n  codec:       %s\n  sample rate: %d Hz\n  channels:    %d\n  bit depth:   %d\n  frames:      %d\n  duration:    %s\n  skipped:     %d\n",
		r.Path,
		r.Format.Codec,
		r.Format.SampleRate,
		r.Format.Channels,
		r.Format.BitDepth,
		r.Frames,
		r.Duration.Round(time.Millisecond),
		r.Skipped)
	return err
}
