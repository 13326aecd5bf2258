// ABOUTME: Source selection flags shared by play, probe and serve
// ABOUTME: Applies the file argument and raw PCM layout flags to the configuration
package commands

import (
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/audio-engine/internal/config"
)

var (
	sourceCodec    string
	sourceRate     int
	sourceChannels int
	sourceDepth    int
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceCodec, "codec", "", "codec override: wav, pcm, mp3, flac, opus or vorbis")
	cmd.Flags().IntVar(&sourceRate, "rate", 0, "raw PCM sample rate")
	cmd.Flags().IntVar(&sourceChannels, "channels", 0, "raw PCM channel count")
	cmd.Flags().IntVar(&sourceDepth, "depth", 0, "raw PCM bit depth: 16, 24 or 32")
}

// applySource points cfg at path (when given) and applies the source flags
func applySource(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Source.Path = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("codec") {
		cfg.Source.Codec = sourceCodec
	}
	if flags.Changed("rate") {
		cfg.Source.SampleRate = sourceRate
	}
	if flags.Changed("channels") {
		cfg.Source.Channels = sourceChannels
	}
	if flags.Changed("depth") {
		cfg.Source.BitDepth = sourceDepth
	}
}
