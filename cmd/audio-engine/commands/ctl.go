// ABOUTME: ctl command
// ABOUTME: Sends one control command to a running serve process and prints the reply
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/audio-engine/internal/remote"
	"github.com/Resonate-Protocol/audio-engine/pkg/host"
)

var ctlAddr string

var ctlCmd = &cobra.Command{
	Use:       "ctl <start|stop|destroy|status>",
	Short:     "Send one command to a running control endpoint",
	ValidArgs: []string{remote.CommandStart, remote.CommandStop, remote.CommandDestroy, remote.CommandStatus},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Long: `Connect to a running 'audio-engine serve', send a command and print the
JSON reply. The exit status is non-zero when the reply code is not 0.

Examples:
  audio-engine ctl start
  audio-engine ctl --addr 192.168.1.20:8928 status`,
	RunE: runCtl,
}

func init() {
	ctlCmd.Flags().StringVar(&ctlAddr, "addr", "127.0.0.1:8928", "control endpoint address")
	rootCmd.AddCommand(ctlCmd)
}

func runCtl(cmd *cobra.Command, args []string) error {
	client, err := remote.Dial(ctlAddr, remote.DefaultPath)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Send(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}

	if resp.Code != host.CodeOK {
		return fmt.Errorf("%s returned code %d: %s", args[0], resp.Code, resp.Error)
	}
	return nil
}
