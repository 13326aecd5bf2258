// ABOUTME: Entry point for the audio-engine CLI
// ABOUTME: Delegates to the cobra command tree in the commands package
// Package main is the audio-engine command line tool.
//
// Usage:
//
//	audio-engine [flags] <command> [args]
//
// Commands:
//
//	play     - Play a file until it ends or is interrupted
//	probe    - Decode a file without playing it and report its format
//	serve    - Run the WebSocket control endpoint
//	ctl      - Send one command to a running control endpoint
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/Resonate-Protocol/audio-engine/cmd/audio-engine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
