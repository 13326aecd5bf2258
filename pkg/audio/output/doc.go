// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the callback-driven Sink interface with oto, malgo and clock backends
// Package output provides callback-driven audio sinks.
//
// A sink owns the playback clock: once opened it calls Config.Callback
// whenever the device needs another buffer, until Close. Backends:
//   - oto: cross-platform, 16-bit, one shared context per process
//   - malgo: miniaudio device with 16, 24 and 32-bit output
//   - clock: headless, consumes audio in real time and discards it
//
// Example:
//
//	sink, _ := output.New("malgo")
//	err := sink.Open(output.Config{
//	    Format:   audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
//	    Callback: func(out []int32) { ring.Pull(out) },
//	})
//	defer sink.Close()
package output
