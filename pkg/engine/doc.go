// ABOUTME: Engine package for the decode and playback pipeline
// ABOUTME: Documents the controller lifecycle and its threading rules
// Package engine coordinates a decoder, a ring buffer and an output sink
// behind a small lifecycle state machine:
//
//	Uninitialized --Start--> Playing --Stop--> Stopped --Start--> Playing
//	{Uninitialized, Playing, Stopped} --Destroy--> Destroyed
//
// Start, Stop and Destroy block until the transition is complete and are
// serialized with each other. The output callback never takes the control
// lock; it only pulls from the ring buffer.
//
// When the stream ends the engine stops itself after the buffered audio has
// played and calls Config.OnComplete. A fatal decode error or an output
// failure also stops it; that error is passed to Config.OnError and
// returned by the next Stop.
//
// Every stop, explicit or automatic, closes the decoder and drops the
// buffered audio. The next Start reopens the source from the beginning.
package engine
