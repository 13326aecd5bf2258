// ABOUTME: Audio decoder package for elementary audio sources
// ABOUTME: Provides the Decoder pull interface over WAV, PCM, MP3, FLAC, Opus and Vorbis
// Package decode opens an elementary audio source and decodes it to PCM frames.
//
// Supports: WAV, raw PCM (16-bit and 24-bit), MP3, FLAC, Ogg Opus, Ogg Vorbis
//
// Every decoder yields int32 samples in the 24-bit range. Next returns a nil
// frame at end of stream. Corrupt frames are skipped and counted; a run of
// them longer than Options.MaxConsecutiveErrors, or any error the codec
// cannot continue past, is returned as a *DecodeError matching ErrFatal.
//
// Example:
//
//	dec, err := decode.Open(decode.Source{Path: "track.flac"}, decode.Options{})
//	if err != nil {
//	    return err
//	}
//	defer dec.Close()
//
//	for {
//	    frame, err := dec.Next()
//	    if err != nil || frame == nil {
//	        break
//	    }
//	    // use frame.Samples
//	}
package decode
