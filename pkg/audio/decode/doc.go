// ABOUTME: Audio decoder package for the live feed codecs
// ABOUTME: Provides Decoder implementations and the asynchronous decode capability
// Package decode turns encoded feed payloads into audio.Unit values.
//
// Supports: mu-law, PCM (16-bit and 24-bit), FLAC, Opus, MP3.
//
// Mu-law is cheap enough to decode inline. Everything else is handed to
// Async, which decodes on a worker pool and reports results out of order,
// tagged with the sequence index assigned at submission.
//
// Example:
//
//	dec, err := decode.New(decode.FormatFromWave(header))
//	unit, err := dec.Decode(payload)
package decode
