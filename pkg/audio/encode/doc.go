// ABOUTME: Audio encoder package for producing feed payloads
// ABOUTME: Provides the Encoder interface and mu-law, PCM and Opus implementations
// Package encode turns interleaved 16-bit samples into audio frame payloads
// that the decode package reads back.
//
// Supports: mu-law, PCM (16-bit and 24-bit little-endian), Opus
//
// Example:
//
//	encoder, err := encode.New(audio.Format{Codec: "mulaw", SampleRate: 8000, Channels: 1})
//	payload, err := encoder.Encode(samples)
package encode
