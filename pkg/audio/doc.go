// ABOUTME: Audio fundamentals shared by decoders, scheduler and devices
// ABOUTME: Defines Format, Unit and sample conversion functions
// Package audio provides the types passed between the decode and playback
// stages of the live audio pipeline.
//
//   - Format: describes an encoded stream (codec, sample rate, channels, bit depth)
//   - Unit: a decoded chunk of planar float32 audio tagged with its sequence index
//
// Example:
//
//	u := audio.Unit{Seq: 3, Channels: audio.Deinterleave(samples, 2), SampleRate: 48000}
//	fmt.Println(u.Duration())
package audio
