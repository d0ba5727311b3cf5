// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, decoded units and sample conversions
package audio

import "math"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an encoded audio stream
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	CodecHeader []byte // Raw wave format header as received
}

// Unit is one decoded chunk of audio ready for scheduling.
// Channels holds one planar buffer per channel, all the same length.
type Unit struct {
	Seq        uint64
	Channels   [][]float32
	SampleRate int
}

// Frames returns the number of sample frames in the unit.
func (u Unit) Frames() int {
	if len(u.Channels) == 0 {
		return 0
	}
	return len(u.Channels[0])
}

// Duration returns the playback length in seconds.
func (u Unit) Duration() float64 {
	if u.SampleRate <= 0 {
		return 0
	}
	return float64(u.Frames()) / float64(u.SampleRate)
}

// Int16ToFloat32 scales a 16-bit sample to [-1, 1).
func Int16ToFloat32(s int16) float32 {
	return float32(s) / 32768
}

// Float32ToInt16 converts a normalized sample back to 16 bits, clipping.
func Float32ToInt16(s float32) int16 {
	v := math.Round(float64(s) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// Int24ToFloat32 scales a sign-extended 24-bit sample to [-1, 1).
func Int24ToFloat32(s int32) float32 {
	return float32(s) / 8388608
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Deinterleave splits interleaved samples into planar channel buffers.
// Trailing samples that do not fill a whole frame are discarded.
func Deinterleave(samples []float32, channels int) [][]float32 {
	if channels <= 0 {
		return nil
	}
	frames := len(samples) / channels
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[c][i] = samples[i*channels+c]
		}
	}
	return out
}

// Interleave is the inverse of Deinterleave.
func Interleave(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]float32, frames*len(channels))
	for i := 0; i < frames; i++ {
		for c, ch := range channels {
			out[i*len(channels)+c] = ch[i]
		}
	}
	return out
}
