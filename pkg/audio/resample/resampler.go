// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Converts decoded units to the output device rate
package resample

import (
	"math"

	"github.com/camview/liveaudio/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates.
// It holds no per-stream state, so units can be converted independently.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// OutputFrames returns how many frames Channel produces for inputFrames.
func (r *Resampler) OutputFrames(inputFrames int) int {
	if inputFrames == 0 {
		return 0
	}
	return int(math.Round(float64(inputFrames) / r.ratio))
}

// Channel resamples one planar channel buffer.
func (r *Resampler) Channel(input []float32) []float32 {
	if r.inputRate == r.outputRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	out := make([]float32, r.OutputFrames(len(input)))
	last := len(input) - 1
	for i := range out {
		pos := float64(i) * r.ratio
		idx := int(pos)
		if idx >= last {
			out[i] = input[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = input[idx]*(1-frac) + input[idx+1]*frac
	}
	return out
}

// Unit resamples every channel of u. Units already at the output rate
// are returned unchanged.
func (r *Resampler) Unit(u audio.Unit) audio.Unit {
	if u.SampleRate == r.outputRate {
		return u
	}

	out := audio.Unit{Seq: u.Seq, SampleRate: r.outputRate, Channels: make([][]float32, len(u.Channels))}
	for c, ch := range u.Channels {
		out.Channels[c] = r.Channel(ch)
	}
	return out
}

// ToRate converts u to rate, building a resampler for the unit's own rate.
func ToRate(u audio.Unit, rate int) audio.Unit {
	if u.SampleRate == rate || u.SampleRate <= 0 || rate <= 0 {
		return u
	}
	return New(u.SampleRate, rate).Unit(u)
}
