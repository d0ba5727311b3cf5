// ABOUTME: Test tone generator for the feed server
// ABOUTME: Generates a mono sine wave at the feed sample rate
package server

import (
	"math"
	"sync"
)

// TestToneSource generates a mono sine tone
type TestToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	sampleRate  int
	amplitude   float64
}

// NewTestToneSource creates a tone generator at half scale
func NewTestToneSource(frequency float64, sampleRate int) *TestToneSource {
	return &TestToneSource{
		frequency:  frequency,
		sampleRate: sampleRate,
		amplitude:  0.5,
	}
}

// Read fills samples with the next stretch of the tone
func (s *TestToneSource) Read(samples []int16) int {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		samples[i] = int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * s.amplitude)
	}
	s.sampleIndex += uint64(len(samples))

	return len(samples)
}

// SampleRate returns the tone's sample rate
func (s *TestToneSource) SampleRate() int { return s.sampleRate }

// Peak returns the largest absolute sample in samples.
func Peak(samples []int16) int32 {
	var peak int32
	for _, v := range samples {
		a := int32(v)
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return peak
}
