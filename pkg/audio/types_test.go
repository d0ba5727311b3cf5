// ABOUTME: Tests for audio types
// ABOUTME: Tests unit duration and sample conversion functions
package audio

import "testing"

func TestUnitDuration(t *testing.T) {
	tests := []struct {
		name     string
		unit     Unit
		frames   int
		duration float64
	}{
		{"empty", Unit{SampleRate: 8000}, 0, 0},
		{"mono 8k", Unit{Channels: [][]float32{make([]float32, 800)}, SampleRate: 8000}, 800, 0.1},
		{"stereo 48k", Unit{Channels: [][]float32{make([]float32, 480), make([]float32, 480)}, SampleRate: 48000}, 480, 0.01},
		{"no rate", Unit{Channels: [][]float32{make([]float32, 10)}}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.unit.Frames(); got != tt.frames {
				t.Errorf("expected %d frames, got %d", tt.frames, got)
			}
			if got := tt.unit.Duration(); got != tt.duration {
				t.Errorf("expected duration %v, got %v", tt.duration, got)
			}
		})
	}
}

func TestInt16RoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}

	for _, original := range samples {
		result := Float32ToInt16(Int16ToFloat32(original))
		if result != original {
			t.Errorf("round-trip failed: %d -> %d", original, result)
		}
	}
}

func TestFloat32ToInt16Clips(t *testing.T) {
	if got := Float32ToInt16(2); got != 32767 {
		t.Errorf("expected 32767, got %d", got)
	}
	if got := Float32ToInt16(-2); got != -32768 {
		t.Errorf("expected -32768, got %d", got)
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestDeinterleave(t *testing.T) {
	in := []float32{1, -1, 2, -2, 3, -3, 9}
	out := Deinterleave(in, 2)

	if len(out) != 2 || len(out[0]) != 3 {
		t.Fatalf("unexpected shape %d x %d", len(out), len(out[0]))
	}
	for i := 0; i < 3; i++ {
		if out[0][i] != float32(i+1) || out[1][i] != -float32(i+1) {
			t.Errorf("frame %d: got %v %v", i, out[0][i], out[1][i])
		}
	}

	back := Interleave(out)
	for i, v := range back {
		if v != in[i] {
			t.Errorf("interleave index %d: expected %v, got %v", i, in[i], v)
		}
	}
}
