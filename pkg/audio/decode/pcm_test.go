// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 16-bit and 24-bit PCM decoding
package decode

import (
	"errors"
	"testing"

	"github.com/camview/liveaudio/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{"16-bit", audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}, false},
		{"24-bit", audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 24}, false},
		{"default depth", audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 1}, false},
		{"8-bit", audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 8}, true},
		{"wrong codec", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}, true},
		{"no rate", audio.Format{Codec: "pcm", Channels: 2, BitDepth: 16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewPCM(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to create decoder: %v", err)
			}
			if decoder == nil {
				t.Fatal("expected decoder to be created")
			}
		})
	}
}

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// Two stereo frames: L=0x4000, R=0xC000, L=0, R=0x7FFF, plus a stray byte.
	input := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x00, 0xFF, 0x7F, 0x01}
	unit, err := decoder.Decode(input)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if unit.Frames() != 2 {
		t.Fatalf("expected 2 frames, got %d", unit.Frames())
	}
	if unit.Channels[0][0] != 0.5 || unit.Channels[1][0] != -0.5 {
		t.Errorf("unexpected first frame %v %v", unit.Channels[0][0], unit.Channels[1][0])
	}
	if unit.Channels[0][1] != 0 || unit.Channels[1][1] != float32(32767)/32768 {
		t.Errorf("unexpected second frame %v %v", unit.Channels[0][1], unit.Channels[1][1])
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 96000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	unit, err := decoder.Decode([]byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if unit.Frames() != 2 || unit.SampleRate != 96000 {
		t.Fatalf("unexpected unit: frames=%d rate=%d", unit.Frames(), unit.SampleRate)
	}
	if unit.Channels[0][0] != 0.5 || unit.Channels[0][1] != -0.5 {
		t.Errorf("unexpected samples %v", unit.Channels[0])
	}
}

func TestNewSelectsCodec(t *testing.T) {
	if _, err := New(audio.Format{Codec: "mulaw", SampleRate: 8000}); err != nil {
		t.Errorf("mulaw: %v", err)
	}
	if _, err := New(audio.Format{Codec: "flac"}); err != nil {
		t.Errorf("flac: %v", err)
	}
	if _, err := New(audio.Format{Codec: "mp3"}); err != nil {
		t.Errorf("mp3: %v", err)
	}

	_, err := New(audio.Format{Codec: ""})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
