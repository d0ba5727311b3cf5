// ABOUTME: Tests for the compressed codec decoders
// ABOUTME: Tests Opus round trips and error paths for FLAC and MP3
package decode

import (
	"math"
	"testing"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/records"
	"gopkg.in/hraban/opus.v2"
)

func TestOpusRoundTrip(t *testing.T) {
	const rate, frame = 48000, 960

	enc, err := opus.NewEncoder(rate, 1, opus.AppAudio)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}

	pcm := make([]float32, frame)
	for i := range pcm {
		pcm[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	packet := make([]byte, 4000)
	n, err := enc.EncodeFloat32(pcm, packet)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	dec, err := NewOpus(audio.Format{Codec: "opus", SampleRate: rate, Channels: 1})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	unit, err := dec.Decode(packet[:n])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if unit.Frames() != frame {
		t.Errorf("expected %d frames, got %d", frame, unit.Frames())
	}
	if unit.SampleRate != rate {
		t.Errorf("expected rate %d, got %d", rate, unit.SampleRate)
	}
}

func TestNewOpus_InvalidCodec(t *testing.T) {
	decoder, err := NewOpus(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2})
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}
	if decoder != nil {
		t.Error("expected nil decoder")
	}
}

func TestFLACRejectsGarbage(t *testing.T) {
	dec, err := NewFLAC(audio.Format{Codec: "flac"})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if _, err := dec.Decode([]byte("not a flac stream")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestMP3RejectsGarbage(t *testing.T) {
	dec, err := NewMP3(audio.Format{Codec: "mp3"})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if _, err := dec.Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestFormatFromWave(t *testing.T) {
	raw := records.WaveFormatHeader{
		Valid: true, FormatTag: records.FormatPCM, Channels: 2,
		SamplesPerSec: 44100, BitsPerSample: 16,
	}.Marshal()

	format := FormatFromWave(records.ParseWaveFormatHeader(raw))
	if format.Codec != "pcm" || format.SampleRate != 44100 || format.Channels != 2 || format.BitDepth != 16 {
		t.Errorf("unexpected format %+v", format)
	}
	if len(format.CodecHeader) != len(raw) {
		t.Errorf("expected raw header to be carried")
	}
}
