// ABOUTME: Per-codec frame encoding for the feed server
// ABOUTME: Pairs an audio encoder with the wave header announcing it
package server

import (
	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/audio/encode"
	"github.com/camview/liveaudio/pkg/records"
)

// FrameEncoder encodes mono frames and describes them
type FrameEncoder struct {
	encode.Encoder
	header records.WaveFormatHeader
}

// NewFrameEncoder returns a mono encoder for codec at sampleRate.
func NewFrameEncoder(codec string, sampleRate int) (*FrameEncoder, error) {
	enc, err := encode.New(audio.Format{Codec: codec, SampleRate: sampleRate, Channels: 1, BitDepth: 16})
	if err != nil {
		return nil, err
	}

	rate := uint32(sampleRate)
	h := records.WaveFormatHeader{Valid: true, Channels: 1, SamplesPerSec: rate, BlockAlign: 1}
	switch codec {
	case "mulaw":
		h.FormatTag, h.AvgBytesPerSec, h.BitsPerSample = records.FormatMuLaw, rate, 8
	case "pcm":
		h.FormatTag, h.AvgBytesPerSec, h.BlockAlign, h.BitsPerSample = records.FormatPCM, rate*2, 2, 16
	case "opus":
		h.FormatTag, h.BitsPerSample = records.FormatOpus, 16
	}

	return &FrameEncoder{Encoder: enc, header: h}, nil
}

// Header returns the wave header sent before the first frame
func (e *FrameEncoder) Header() records.WaveFormatHeader {
	return e.header
}
