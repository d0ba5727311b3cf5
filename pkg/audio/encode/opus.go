// ABOUTME: Opus audio encoder
// ABOUTME: Encodes int16 frames to Opus packets
package encode

import (
	"sync"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/pkg/errors"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket bounds one encoded packet.
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio. Safe for concurrent use.
type OpusEncoder struct {
	mu         sync.Mutex
	encoder    *opus.Encoder
	sampleRate int
	channels   int
}

// NewOpus creates a new Opus encoder. Frames passed to Encode must have a
// duration Opus accepts, such as 20ms.
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, errors.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}

	encoder, err := opus.NewEncoder(format.SampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create opus encoder")
	}
	if err := encoder.SetBitrate(32000 * channels); err != nil {
		return nil, errors.Wrap(err, "failed to set opus bitrate")
	}

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: format.SampleRate,
		channels:   channels,
	}, nil
}

// Encode converts interleaved samples to one Opus packet
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(samples, data)
	if err != nil {
		return nil, errors.Wrap(err, "opus encode error")
	}
	return data[:n], nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
