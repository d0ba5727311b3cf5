// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets to planar float32
package decode

import (
	"sync"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/pkg/errors"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is the largest frame Opus produces per channel (120 ms at 48 kHz).
const maxOpusFrame = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	mu       sync.Mutex
	decoder  *opus.Decoder
	format   audio.Format
	channels int
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "invalid codec for Opus decoder: %s", format.Codec)
	}

	channels := channelCount(format)
	dec, err := opus.NewDecoder(format.SampleRate, channels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create opus decoder")
	}

	return &OpusDecoder{
		decoder:  dec,
		format:   format,
		channels: channels,
	}, nil
}

// Decode converts one Opus packet to a unit
func (d *OpusDecoder) Decode(data []byte) (audio.Unit, error) {
	pcm := make([]float32, maxOpusFrame*d.channels)

	d.mu.Lock()
	n, err := d.decoder.DecodeFloat32(data, pcm)
	d.mu.Unlock()
	if err != nil {
		return audio.Unit{}, errors.Wrap(err, "opus decode failed")
	}

	return audio.Unit{
		Channels:   audio.Deinterleave(pcm[:n*d.channels], d.channels),
		SampleRate: d.format.SampleRate,
	}, nil
}

// Stateful reports true: Opus keeps overlap and concealment history
// between packets.
func (d *OpusDecoder) Stateful() bool {
	return true
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
