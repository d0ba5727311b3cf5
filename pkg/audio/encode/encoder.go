// ABOUTME: Encoder interface definition
// ABOUTME: Common interface and codec selection for all audio encoders
package encode

import (
	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/audio/decode"
	"github.com/pkg/errors"
)

// Codecs lists the codecs New accepts.
var Codecs = []string{"mulaw", "pcm", "opus"}

// Encoder encodes interleaved PCM samples
type Encoder interface {
	// Encode converts one frame of samples to a payload
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New returns an encoder for the format's codec.
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "mulaw":
		return NewMuLaw(format)
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	}
	return nil, errors.Wrapf(decode.ErrUnsupportedFormat, "cannot encode %q", format.Codec)
}

// MuLawEncoder compands samples to 8-bit mu-law
type MuLawEncoder struct{}

// NewMuLaw creates a mu-law encoder
func NewMuLaw(format audio.Format) (Encoder, error) {
	if format.Codec != "mulaw" {
		return nil, errors.Errorf("invalid codec for mu-law encoder: %s", format.Codec)
	}
	return MuLawEncoder{}, nil
}

// Encode compands each sample to one byte
func (MuLawEncoder) Encode(samples []int16) ([]byte, error) {
	out := make([]byte, len(samples))
	for i, v := range samples {
		out[i] = decode.EncodeMuLaw(v)
	}
	return out, nil
}

// Close releases resources
func (MuLawEncoder) Close() error { return nil }
