// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes self-contained FLAC payloads to planar float32
package decode

import (
	"bytes"
	"io"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/pkg/errors"
)

// FLACDecoder decodes FLAC audio. Every payload must carry its own
// stream header, so payloads can be decoded in any order.
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC(format audio.Format) (Decoder, error) {
	if format.Codec != "flac" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "invalid codec for FLAC decoder: %s", format.Codec)
	}
	return &FLACDecoder{}, nil
}

// Decode parses every frame in the payload.
func (d *FLACDecoder) Decode(data []byte) (audio.Unit, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return audio.Unit{}, errors.Wrap(err, "flac stream header")
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))
	out := make([][]float32, channels)

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return audio.Unit{}, errors.Wrap(err, "flac frame")
		}
		for c := 0; c < channels && c < len(frame.Subframes); c++ {
			for _, s := range frame.Subframes[c].Samples {
				out[c] = append(out[c], float32(s)/scale)
			}
		}
	}

	return audio.Unit{
		Channels:   out,
		SampleRate: int(stream.Info.SampleRate),
	}, nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}
