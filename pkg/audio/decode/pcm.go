// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM to planar float32
package decode

import (
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/pkg/errors"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	sampleRate int
	channels   int
	bitDepth   int
}

// NewPCM creates a new PCM decoder. A zero bit depth means 16.
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "invalid codec for PCM decoder: %s", format.Codec)
	}

	bitDepth := format.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	if bitDepth != 16 && bitDepth != 24 {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "bit depth %d (supported: 16, 24)", bitDepth)
	}
	if format.SampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate: %d", format.SampleRate)
	}

	return &PCMDecoder{
		sampleRate: format.SampleRate,
		channels:   channelCount(format),
		bitDepth:   bitDepth,
	}, nil
}

// Decode converts PCM bytes to a unit. Trailing partial samples are ignored.
func (d *PCMDecoder) Decode(data []byte) (audio.Unit, error) {
	var samples []float32
	if d.bitDepth == 24 {
		samples = make([]float32, len(data)/3)
		for i := range samples {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.Int24ToFloat32(audio.SampleFrom24Bit(b))
		}
	} else {
		samples = make([]float32, len(data)/2)
		for i := range samples {
			samples[i] = audio.Int16ToFloat32(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}

	return audio.Unit{
		Channels:   audio.Deinterleave(samples, d.channels),
		SampleRate: d.sampleRate,
	}, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
