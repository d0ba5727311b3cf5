// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int16 samples to 16-bit or 24-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/pkg/errors"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder. A zero bit depth means 16.
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, errors.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	bitDepth := format.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	if bitDepth != 16 && bitDepth != 24 {
		return nil, errors.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}

	return &PCMEncoder{bitDepth: bitDepth}, nil
}

// Encode converts int16 samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int16) ([]byte, error) {
	if e.bitDepth == 24 {
		output := make([]byte, len(samples)*3)
		for i, sample := range samples {
			v := int32(sample) << 8
			output[i*3] = byte(v)
			output[i*3+1] = byte(v >> 8)
			output[i*3+2] = byte(v >> 16)
		}
		return output, nil
	}

	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(sample))
	}
	return output, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
