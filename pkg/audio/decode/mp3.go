// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes self-contained MP3 payloads to planar float32
package decode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces 16-bit stereo.
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3(format audio.Format) (Decoder, error) {
	if format.Codec != "mp3" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "invalid codec for MP3 decoder: %s", format.Codec)
	}
	return &MP3Decoder{}, nil
}

// Decode converts a run of MP3 frames to a unit.
func (d *MP3Decoder) Decode(data []byte) (audio.Unit, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return audio.Unit{}, errors.Wrap(err, "failed to create mp3 decoder")
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return audio.Unit{}, errors.Wrap(err, "mp3 decode error")
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = audio.Int16ToFloat32(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	return audio.Unit{
		Channels:   audio.Deinterleave(samples, 2),
		SampleRate: dec.SampleRate(),
	}, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
