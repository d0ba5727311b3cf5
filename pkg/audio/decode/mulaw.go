// ABOUTME: Mu-law audio decoder and encoder
// ABOUTME: Table-driven G.711 mu-law expansion to 16-bit and float samples
package decode

import (
	"github.com/camview/liveaudio/pkg/audio"
	"github.com/pkg/errors"
)

// muLawTable maps an encoded byte to its 16-bit linear value.
var muLawTable = [256]int16{
	-32124, -31100, -30076, -29052, -28028, -27004, -25980, -24956,
	-23932, -22908, -21884, -20860, -19836, -18812, -17788, -16764,
	-15996, -15484, -14972, -14460, -13948, -13436, -12924, -12412,
	-11900, -11388, -10876, -10364, -9852, -9340, -8828, -8316,
	-7932, -7676, -7420, -7164, -6908, -6652, -6396, -6140,
	-5884, -5628, -5372, -5116, -4860, -4604, -4348, -4092,
	-3900, -3772, -3644, -3516, -3388, -3260, -3132, -3004,
	-2876, -2748, -2620, -2492, -2364, -2236, -2108, -1980,
	-1884, -1820, -1756, -1692, -1628, -1564, -1500, -1436,
	-1372, -1308, -1244, -1180, -1116, -1052, -988, -924,
	-876, -844, -812, -780, -748, -716, -684, -652,
	-620, -588, -556, -524, -492, -460, -428, -396,
	-372, -356, -340, -324, -308, -292, -276, -260,
	-244, -228, -212, -196, -180, -164, -148, -132,
	-120, -112, -104, -96, -88, -80, -72, -64,
	-56, -48, -40, -32, -24, -16, -8, -1,
	32124, 31100, 30076, 29052, 28028, 27004, 25980, 24956,
	23932, 22908, 21884, 20860, 19836, 18812, 17788, 16764,
	15996, 15484, 14972, 14460, 13948, 13436, 12924, 12412,
	11900, 11388, 10876, 10364, 9852, 9340, 8828, 8316,
	7932, 7676, 7420, 7164, 6908, 6652, 6396, 6140,
	5884, 5628, 5372, 5116, 4860, 4604, 4348, 4092,
	3900, 3772, 3644, 3516, 3388, 3260, 3132, 3004,
	2876, 2748, 2620, 2492, 2364, 2236, 2108, 1980,
	1884, 1820, 1756, 1692, 1628, 1564, 1500, 1436,
	1372, 1308, 1244, 1180, 1116, 1052, 988, 924,
	876, 844, 812, 780, 748, 716, 684, 652,
	620, 588, 556, 524, 492, 460, 428, 396,
	372, 356, 340, 324, 308, 292, 276, 260,
	244, 228, 212, 196, 180, 164, 148, 132,
	120, 112, 104, 96, 88, 80, 72, 64,
	56, 48, 40, 32, 24, 16, 8, 0,
}

// MuLawToInt16 expands encoded mu-law bytes to 16-bit linear samples.
func MuLawToInt16(encoded []byte) []int16 {
	out := make([]int16, len(encoded))
	for i, b := range encoded {
		out[i] = muLawTable[b]
	}
	return out
}

// MuLawToFloat32 expands encoded mu-law bytes to samples in [-1, 1].
func MuLawToFloat32(encoded []byte) []float32 {
	out := make([]float32, len(encoded))
	for i, b := range encoded {
		out[i] = float32(muLawTable[b]) / 32768
	}
	return out
}

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// EncodeMuLaw compresses a 16-bit linear sample to mu-law.
func EncodeMuLaw(sample int16) byte {
	s := int(sample)
	sign := 0
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exponent := 7
	for mask := 0x4000; exponent > 0 && s&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> (exponent + 3)) & 0x0F
	return ^byte(sign | exponent<<4 | mantissa)
}

// MuLawDecoder decodes interleaved 8-bit mu-law.
type MuLawDecoder struct {
	sampleRate int
	channels   int
}

// NewMuLaw creates a new mu-law decoder
func NewMuLaw(format audio.Format) (Decoder, error) {
	if format.Codec != "mulaw" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "invalid codec for mu-law decoder: %s", format.Codec)
	}
	if format.SampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate: %d", format.SampleRate)
	}

	return &MuLawDecoder{
		sampleRate: format.SampleRate,
		channels:   channelCount(format),
	}, nil
}

// Decode expands the payload. It never fails.
func (d *MuLawDecoder) Decode(data []byte) (audio.Unit, error) {
	return audio.Unit{
		Channels:   audio.Deinterleave(MuLawToFloat32(data), d.channels),
		SampleRate: d.sampleRate,
	}, nil
}

// Close releases resources
func (d *MuLawDecoder) Close() error {
	return nil
}
