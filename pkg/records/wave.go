// ABOUTME: Wave format header for the audio stream
// ABOUTME: Loosely follows WAVEFORMATEX; fields past byte 14 are optional
package records

import (
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/binread"
)

// Audio format tags carried in WaveFormatHeader.FormatTag.
const (
	FormatPCM   = 0x0001
	FormatMuLaw = 0x0007
	FormatMP3   = 0x0055
	FormatOpus  = 0x704F
	FormatFLAC  = 0xF1AC
)

// WaveFormatHeader describes the audio stream.
type WaveFormatHeader struct {
	// Valid is false when the input was shorter than 14 bytes; every
	// other field is then zero.
	Valid bool

	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16 // 0 unless the input had at least 18 bytes.
	CbSize         uint16 // 0 unless the input had at least 18 bytes.

	Raw []byte
}

// ParseWaveFormatHeader decodes a wave format header. Short input yields
// a header with Valid=false rather than an error.
func ParseWaveFormatHeader(buf []byte) WaveFormatHeader {
	h := WaveFormatHeader{Raw: buf}
	if len(buf) < 14 {
		return h
	}

	r := binread.New(buf)
	h.Valid = true
	h.FormatTag = r.Uint16LE()
	h.Channels = r.Uint16LE()
	h.SamplesPerSec = r.Uint32LE()
	h.AvgBytesPerSec = r.Uint32LE()
	h.BlockAlign = r.Uint16LE()
	if len(buf) >= 18 {
		h.BitsPerSample = r.Uint16LE()
		h.CbSize = r.Uint16LE()
	}
	return h
}

// Codec returns the decoder name for the format tag, or "" if unknown.
func (h WaveFormatHeader) Codec() string {
	switch h.FormatTag {
	case FormatPCM:
		return "pcm"
	case FormatMuLaw:
		return "mulaw"
	case FormatMP3:
		return "mp3"
	case FormatOpus:
		return "opus"
	case FormatFLAC:
		return "flac"
	}
	return ""
}

// Marshal wave format header (18 bytes).
func (h WaveFormatHeader) Marshal() []byte {
	out := make([]byte, 18)
	le := binary.LittleEndian
	le.PutUint16(out[0:2], h.FormatTag)
	le.PutUint16(out[2:4], h.Channels)
	le.PutUint32(out[4:8], h.SamplesPerSec)
	le.PutUint32(out[8:12], h.AvgBytesPerSec)
	le.PutUint16(out[12:14], h.BlockAlign)
	le.PutUint16(out[14:16], h.BitsPerSample)
	le.PutUint16(out[16:18], h.CbSize)
	return out
}
