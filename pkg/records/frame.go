// ABOUTME: Audio and video frame wrappers
// ABOUTME: Frame metadata plus keyframe classification for both media types
package records

import (
	"bytes"
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/binread"
	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// FrameMetaSize is the marshaled size of FrameMeta.
const FrameMetaSize = 18

// keyframeScanLimit is how many leading payload bytes are searched for a
// start code.
const keyframeScanLimit = 1000

// FrameMeta precedes every frame payload in the feed.
type FrameMeta struct {
	Pos  uint16 // Position in the clip, 0 to 10000 (percent * 100).
	Time uint32 // Milliseconds since the start of the stream.
	UTC  uint64 // Milliseconds since the unix epoch.
	Size uint32 // Payload size in bytes.
}

// ParseFrameMeta decodes frame metadata from buf.
func ParseFrameMeta(buf []byte) (FrameMeta, error) {
	r := binread.New(buf)

	var m FrameMeta
	m.Pos = r.Uint16()
	m.Time = r.Uint32()
	m.UTC = r.Uint64()
	m.Size = r.Uint32()

	if err := r.Err(); err != nil {
		return FrameMeta{}, errors.Wrap(err, "frame metadata")
	}
	return m, nil
}

// Marshal frame metadata.
func (m FrameMeta) Marshal() []byte {
	out := make([]byte, FrameMetaSize)
	binary.BigEndian.PutUint16(out[0:2], m.Pos)
	binary.BigEndian.PutUint32(out[2:6], m.Time)
	binary.BigEndian.PutUint64(out[6:14], m.UTC)
	binary.BigEndian.PutUint32(out[14:18], m.Size)
	return out
}

// Keyframe is a cached keyframe classification.
type Keyframe uint8

// Keyframe states.
const (
	KeyframeUnknown Keyframe = iota
	KeyframeYes
	KeyframeNo
)

func (k Keyframe) String() string {
	switch k {
	case KeyframeYes:
		return "key"
	case KeyframeNo:
		return "non-key"
	}
	return "unknown"
}

// VideoFrame owns one compressed video frame.
type VideoFrame struct {
	Meta FrameMeta
	Data []byte

	keyframe Keyframe
}

// NewVideoFrame wraps payload and metadata.
func NewVideoFrame(data []byte, meta FrameMeta) *VideoFrame {
	return &VideoFrame{Meta: meta, Data: data}
}

// KeyframeState returns the cached classification without scanning.
func (f *VideoFrame) KeyframeState() Keyframe {
	return f.keyframe
}

// IsKeyframe reports whether the frame is decodable on its own.
//
// This is a heuristic, not a bitstream parse: it looks at the first NAL
// unit with a slice type (1 to 5) found after an Annex B start code within
// the first 1000 bytes and trusts it for the whole frame. A decisive answer
// is cached; if no slice NAL unit is found the frame is reported as
// non-key and the scan is repeated on the next call.
func (f *VideoFrame) IsKeyframe() bool {
	switch f.keyframe {
	case KeyframeYes:
		return true
	case KeyframeNo:
		return false
	}

	k := scanKeyframe(f.Data)
	f.keyframe = k
	return k == KeyframeYes
}

func scanKeyframe(data []byte) Keyframe {
	end := len(data)
	if end > keyframeScanLimit+1 {
		end = keyframeScanLimit + 1
	}
	end--

	zeroBytes := 0
	for i := 0; i < end; i++ {
		if data[i] == 0 {
			zeroBytes++
			continue
		}
		if zeroBytes >= 2 && data[i] == 1 {
			switch naluType(data[i+1]) {
			case 5:
				return KeyframeYes
			case 1, 2, 3, 4:
				return KeyframeNo
			}
		}
		zeroBytes = 0
	}
	return KeyframeUnknown
}

// naluType extracts nal_unit_type from a NAL unit header byte.
func naluType(header byte) uint8 {
	br := bitio.NewReader(bytes.NewReader([]byte{header}))
	br.ReadBits(1) // forbidden_zero_bit
	br.ReadBits(2) // nal_ref_idc
	typ, err := br.ReadBits(5)
	if err != nil {
		return 0
	}
	return uint8(typ)
}

// AudioFrame owns one compressed audio frame and the format it was
// encoded with.
type AudioFrame struct {
	Meta   FrameMeta
	Data   []byte
	Format *WaveFormatHeader
}

// NewAudioFrame wraps payload, metadata and format.
func NewAudioFrame(data []byte, meta FrameMeta, format *WaveFormatHeader) *AudioFrame {
	return &AudioFrame{Meta: meta, Data: data, Format: format}
}

// IsKeyframe reports true for mu-law audio, which has no inter-frame state.
func (f *AudioFrame) IsKeyframe() bool {
	return f.Format != nil && f.Format.FormatTag == FormatMuLaw
}
