// ABOUTME: BITMAPINFOHEADER video stream header
// ABOUTME: Little-endian layout describing frame size and codec tag
package records

import (
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/binread"
	"github.com/pkg/errors"
)

// BitmapInfoHeaderSize is the size of the fields read by ParseBitmapInfoHeader.
const BitmapInfoHeaderSize = 40

// BitmapInfoHeader describes the video stream.
type BitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16 // Always 1.
	BitsPerPixel  uint16
	Compression   string // Codec tag, e.g. "H264" or "MJPG". Informational only.
	ImageSize     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32

	Raw []byte
}

// ParseBitmapInfoHeader decodes a bitmap info header from buf.
func ParseBitmapInfoHeader(buf []byte) (BitmapInfoHeader, error) {
	r := binread.New(buf)

	h := BitmapInfoHeader{Raw: buf}
	h.Size = r.Uint32LE()
	h.Width = r.Int32LE()
	h.Height = r.Int32LE()
	h.Planes = r.Uint16LE()
	h.BitsPerPixel = r.Uint16LE()
	h.Compression = r.ASCII(4)
	h.ImageSize = r.Uint32LE()
	h.XPelsPerMeter = r.Int32LE()
	h.YPelsPerMeter = r.Int32LE()
	h.ClrUsed = r.Uint32LE()
	h.ClrImportant = r.Uint32LE()

	if err := r.Err(); err != nil {
		return BitmapInfoHeader{}, errors.Wrap(err, "bitmap info header")
	}
	return h, nil
}

// Marshal bitmap info header.
func (h BitmapInfoHeader) Marshal() []byte {
	out := make([]byte, BitmapInfoHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(out[0:4], h.Size)
	le.PutUint32(out[4:8], uint32(h.Width))
	le.PutUint32(out[8:12], uint32(h.Height))
	le.PutUint16(out[12:14], h.Planes)
	le.PutUint16(out[14:16], h.BitsPerPixel)
	copy(out[16:20], h.Compression)
	le.PutUint32(out[20:24], h.ImageSize)
	le.PutUint32(out[24:28], uint32(h.XPelsPerMeter))
	le.PutUint32(out[28:32], uint32(h.YPelsPerMeter))
	le.PutUint32(out[32:36], h.ClrUsed)
	le.PutUint32(out[36:40], h.ClrImportant)
	return out
}
