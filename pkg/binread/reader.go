// ABOUTME: Sequential binary cursor reader
// ABOUTME: Typed big/little-endian reads over one buffer with an advancing offset
package binread

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned when a read would run past the end of the buffer.
// It is fatal for the parse in progress.
var ErrOutOfBounds = errors.New("read past end of buffer")

// Cursor is a position inside a single buffer.
// Invariant: 0 <= Offset <= len(buffer).
type Cursor struct {
	Offset int
}

// Reader performs sequential typed reads over buf starting at the cursor.
//
// Errors are sticky: after the first out-of-bounds read every later read
// returns the zero value and leaves the cursor where it was. Check Err once
// after a group of reads.
type Reader struct {
	buf []byte
	cur Cursor
	err error
}

// New creates a reader positioned at the start of buf
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// NewAt creates a reader positioned at cur
func NewAt(buf []byte, cur Cursor) *Reader {
	r := &Reader{buf: buf, cur: cur}
	if cur.Offset < 0 || cur.Offset > len(buf) {
		r.err = errors.Wrapf(ErrOutOfBounds, "cursor %d outside buffer of %d bytes", cur.Offset, len(buf))
		r.cur.Offset = 0
	}
	return r
}

// Err returns the first error encountered, if any
func (r *Reader) Err() error {
	return r.err
}

// Cursor returns the current position
func (r *Reader) Cursor() Cursor {
	return r.cur
}

// Offset returns the number of bytes consumed so far
func (r *Reader) Offset() int {
	return r.cur.Offset
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.buf) - r.cur.Offset
}

// take advances the cursor by n and returns the consumed window
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = errors.Wrapf(ErrOutOfBounds, "need %d bytes at offset %d, have %d", n, r.cur.Offset, r.Remaining())
		return nil
	}
	b := r.buf[r.cur.Offset : r.cur.Offset+n]
	r.cur.Offset += n
	return b
}

// Byte reads one byte
func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a big-endian uint16
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// Uint16LE reads a little-endian uint16
func (r *Reader) Uint16LE() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Int16 reads a big-endian int16
func (r *Reader) Int16() int16 {
	return int16(r.Uint16())
}

// Int16LE reads a little-endian int16
func (r *Reader) Int16LE() int16 {
	return int16(r.Uint16LE())
}

// Uint32 reads a big-endian uint32
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Uint32LE reads a little-endian uint32
func (r *Reader) Uint32LE() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Int32 reads a big-endian int32
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Int32LE reads a little-endian int32
func (r *Reader) Int32LE() int32 {
	return int32(r.Uint32LE())
}

// Uint64 reads a big-endian uint64 as mostSignificant<<32 + leastSignificant.
//
// The value is exact over the full 64-bit range. Converting it to float64
// (for example to mix it with millisecond arithmetic) is only exact up to
// 2^53; wall-clock millisecond timestamps stay far below that ceiling.
func (r *Reader) Uint64() uint64 {
	hi := r.Uint32()
	lo := r.Uint32()
	if r.err != nil {
		return 0
	}
	return uint64(hi)<<32 | uint64(lo)
}

// Uint64LE reads a little-endian uint64. Same precision note as Uint64.
func (r *Reader) Uint64LE() uint64 {
	lo := r.Uint32LE()
	hi := r.Uint32LE()
	if r.err != nil {
		return 0
	}
	return uint64(hi)<<32 | uint64(lo)
}

// ASCII reads n bytes as a string, one character per byte.
// No multi-byte decoding is attempted.
func (r *Reader) ASCII(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// Sub copies the next n bytes into a new slice. The result does not alias
// the source buffer.
func (r *Reader) Sub(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Skip advances the cursor by n bytes
func (r *Reader) Skip(n int) {
	r.take(n)
}
