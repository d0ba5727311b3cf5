// ABOUTME: Demuxer for the live camera feed
// ABOUTME: Reassembles typed blocks out of arbitrarily chunked network writes
package records

import (
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/stream"
	"github.com/pkg/errors"
)

// StreamMagic opens every feed.
const StreamMagic = "blue"

// BlockType identifies a block in the feed.
type BlockType uint8

// Block types.
const (
	BlockVideoHeader BlockType = 0
	BlockAudioHeader BlockType = 1
	BlockVideoFrame  BlockType = 2
	BlockAudioFrame  BlockType = 3
	BlockStatus      BlockType = 4
	BlockEnd         BlockType = 5
)

func (t BlockType) String() string {
	switch t {
	case BlockVideoHeader:
		return "video-header"
	case BlockAudioHeader:
		return "audio-header"
	case BlockVideoFrame:
		return "video-frame"
	case BlockAudioFrame:
		return "audio-frame"
	case BlockStatus:
		return "status"
	case BlockEnd:
		return "end"
	}
	return "unknown"
}

// Demuxer errors.
var (
	ErrBadMagic           = errors.New("stream does not start with magic")
	ErrUnknownBlock       = errors.New("unknown block type")
	ErrMissingAudioHeader = errors.New("audio frame before audio header")
	ErrStreamEnded        = errors.New("stream already ended")
)

// Block is one decoded unit of the feed. Exactly one pointer field is set,
// matching Type; BlockEnd sets none.
type Block struct {
	Type        BlockType
	VideoHeader *BitmapInfoHeader
	AudioHeader *WaveFormatHeader
	VideoFrame  *VideoFrame
	AudioFrame  *AudioFrame
	Status      *StatusBlock
}

type demuxState int

const (
	stateMagic demuxState = iota
	stateBlockType
	stateHeaderLength
	stateHeaderBody
	stateFrameMeta
	stateFramePayload
	stateStatus
	stateEnded
	stateFailed
)

// Demuxer turns feed bytes into blocks. Not safe for concurrent use.
type Demuxer struct {
	in    *stream.Accumulator
	state demuxState
	err   error

	blockType BlockType
	headerLen int
	meta      FrameMeta

	audioFormat *WaveFormatHeader
}

// NewDemuxer creates a demuxer waiting for the stream magic.
func NewDemuxer() *Demuxer {
	return &Demuxer{in: stream.New()}
}

// Write feeds network bytes. The demuxer takes ownership of chunk.
func (d *Demuxer) Write(chunk []byte) {
	d.in.Write(chunk)
}

// Buffered returns the number of bytes waiting to be parsed.
func (d *Demuxer) Buffered() int {
	return d.in.Count()
}

// AudioFormat returns the most recent audio header, or nil.
func (d *Demuxer) AudioFormat() *WaveFormatHeader {
	return d.audioFormat
}

// Next returns the next complete block. ok is false when more input is
// needed. A non-nil error is permanent for this demuxer.
func (d *Demuxer) Next() (block Block, ok bool, err error) {
	if d.state == stateFailed {
		return Block{}, false, d.err
	}

	for {
		switch d.state {
		case stateMagic:
			buf, ok := d.in.Read(len(StreamMagic))
			if !ok {
				return Block{}, false, nil
			}
			if string(buf) != StreamMagic {
				return Block{}, false, d.fail(errors.Wrapf(ErrBadMagic, "got %q", buf))
			}
			d.state = stateBlockType

		case stateBlockType:
			buf, ok := d.in.Read(1)
			if !ok {
				return Block{}, false, nil
			}
			d.blockType = BlockType(buf[0])
			switch d.blockType {
			case BlockVideoHeader, BlockAudioHeader:
				d.state = stateHeaderLength
			case BlockVideoFrame, BlockAudioFrame:
				d.state = stateFrameMeta
			case BlockStatus:
				d.state = stateStatus
			case BlockEnd:
				d.state = stateEnded
				return Block{Type: BlockEnd}, true, nil
			default:
				return Block{}, false, d.fail(errors.Wrapf(ErrUnknownBlock, "type %d", buf[0]))
			}

		case stateHeaderLength:
			buf, ok := d.in.Read(2)
			if !ok {
				return Block{}, false, nil
			}
			d.headerLen = int(binary.BigEndian.Uint16(buf))
			d.state = stateHeaderBody

		case stateHeaderBody:
			buf, ok := d.in.Read(d.headerLen)
			if !ok {
				return Block{}, false, nil
			}
			d.state = stateBlockType
			return d.headerBlock(buf)

		case stateFrameMeta:
			buf, ok := d.in.Read(FrameMetaSize)
			if !ok {
				return Block{}, false, nil
			}
			meta, err := ParseFrameMeta(buf)
			if err != nil {
				return Block{}, false, d.fail(err)
			}
			d.meta = meta
			d.state = stateFramePayload

		case stateFramePayload:
			buf, ok := d.in.Read(int(d.meta.Size))
			if !ok {
				return Block{}, false, nil
			}
			d.state = stateBlockType
			if d.blockType == BlockVideoFrame {
				return Block{Type: BlockVideoFrame, VideoFrame: NewVideoFrame(buf, d.meta)}, true, nil
			}
			if d.audioFormat == nil {
				return Block{}, false, d.fail(ErrMissingAudioHeader)
			}
			return Block{Type: BlockAudioFrame, AudioFrame: NewAudioFrame(buf, d.meta, d.audioFormat)}, true, nil

		case stateStatus:
			buf, ok := d.in.Read(StatusBlockSize)
			if !ok {
				return Block{}, false, nil
			}
			status, err := ParseStatusBlock(buf)
			if err != nil {
				return Block{}, false, d.fail(err)
			}
			d.state = stateBlockType
			return Block{Type: BlockStatus, Status: &status}, true, nil

		case stateEnded:
			if d.in.Count() > 0 {
				return Block{}, false, d.fail(ErrStreamEnded)
			}
			return Block{}, false, nil
		}
	}
}

func (d *Demuxer) headerBlock(buf []byte) (Block, bool, error) {
	if d.blockType == BlockVideoHeader {
		h, err := ParseBitmapInfoHeader(buf)
		if err != nil {
			return Block{}, false, d.fail(err)
		}
		return Block{Type: BlockVideoHeader, VideoHeader: &h}, true, nil
	}

	h := ParseWaveFormatHeader(buf)
	d.audioFormat = &h
	return Block{Type: BlockAudioHeader, AudioHeader: &h}, true, nil
}

func (d *Demuxer) fail(err error) error {
	d.state = stateFailed
	d.err = err
	return err
}

// Reset discards buffered input and waits for a new stream magic.
func (d *Demuxer) Reset() {
	d.in.Reset()
	d.state = stateMagic
	d.err = nil
	d.audioFormat = nil
}

// MarshalStreamHeader returns the bytes that open a feed.
func MarshalStreamHeader() []byte {
	return []byte(StreamMagic)
}

// MarshalVideoHeaderBlock frames a bitmap info header as a block.
func MarshalVideoHeaderBlock(h BitmapInfoHeader) []byte {
	return marshalHeaderBlock(BlockVideoHeader, h.Marshal())
}

// MarshalAudioHeaderBlock frames a wave format header as a block.
func MarshalAudioHeaderBlock(h WaveFormatHeader) []byte {
	return marshalHeaderBlock(BlockAudioHeader, h.Marshal())
}

func marshalHeaderBlock(t BlockType, body []byte) []byte {
	out := make([]byte, 3+len(body))
	out[0] = byte(t)
	binary.BigEndian.PutUint16(out[1:3], uint16(len(body)))
	copy(out[3:], body)
	return out
}

// MarshalFrameBlock frames a payload as a video or audio frame block.
// meta.Size is overwritten with len(payload).
func MarshalFrameBlock(t BlockType, meta FrameMeta, payload []byte) []byte {
	meta.Size = uint32(len(payload))
	out := make([]byte, 0, 1+FrameMetaSize+len(payload))
	out = append(out, byte(t))
	out = append(out, meta.Marshal()...)
	return append(out, payload...)
}

// MarshalStatusBlock frames a status block.
func MarshalStatusBlock(s StatusBlock) []byte {
	return append([]byte{byte(BlockStatus)}, s.Marshal()...)
}

// MarshalEndBlock returns the end-of-stream block.
func MarshalEndBlock() []byte {
	return []byte{byte(BlockEnd)}
}
