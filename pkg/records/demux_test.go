// ABOUTME: Tests for the feed demuxer
// ABOUTME: Tests block reassembly across arbitrary chunk boundaries
package records

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFeed() ([]byte, WaveFormatHeader) {
	wave := WaveFormatHeader{
		Valid: true, FormatTag: FormatMuLaw, Channels: 1,
		SamplesPerSec: 8000, AvgBytesPerSec: 8000, BlockAlign: 1, BitsPerSample: 8,
	}
	bitmap := BitmapInfoHeader{Size: 40, Width: 640, Height: 480, Planes: 1, BitsPerPixel: 24, Compression: "H264"}

	var feed []byte
	feed = append(feed, MarshalStreamHeader()...)
	feed = append(feed, MarshalVideoHeaderBlock(bitmap)...)
	feed = append(feed, MarshalAudioHeaderBlock(wave)...)
	feed = append(feed, MarshalStatusBlock(StatusBlock{Motion: true, FPS: 1500})...)
	feed = append(feed, MarshalFrameBlock(BlockVideoFrame, FrameMeta{Time: 10, UTC: 1700000000000}, []byte{0, 0, 1, 0x65, 1, 2})...)
	feed = append(feed, MarshalFrameBlock(BlockAudioFrame, FrameMeta{Time: 20}, []byte{0xFF, 0x00, 0x7F})...)
	feed = append(feed, MarshalEndBlock()...)
	return feed, wave
}

func drain(t *testing.T, d *Demuxer) []Block {
	t.Helper()
	var blocks []Block
	for {
		b, ok, err := d.Next()
		require.NoError(t, err)
		if !ok {
			return blocks
		}
		blocks = append(blocks, b)
	}
}

func TestDemuxerWholeFeed(t *testing.T) {
	feed, wave := testFeed()

	d := NewDemuxer()
	d.Write(feed)
	blocks := drain(t, d)

	require.Len(t, blocks, 6)
	require.Equal(t, BlockVideoHeader, blocks[0].Type)
	require.Equal(t, "H264", blocks[0].VideoHeader.Compression)
	require.Equal(t, int32(640), blocks[0].VideoHeader.Width)

	require.Equal(t, BlockAudioHeader, blocks[1].Type)
	require.Equal(t, uint32(8000), blocks[1].AudioHeader.SamplesPerSec)

	require.Equal(t, BlockStatus, blocks[2].Type)
	require.True(t, blocks[2].Status.Motion)
	require.Equal(t, 15.0, blocks[2].Status.FramesPerSecond())

	require.Equal(t, BlockVideoFrame, blocks[3].Type)
	require.True(t, blocks[3].VideoFrame.IsKeyframe())
	require.Equal(t, uint64(1700000000000), blocks[3].VideoFrame.Meta.UTC)
	require.Equal(t, uint32(6), blocks[3].VideoFrame.Meta.Size)

	require.Equal(t, BlockAudioFrame, blocks[4].Type)
	require.Equal(t, []byte{0xFF, 0x00, 0x7F}, blocks[4].AudioFrame.Data)
	require.True(t, blocks[4].AudioFrame.IsKeyframe())
	require.Equal(t, wave.FormatTag, blocks[4].AudioFrame.Format.FormatTag)

	require.Equal(t, BlockEnd, blocks[5].Type)
	require.Equal(t, 0, d.Buffered())
}

func TestDemuxerByteAtATime(t *testing.T) {
	feed, _ := testFeed()

	d := NewDemuxer()
	var blocks []Block
	for _, b := range feed {
		d.Write([]byte{b})
		blocks = append(blocks, drain(t, d)...)
	}

	require.Len(t, blocks, 6)
	require.Equal(t, BlockEnd, blocks[5].Type)
}

func TestDemuxerBadMagic(t *testing.T) {
	d := NewDemuxer()
	d.Write([]byte("nope"))

	_, ok, err := d.Next()
	require.False(t, ok)
	require.True(t, errors.Is(err, ErrBadMagic))

	// Failure is permanent until Reset.
	d.Write(MarshalStreamHeader())
	_, _, err = d.Next()
	require.True(t, errors.Is(err, ErrBadMagic))

	d.Reset()
	d.Write(MarshalStreamHeader())
	d.Write(MarshalEndBlock())
	b, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, BlockEnd, b.Type)
}

func TestDemuxerUnknownBlock(t *testing.T) {
	d := NewDemuxer()
	d.Write(append(MarshalStreamHeader(), 9))

	_, _, err := d.Next()
	require.True(t, errors.Is(err, ErrUnknownBlock))
}

func TestDemuxerAudioBeforeHeader(t *testing.T) {
	d := NewDemuxer()
	d.Write(MarshalStreamHeader())
	d.Write(MarshalFrameBlock(BlockAudioFrame, FrameMeta{}, []byte{1}))

	_, _, err := d.Next()
	require.True(t, errors.Is(err, ErrMissingAudioHeader))
}

func TestDemuxerDataAfterEnd(t *testing.T) {
	d := NewDemuxer()
	d.Write(MarshalStreamHeader())
	d.Write(MarshalEndBlock())
	drain(t, d)

	d.Write([]byte{byte(BlockStatus)})
	_, _, err := d.Next()
	require.True(t, errors.Is(err, ErrStreamEnded))
}
