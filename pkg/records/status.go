// ABOUTME: Camera status block record
// ABOUTME: Ten flag bytes followed by fps, audio peak and pause duration
package records

import (
	"encoding/binary"

	"github.com/camview/liveaudio/pkg/binread"
	"github.com/pkg/errors"
)

// StatusBlockSize is the marshaled size of a StatusBlock.
const StatusBlockSize = 22

// StatusBlock reports the live state of a camera.
type StatusBlock struct {
	Recording  bool
	Motion     bool
	CheckFPS   bool
	Triggered  bool
	SignalLost bool
	PushError  bool
	FlashError bool
	ForceMovie bool
	Reserved   [2]byte

	FPS       int32 // Hundredths of a frame per second.
	AudioPeak int32 // 0 to 32767.
	Pause     int32 // Pause duration reported by the server.
}

// ParseStatusBlock decodes a status block from the start of buf.
func ParseStatusBlock(buf []byte) (StatusBlock, error) {
	r := binread.New(buf)

	var s StatusBlock
	s.Recording = r.Byte() != 0
	s.Motion = r.Byte() != 0
	s.CheckFPS = r.Byte() != 0
	s.Triggered = r.Byte() != 0
	s.SignalLost = r.Byte() != 0
	s.PushError = r.Byte() != 0
	s.FlashError = r.Byte() != 0
	s.ForceMovie = r.Byte() != 0
	s.Reserved[0] = r.Byte()
	s.Reserved[1] = r.Byte()

	s.FPS = r.Int32()
	s.AudioPeak = r.Int32()
	s.Pause = r.Int32()

	if err := r.Err(); err != nil {
		return StatusBlock{}, errors.Wrap(err, "status block")
	}
	return s, nil
}

// FramesPerSecond returns FPS as a decimal value.
func (s StatusBlock) FramesPerSecond() float64 {
	return float64(s.FPS) / 100
}

// PeakLevel returns the audio peak normalized to [0,1].
func (s StatusBlock) PeakLevel() float64 {
	if s.AudioPeak <= 0 {
		return 0
	}
	if s.AudioPeak >= 32767 {
		return 1
	}
	return float64(s.AudioPeak) / 32767
}

// Marshal status block.
func (s StatusBlock) Marshal() []byte {
	out := make([]byte, StatusBlockSize)
	flags := []bool{
		s.Recording, s.Motion, s.CheckFPS, s.Triggered,
		s.SignalLost, s.PushError, s.FlashError, s.ForceMovie,
	}
	for i, f := range flags {
		if f {
			out[i] = 1
		}
	}
	out[8] = s.Reserved[0]
	out[9] = s.Reserved[1]
	binary.BigEndian.PutUint32(out[10:14], uint32(s.FPS))
	binary.BigEndian.PutUint32(out[14:18], uint32(s.AudioPeak))
	binary.BigEndian.PutUint32(out[18:22], uint32(s.Pause))
	return out
}
