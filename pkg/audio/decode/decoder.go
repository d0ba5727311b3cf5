// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus codec selection
package decode

import (
	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/records"
	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned when no decoder handles a format.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder decodes one self-contained encoded payload into planar audio.
// Implementations must be safe for concurrent use.
type Decoder interface {
	// Decode converts an encoded payload into a unit. The returned unit
	// has a zero sequence index; callers assign their own.
	Decode(data []byte) (audio.Unit, error)

	// Close releases decoder resources
	Close() error
}

// Stateful is implemented by decoders whose output depends on earlier
// payloads. Async feeds them one payload at a time in submission order.
type Stateful interface {
	Stateful() bool
}

// IsStateful reports whether d must see payloads in order.
func IsStateful(d Decoder) bool {
	s, ok := d.(Stateful)
	return ok && s.Stateful()
}

// FormatFromWave maps a feed audio header onto a Format.
func FormatFromWave(h records.WaveFormatHeader) audio.Format {
	return audio.Format{
		Codec:       h.Codec(),
		SampleRate:  int(h.SamplesPerSec),
		Channels:    int(h.Channels),
		BitDepth:    int(h.BitsPerSample),
		CodecHeader: h.Raw,
	}
}

// New returns a decoder for the format's codec.
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "mulaw":
		return NewMuLaw(format)
	case "pcm":
		return NewPCM(format)
	case "flac":
		return NewFLAC(format)
	case "opus":
		return NewOpus(format)
	case "mp3":
		return NewMP3(format)
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "codec %q", format.Codec)
}

func channelCount(format audio.Format) int {
	if format.Channels <= 0 {
		return 1
	}
	return format.Channels
}
