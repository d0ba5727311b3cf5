// ABOUTME: Silent output device for environments without audio
// ABOUTME: Every operation succeeds and reports a neutral default
package output

import (
	"github.com/camview/liveaudio/pkg/audio"
	"github.com/sirupsen/logrus"
)

// NoOp is used when no sound card is available.
type NoOp struct{}

func (NoOp) SampleRate() int                         { return 0 }
func (NoOp) Reconfigure(int) error                   { return nil }
func (NoOp) CurrentTime() float64                    { return 0 }
func (NoOp) Suspended() bool                         { return false }
func (NoOp) Suspend() error                          { return nil }
func (NoOp) Resume() error                           { return nil }
func (NoOp) SetGain(float64)                         {}
func (NoOp) Gain() float64                           { return 0 }
func (NoOp) Start(uint64, audio.Unit, float64) error { return nil }
func (NoOp) Stop(uint64)                             {}
func (NoOp) SetEndedHandler(func(uint64))            {}
func (NoOp) Close() error                            { return nil }

// Open returns the sound card device, or NoOp when it cannot be opened.
// The second result reports whether real audio is available.
func Open(unitRate int, log logrus.FieldLogger) (Device, bool) {
	dev, err := NewOto(unitRate, log)
	if err != nil {
		log.WithError(err).Warn("Audio output unavailable, continuing silently")
		return NoOp{}, false
	}
	return dev, true
}

// Available reports whether d produces sound.
func Available(d Device) bool {
	switch d.(type) {
	case NoOp, *NoOp:
		return false
	}
	return true
}
