// ABOUTME: Audio output device capability
// ABOUTME: Clocked device interface that plays units scheduled at absolute times
package output

import "github.com/camview/liveaudio/pkg/audio"

// Device is an audio output with its own clock. Units are scheduled at
// absolute clock times and report completion through the ended handler.
//
// The clock is stopped while the device is suspended. Reconfigure tears the
// clock down and starts a new one at 0, dropping every scheduled unit
// without notification.
type Device interface {
	// SampleRate is the rate units are expected to arrive at.
	SampleRate() int

	// Reconfigure switches to a new unit sample rate. Gain is preserved.
	Reconfigure(sampleRate int) error

	// CurrentTime returns the device clock in seconds.
	CurrentTime() float64

	Suspended() bool
	Suspend() error
	Resume() error

	// SetGain sets the linear output gain, already shaped by the caller.
	SetGain(gain float64)
	Gain() float64

	// Start schedules u to begin at clock time at. A time in the past
	// starts the unit immediately.
	Start(id uint64, u audio.Unit, at float64) error

	// Stop cancels a scheduled or playing unit. Its ended handler does
	// not fire.
	Stop(id uint64)

	// SetEndedHandler registers the completion callback. It may be invoked
	// from a device goroutine.
	SetEndedHandler(func(id uint64))

	// Close releases output resources
	Close() error
}
