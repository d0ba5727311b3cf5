// ABOUTME: Manually clocked output device for scheduler tests
// ABOUTME: Records every call the scheduler makes
package playback

import (
	"io"
	"time"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/sirupsen/logrus"
)

type startCall struct {
	id   uint64
	at   float64
	unit audio.Unit
}

type fakeDevice struct {
	rate         int
	now          float64
	suspended    bool
	stuck        bool // ignores Resume, like a browser blocking autoplay
	gain         float64
	starts       []startCall
	stops        []uint64
	reconfigures []int
	startErr     error
}

func newFakeDevice(rate int) *fakeDevice {
	return &fakeDevice{rate: rate, gain: 1, suspended: true}
}

func (d *fakeDevice) SampleRate() int { return d.rate }

func (d *fakeDevice) Reconfigure(rate int) error {
	d.rate = rate
	d.now = 0
	d.reconfigures = append(d.reconfigures, rate)
	return nil
}

func (d *fakeDevice) CurrentTime() float64 { return d.now }
func (d *fakeDevice) Suspended() bool      { return d.suspended }

func (d *fakeDevice) Suspend() error {
	d.suspended = true
	return nil
}

func (d *fakeDevice) Resume() error {
	if !d.stuck {
		d.suspended = false
	}
	return nil
}

func (d *fakeDevice) SetGain(g float64) { d.gain = g }
func (d *fakeDevice) Gain() float64     { return d.gain }

func (d *fakeDevice) Start(id uint64, u audio.Unit, at float64) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.starts = append(d.starts, startCall{id: id, at: at, unit: u})
	return nil
}

func (d *fakeDevice) Stop(id uint64)                  { d.stops = append(d.stops, id) }
func (d *fakeDevice) SetEndedHandler(func(id uint64)) {}
func (d *fakeDevice) Close() error                    { return nil }

// fakeTimer records AfterFunc requests so tests can fire them by hand.
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// unitOf returns a mono unit lasting seconds at rate.
func unitOf(seconds float64, rate int) audio.Unit {
	return audio.Unit{
		Channels:   [][]float32{make([]float32, int(seconds*float64(rate)))},
		SampleRate: rate,
	}
}
