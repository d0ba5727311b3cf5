// ABOUTME: Clock-synchronized playback scheduler
// ABOUTME: Places ordered units on the device clock with late, drop and mute policy
package playback

import (
	"math"
	"time"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/audio/output"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Scheduling constants.
const (
	InitialDelay       = 0.2 // seconds of headroom before the first unit
	DefaultTargetDelay = time.Second
	MaxTargetDelay     = 5 * time.Second
	MuteDelay          = time.Second
)

// Indicator is the playback state shown to the user.
type Indicator int

// Indicator states.
const (
	IndicatorIdle Indicator = iota
	IndicatorPlaying
	IndicatorLoading
	IndicatorError
)

func (i Indicator) String() string {
	switch i {
	case IndicatorPlaying:
		return "playing"
	case IndicatorLoading:
		return "loading"
	case IndicatorError:
		return "error"
	}
	return "idle"
}

// Outcome is what Accept did with a unit.
type Outcome int

// Accept outcomes.
const (
	Scheduled Outcome = iota
	ScheduledLate
	Dropped
	Ignored
)

// Visualization describes one admitted unit for waveform displays.
type Visualization struct {
	Channels     [][]float32
	SampleRate   int
	CurrentTime  float64
	NextFreeTime float64
	Duration     float64
}

// Hooks notify collaborators of scheduler events. Any hook may be nil.
type Hooks struct {
	OnIndicator       func(Indicator)
	OnAudioToggle     func(enabled bool)
	OnVolumeChanged   func(volume float64)
	OnInputRequired   func()
	OnVisualize       func(Visualization)
	OnVisualizerReset func()
	OnDeviceError     func(error)
}

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// Options configures a Scheduler.
type Options struct {
	// TargetDelay is the most audio allowed to queue ahead of the clock.
	// Clamped to [0, MaxTargetDelay].
	TargetDelay time.Duration

	// AutoplayWarning asks for the input-required overlay when the device
	// refuses to start without a user gesture.
	AutoplayWarning bool

	Hooks Hooks
	Log   logrus.FieldLogger

	// AfterFunc runs f after d. f touches scheduler state, so it must run
	// on the goroutine that owns the scheduler; callers with an event loop
	// post f into it. The default, time.AfterFunc, runs f on a timer
	// goroutine and is only safe for single-goroutine use with no other
	// calls in flight when the mute delay expires.
	AfterFunc func(d time.Duration, f func()) Timer
}

// Stats tracks scheduler metrics
type Stats struct {
	Received int64
	Played   int64
	Late     int64
	Dropped  int64
}

// Scheduler owns the output clock. Not safe for concurrent use; device
// completions must be delivered through Ended on the caller's goroutine.
type Scheduler struct {
	dev     output.Device
	enabled bool

	targetDelay  float64 // seconds
	nextFreeTime float64
	suspended    bool

	pending map[uint64]float64 // unit id to duration
	nextID  uint64

	volume    float64 // last requested volume, -1 if never set
	muteTimer Timer

	gestureStarted bool
	gestureFired   bool

	hooks     Hooks
	warn      bool
	afterFunc func(time.Duration, func()) Timer
	log       logrus.FieldLogger
	dropLog   *rate.Limiter

	stats Stats
}

// NewScheduler creates a suspended scheduler driving dev.
func NewScheduler(dev output.Device, opts Options) *Scheduler {
	target := opts.TargetDelay
	if target < 0 {
		target = 0
	}
	if target > MaxTargetDelay {
		target = MaxTargetDelay
	}

	afterFunc := opts.AfterFunc
	if afterFunc == nil {
		afterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Scheduler{
		dev:         dev,
		enabled:     output.Available(dev),
		targetDelay: target.Seconds(),
		suspended:   true,
		pending:     make(map[uint64]float64),
		volume:      -1,
		hooks:       opts.Hooks,
		warn:        opts.AutoplayWarning,
		afterFunc:   afterFunc,
		log:         log,
		dropLog:     rate.NewLimiter(rate.Every(time.Second), 1),
	}
	dev.Suspend()
	return s
}

// Accept schedules u after everything already queued. Late units start
// immediately; units that would exceed the target delay are dropped.
func (s *Scheduler) Accept(u audio.Unit) (Outcome, error) {
	if !s.enabled || u.Frames() == 0 {
		return Ignored, nil
	}
	s.stats.Received++

	if u.SampleRate != s.dev.SampleRate() {
		if err := s.reconfigure(u.SampleRate); err != nil {
			return Ignored, err
		}
	}
	if s.suspended {
		s.suspended = false
		if err := s.dev.Resume(); err != nil {
			s.deviceError(errors.Wrap(err, "failed to resume output"))
		}
	}

	now := s.dev.CurrentTime()
	if s.nextFreeTime == 0 {
		s.nextFreeTime = now + InitialDelay
	}

	outcome := Scheduled
	offset := now - s.nextFreeTime
	if offset > 0 {
		s.nextFreeTime = now
		s.stats.Late++
		outcome = ScheduledLate
	} else if offset < -s.targetDelay {
		s.checkUserInput()
		s.stats.Dropped++
		if s.gestureFired && s.dropLog.Allow() {
			s.log.WithFields(logrus.Fields{
				"current_time": now,
				"queued":       -offset,
			}).Warn("Audio buffer is overfull, dropping unit")
		}
		return Dropped, nil
	}

	id := s.nextID
	s.nextID++
	if err := s.dev.Start(id, u, s.nextFreeTime); err != nil {
		err = errors.Wrap(err, "failed to start unit")
		s.deviceError(err)
		return Ignored, err
	}

	duration := u.Duration()
	s.pending[id] = duration
	s.indicate(IndicatorPlaying)

	s.nextFreeTime += duration

	if s.hooks.OnVisualize != nil {
		s.hooks.OnVisualize(Visualization{
			Channels:     u.Channels,
			SampleRate:   u.SampleRate,
			CurrentTime:  now,
			NextFreeTime: s.nextFreeTime,
			Duration:     duration,
		})
	}
	return outcome, nil
}

// Ended handles the device's completion notification for unit id.
// Notifications for cancelled units are ignored.
func (s *Scheduler) Ended(id uint64) {
	if _, ok := s.pending[id]; !ok {
		return
	}
	delete(s.pending, id)
	s.stats.Played++
	if len(s.pending) == 0 {
		s.indicate(IndicatorLoading)
	}
}

// Pending returns how many units are scheduled or playing.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// NextFreeTime returns the clock time at which queued audio runs out.
func (s *Scheduler) NextFreeTime() float64 {
	return s.nextFreeTime
}

// GetBufferedMs returns how much audio is queued ahead of the clock.
func (s *Scheduler) GetBufferedMs() float64 {
	if !s.enabled {
		return 0
	}
	buffered := s.nextFreeTime - s.dev.CurrentTime()
	if buffered < 0 {
		return 0
	}
	return buffered * 1000
}

// GetCurrentTime returns the device clock in seconds.
func (s *Scheduler) GetCurrentTime() float64 {
	if !s.enabled {
		return 0
	}
	return s.dev.CurrentTime()
}

// Reset cancels every pending unit and suspends the device. The next
// accepted unit starts a fresh timeline.
func (s *Scheduler) Reset() {
	if !s.enabled {
		return
	}
	if !s.suspended {
		s.suspended = true
		if err := s.dev.Suspend(); err != nil {
			s.deviceError(errors.Wrap(err, "failed to suspend output"))
		}
	}
	s.nextFreeTime = 0
	s.cancelPending()
}

func (s *Scheduler) cancelPending() {
	for id := range s.pending {
		s.dev.Stop(id)
		delete(s.pending, id)
	}
}

// reconfigure restarts the device clock at a new sample rate. Volume
// carries over; queued units do not.
func (s *Scheduler) reconfigure(sampleRate int) error {
	s.cancelPending()
	s.dev.Suspend()
	if err := s.dev.Reconfigure(sampleRate); err != nil {
		err = errors.Wrapf(err, "failed to reconfigure output for %d Hz", sampleRate)
		s.deviceError(err)
		return err
	}
	s.dev.Suspend()
	s.suspended = true
	s.nextFreeTime = 0

	if s.volume >= 0 {
		s.SetVolume(s.volume)
	}
	if s.hooks.OnVisualizerReset != nil {
		s.hooks.OnVisualizerReset()
	}
	s.log.WithField("sample_rate", sampleRate).Debug("Output reconfigured")
	return nil
}

// SetVolume sets the linear volume in [0, 1]. The device gain follows the
// square of the value. Muting takes effect for collaborators after
// MuteDelay; unmuting is immediate.
func (s *Scheduler) SetVolume(v float64) {
	if !s.enabled {
		return
	}
	s.clearMuteTimer()
	v = clamp(v, 0, 1)
	s.volume = v
	s.dev.SetGain(v * v)

	if v == 0 {
		s.muteTimer = s.afterFunc(MuteDelay, s.toggleAudio)
	} else {
		s.toggleAudio()
	}
	if s.hooks.OnVolumeChanged != nil {
		s.hooks.OnVolumeChanged(v)
	}
}

// GetVolume returns the linear volume derived from the device gain.
func (s *Scheduler) GetVolume() float64 {
	if !s.enabled {
		return 0
	}
	return clamp(math.Sqrt(s.dev.Gain()), 0, 1)
}

// AudioEnabled reports whether the volume is above zero.
func (s *Scheduler) AudioEnabled() bool {
	return s.GetVolume() > 0
}

func (s *Scheduler) toggleAudio() {
	s.clearMuteTimer()
	if s.hooks.OnAudioToggle != nil {
		s.hooks.OnAudioToggle(s.AudioEnabled())
	}
}

func (s *Scheduler) clearMuteTimer() {
	if s.muteTimer != nil {
		s.muteTimer.Stop()
		s.muteTimer = nil
	}
}

// Pause suspends the device clock without discarding queued audio.
func (s *Scheduler) Pause() {
	if !s.enabled {
		return
	}
	s.dev.Suspend()
}

// Resume restarts the device clock after Pause.
func (s *Scheduler) Resume() {
	if !s.enabled {
		return
	}
	s.dev.Resume()
}

// checkUserInput arms the one-shot gesture latch when the device is
// refusing to run even though playback was requested.
func (s *Scheduler) checkUserInput() {
	if s.gestureStarted || s.suspended {
		return
	}
	if s.dev.CurrentTime() != 0 || !s.dev.Suspended() {
		return
	}

	s.gestureStarted = true
	s.log.Info("Audio output requires a user gesture to start")
	if s.warn && s.hooks.OnInputRequired != nil {
		s.hooks.OnInputRequired()
	}
	s.indicate(IndicatorError)
}

// AwaitingGesture reports whether the gesture latch is armed and unfired.
func (s *Scheduler) AwaitingGesture() bool {
	return s.gestureStarted && !s.gestureFired
}

// UserGesture fires the gesture latch once, resetting playback so the
// next unit starts the device. It reports whether the latch was armed.
func (s *Scheduler) UserGesture() bool {
	if !s.AwaitingGesture() {
		return false
	}
	s.gestureFired = true
	s.Reset()
	return true
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() Stats {
	return s.stats
}

func (s *Scheduler) indicate(i Indicator) {
	if s.hooks.OnIndicator != nil {
		s.hooks.OnIndicator(i)
	}
}

func (s *Scheduler) deviceError(err error) {
	s.log.WithError(err).Error("Audio output error")
	s.indicate(IndicatorError)
	if s.hooks.OnDeviceError != nil {
		s.hooks.OnDeviceError(err)
	}
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
