// ABOUTME: Tests for playback scheduler
// ABOUTME: Tests late, overflow, reset, volume debounce and gesture handling
package playback

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/camview/liveaudio/pkg/audio/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	indicators []Indicator
	toggles    []bool
	volumes    []float64
	inputs     int
	visuals    []Visualization
	resets     int
	errs       []error
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnIndicator:       func(i Indicator) { r.indicators = append(r.indicators, i) },
		OnAudioToggle:     func(on bool) { r.toggles = append(r.toggles, on) },
		OnVolumeChanged:   func(v float64) { r.volumes = append(r.volumes, v) },
		OnInputRequired:   func() { r.inputs++ },
		OnVisualize:       func(v Visualization) { r.visuals = append(r.visuals, v) },
		OnVisualizerReset: func() { r.resets++ },
		OnDeviceError:     func(err error) { r.errs = append(r.errs, err) },
	}
}

func newTestScheduler(target time.Duration) (*Scheduler, *fakeDevice, *recorder, *fakeClock) {
	dev := newFakeDevice(8000)
	rec := &recorder{}
	clock := &fakeClock{}
	s := NewScheduler(dev, Options{
		TargetDelay:     target,
		AutoplayWarning: true,
		Hooks:           rec.hooks(),
		Log:             quietLogger(),
		AfterFunc:       clock.AfterFunc,
	})
	return s, dev, rec, clock
}

func TestAcceptFirstUnitAddsInitialDelay(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(time.Second)
	dev.now = 3

	outcome, err := s.Accept(unitOf(0.1, 8000))
	require.NoError(t, err)
	require.Equal(t, Scheduled, outcome)

	require.False(t, dev.suspended)
	require.Len(t, dev.starts, 1)
	assert.InDelta(t, 3.2, dev.starts[0].at, 1e-9)
	assert.InDelta(t, 3.3, s.NextFreeTime(), 1e-9)
	assert.InDelta(t, 300, s.GetBufferedMs(), 1e-6)
	require.Equal(t, []Indicator{IndicatorPlaying}, rec.indicators)

	require.Len(t, rec.visuals, 1)
	assert.InDelta(t, 3.3, rec.visuals[0].NextFreeTime, 1e-9)
	assert.InDelta(t, 0.1, rec.visuals[0].Duration, 1e-9)
}

func TestAcceptBackToBack(t *testing.T) {
	s, dev, _, _ := newTestScheduler(time.Second)
	dev.now = 1

	for i := 0; i < 3; i++ {
		_, err := s.Accept(unitOf(0.1, 8000))
		require.NoError(t, err)
	}

	require.Len(t, dev.starts, 3)
	assert.InDelta(t, 1.2, dev.starts[0].at, 1e-9)
	assert.InDelta(t, 1.3, dev.starts[1].at, 1e-9)
	assert.InDelta(t, 1.4, dev.starts[2].at, 1e-9)
	require.Equal(t, 3, s.Pending())
}

func TestAcceptLateUnitPlaysNow(t *testing.T) {
	s, dev, _, _ := newTestScheduler(time.Second)
	s.suspended = false
	dev.suspended = false
	s.nextFreeTime = 10.0
	dev.now = 10.3

	outcome, err := s.Accept(unitOf(0.25, 8000))
	require.NoError(t, err)
	require.Equal(t, ScheduledLate, outcome)

	require.Len(t, dev.starts, 1)
	assert.InDelta(t, 10.3, dev.starts[0].at, 1e-9)
	assert.InDelta(t, 10.55, s.NextFreeTime(), 1e-9)
	require.Equal(t, int64(1), s.Stats().Late)
}

func TestAcceptOverflowDrops(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(700 * time.Millisecond)
	s.suspended = false
	dev.suspended = false
	s.nextFreeTime = 12.0
	dev.now = 11.0

	outcome, err := s.Accept(unitOf(0.25, 8000))
	require.NoError(t, err)
	require.Equal(t, Dropped, outcome)

	require.Empty(t, dev.starts)
	require.Equal(t, 12.0, s.NextFreeTime())
	require.Equal(t, int64(1), s.Stats().Dropped)
	require.Zero(t, rec.inputs)
}

func TestAcceptWithinTargetDelay(t *testing.T) {
	s, dev, _, _ := newTestScheduler(700 * time.Millisecond)
	s.suspended = false
	dev.suspended = false
	s.nextFreeTime = 12.0
	dev.now = 11.5

	outcome, err := s.Accept(unitOf(0.25, 8000))
	require.NoError(t, err)
	require.Equal(t, Scheduled, outcome)
	assert.InDelta(t, 12.0, dev.starts[0].at, 1e-9)
}

func TestTargetDelayClamped(t *testing.T) {
	s, _, _, _ := newTestScheduler(time.Hour)
	require.Equal(t, 5.0, s.targetDelay)

	s, _, _, _ = newTestScheduler(-time.Second)
	require.Equal(t, 0.0, s.targetDelay)
}

func TestEndedSignalsLoadingWhenDrained(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(time.Second)
	s.Accept(unitOf(0.1, 8000))
	s.Accept(unitOf(0.1, 8000))
	rec.indicators = nil

	s.Ended(dev.starts[0].id)
	require.Empty(t, rec.indicators)

	s.Ended(dev.starts[1].id)
	require.Equal(t, []Indicator{IndicatorLoading}, rec.indicators)
	require.Equal(t, int64(2), s.Stats().Played)

	// Unknown ids are ignored.
	s.Ended(99)
	require.Equal(t, int64(2), s.Stats().Played)
}

func TestResetCancelsPending(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(time.Second)
	dev.now = 2
	s.Accept(unitOf(0.1, 8000))
	s.Accept(unitOf(0.1, 8000))

	s.Reset()
	require.True(t, dev.suspended)
	require.Equal(t, 0.0, s.NextFreeTime())
	require.Equal(t, 0, s.Pending())
	require.ElementsMatch(t, []uint64{dev.starts[0].id, dev.starts[1].id}, dev.stops)

	// Completions from cancelled units are ignored.
	rec.indicators = nil
	s.Ended(dev.starts[0].id)
	require.Empty(t, rec.indicators)

	// Next unit restarts the timeline.
	s.Accept(unitOf(0.1, 8000))
	require.False(t, dev.suspended)
	assert.InDelta(t, 2.2, dev.starts[2].at, 1e-9)
}

func TestResetIsIdempotent(t *testing.T) {
	s, dev, _, _ := newTestScheduler(time.Second)
	s.Reset()
	s.Reset()
	require.True(t, dev.suspended)
	require.Empty(t, dev.stops)
}

func TestSampleRateChangeReconfigures(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(time.Second)
	s.SetVolume(0.5)
	dev.now = 4
	s.Accept(unitOf(0.1, 8000))

	dev.gain = 1 // a fresh clock would lose the gain if not re-applied
	s.Accept(unitOf(0.1, 16000))

	require.Equal(t, []int{16000}, dev.reconfigures)
	require.Equal(t, []uint64{dev.starts[0].id}, dev.stops)
	require.Equal(t, 0.25, dev.gain)
	require.Equal(t, 1, rec.resets)

	// The new clock starts at zero.
	assert.InDelta(t, 0.2, dev.starts[1].at, 1e-9)
	require.Equal(t, 1, s.Pending())
}

func TestVolumeCurve(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(time.Second)

	s.SetVolume(0.5)
	require.Equal(t, 0.25, dev.gain)
	assert.InDelta(t, 0.5, s.GetVolume(), 1e-9)
	require.True(t, s.AudioEnabled())
	require.Equal(t, []bool{true}, rec.toggles)

	s.SetVolume(3)
	require.Equal(t, 1.0, dev.gain)

	s.SetVolume(-1)
	require.Equal(t, 0.0, dev.gain)
	require.Equal(t, []float64{0.5, 1, 0}, rec.volumes)
}

func TestVolumeNaNMutes(t *testing.T) {
	s, dev, rec, clock := newTestScheduler(time.Second)

	s.SetVolume(0.5)
	s.SetVolume(math.NaN())
	require.Equal(t, 0.0, dev.gain)
	require.Equal(t, 0.0, s.GetVolume())
	require.Equal(t, []float64{0.5, 0}, rec.volumes)

	require.Len(t, clock.timers, 1)
	clock.timers[0].f()
	require.Equal(t, []bool{true, false}, rec.toggles)
}

func TestMuteIsDebounced(t *testing.T) {
	s, _, rec, clock := newTestScheduler(time.Second)

	s.SetVolume(0)
	require.Empty(t, rec.toggles)
	require.Len(t, clock.timers, 1)
	require.Equal(t, MuteDelay, clock.timers[0].d)

	// Unmuting before the timer fires cancels it and toggles immediately.
	s.SetVolume(0.8)
	require.True(t, clock.timers[0].stopped)
	require.Equal(t, []bool{true}, rec.toggles)

	s.SetVolume(0)
	require.Len(t, clock.timers, 2)
	clock.timers[1].f()
	require.Equal(t, []bool{true, false}, rec.toggles)
}

func TestPauseResume(t *testing.T) {
	s, dev, _, _ := newTestScheduler(time.Second)
	s.Accept(unitOf(0.1, 8000))

	s.Pause()
	require.True(t, dev.suspended)
	require.Equal(t, 1, s.Pending())

	s.Resume()
	require.False(t, dev.suspended)
}

func TestGestureLatch(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(100 * time.Millisecond)
	dev.stuck = true

	// The clock never moves, so the buffer fills and units get dropped.
	var outcome Outcome
	for i := 0; i < 10 && outcome != Dropped; i++ {
		outcome, _ = s.Accept(unitOf(0.1, 8000))
	}
	require.Equal(t, Dropped, outcome)
	require.Equal(t, 1, rec.inputs)
	require.Contains(t, rec.indicators, IndicatorError)
	require.True(t, s.AwaitingGesture())

	// Further drops do not re-arm.
	s.Accept(unitOf(0.1, 8000))
	require.Equal(t, 1, rec.inputs)

	dev.stuck = false
	require.True(t, s.UserGesture())
	require.False(t, s.AwaitingGesture())
	require.Equal(t, 0, s.Pending())
	require.False(t, s.UserGesture())
}

func TestDeviceStartError(t *testing.T) {
	s, dev, rec, _ := newTestScheduler(time.Second)
	dev.startErr = errors.New("device lost")

	outcome, err := s.Accept(unitOf(0.1, 8000))
	require.Error(t, err)
	require.Equal(t, Ignored, outcome)
	require.Len(t, rec.errs, 1)
	require.Contains(t, rec.indicators, IndicatorError)
}

func TestSilentDeviceIsNeutral(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(output.NoOp{}, Options{Hooks: rec.hooks(), Log: quietLogger()})

	outcome, err := s.Accept(unitOf(0.1, 8000))
	require.NoError(t, err)
	require.Equal(t, Ignored, outcome)
	require.Equal(t, 0.0, s.GetBufferedMs())
	require.Equal(t, 0.0, s.GetVolume())
	require.Equal(t, 0.0, s.GetCurrentTime())
	require.False(t, s.AudioEnabled())

	s.SetVolume(1)
	s.Reset()
	require.Empty(t, rec.indicators)
	require.Empty(t, rec.volumes)
}

func TestEmptyUnitIgnored(t *testing.T) {
	s, dev, _, _ := newTestScheduler(time.Second)
	outcome, err := s.Accept(unitOf(0, 8000))
	require.NoError(t, err)
	require.Equal(t, Ignored, outcome)
	require.Empty(t, dev.starts)
	require.False(t, math.IsNaN(s.GetBufferedMs()))
}
