// ABOUTME: Software mixing timeline shared by clocked devices
// ABOUTME: Places units at absolute frame positions and mixes them on demand
package output

import (
	"math"
	"sync"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/audio/resample"
)

type voice struct {
	start    int64 // absolute output frame
	channels [][]float32
}

func (v *voice) end() int64 {
	if len(v.channels) == 0 {
		return v.start
	}
	return v.start + int64(len(v.channels[0]))
}

// timeline mixes scheduled voices into interleaved float32 output at a
// fixed hardware rate. Its clock advances only as frames are mixed.
type timeline struct {
	mu sync.Mutex

	hwRate     int
	hwChannels int
	unitRate   int

	frames    int64 // frames mixed since creation
	epoch     int64 // frame at which the current clock started
	suspended bool
	gain      float64

	voices  map[uint64]*voice
	onEnded func(id uint64)
}

func newTimeline(hwRate, hwChannels, unitRate int) *timeline {
	return &timeline{
		hwRate:     hwRate,
		hwChannels: hwChannels,
		unitRate:   unitRate,
		suspended:  true,
		gain:       1,
		voices:     make(map[uint64]*voice),
	}
}

// clock returns seconds since the current epoch, less latency frames that
// have been mixed but not yet heard.
func (t *timeline) clock(latencyFrames int64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	f := t.frames - t.epoch - latencyFrames
	if f < 0 {
		f = 0
	}
	return float64(f) / float64(t.hwRate)
}

func (t *timeline) reconfigure(unitRate int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.unitRate = unitRate
	t.epoch = t.frames
	t.voices = make(map[uint64]*voice)
}

func (t *timeline) setSuspended(s bool) {
	t.mu.Lock()
	t.suspended = s
	t.mu.Unlock()
}

func (t *timeline) isSuspended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suspended
}

func (t *timeline) setGain(g float64) {
	t.mu.Lock()
	t.gain = g
	t.mu.Unlock()
}

func (t *timeline) currentGain() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gain
}

func (t *timeline) sampleRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unitRate
}

func (t *timeline) setEndedHandler(fn func(id uint64)) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

func (t *timeline) start(id uint64, u audio.Unit, at float64) {
	u = resample.ToRate(u, t.hwRate)

	t.mu.Lock()
	defer t.mu.Unlock()

	startFrame := t.epoch + int64(math.Round(at*float64(t.hwRate)))
	if startFrame < t.frames {
		startFrame = t.frames
	}
	t.voices[id] = &voice{start: startFrame, channels: u.Channels}
}

func (t *timeline) stop(id uint64) {
	t.mu.Lock()
	delete(t.voices, id)
	t.mu.Unlock()
}

func (t *timeline) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.voices)
}

// mix fills out with interleaved frames. A suspended timeline writes
// silence and does not advance its clock.
func (t *timeline) mix(out []float32) {
	for i := range out {
		out[i] = 0
	}

	t.mu.Lock()
	if t.suspended {
		t.mu.Unlock()
		return
	}

	n := int64(len(out) / t.hwChannels)
	from, to := t.frames, t.frames+n

	for _, v := range t.voices {
		if v.start >= to || v.end() <= from || len(v.channels) == 0 {
			continue
		}
		for f := max(v.start, from); f < min(v.end(), to); f++ {
			src := int(f - v.start)
			dst := int(f-from) * t.hwChannels
			for c := 0; c < t.hwChannels; c++ {
				ch := v.channels[min(c, len(v.channels)-1)]
				out[dst+c] += ch[src]
			}
		}
	}

	for i := range out {
		s := out[i] * float32(t.gain)
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = s
	}
	t.frames = to

	var ended []uint64
	for id, v := range t.voices {
		if v.end() <= t.frames {
			ended = append(ended, id)
			delete(t.voices, id)
		}
	}
	onEnded := t.onEnded
	t.mu.Unlock()

	if onEnded != nil {
		for _, id := range ended {
			onEnded(id)
		}
	}
}
