// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams the mixing timeline to the sound card through one oto player
package output

import (
	"encoding/binary"
	"math"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Hardware format. oto allows a single context per process, so the card
// runs at one rate and units are resampled to it.
const (
	HardwareRate     = 48000
	hardwareChannels = 2
	bytesPerSample   = 4
)

// Oto output implementation using oto library
type Oto struct {
	otoCtx *oto.Context
	player *oto.Player
	tl     *timeline
	log    logrus.FieldLogger

	scratch []float32
}

// NewOto opens the sound card. unitRate is the initial rate of scheduled
// units.
func NewOto(unitRate int, log logrus.FieldLogger) (*Oto, error) {
	op := &oto.NewContextOptions{
		SampleRate:   HardwareRate,
		ChannelCount: hardwareChannels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create oto context")
	}
	<-readyChan

	o := &Oto{
		otoCtx: ctx,
		tl:     newTimeline(HardwareRate, hardwareChannels, unitRate),
		log:    log,
	}
	o.player = ctx.NewPlayer(o)
	o.player.Play()

	log.WithFields(logrus.Fields{
		"hardware_rate": HardwareRate,
		"unit_rate":     unitRate,
	}).Info("Audio output initialized")
	return o, nil
}

// Read implements io.Reader for the oto player.
func (o *Oto) Read(p []byte) (int, error) {
	frames := len(p) / (hardwareChannels * bytesPerSample)
	n := frames * hardwareChannels
	if cap(o.scratch) < n {
		o.scratch = make([]float32, n)
	}
	buf := o.scratch[:n]

	o.tl.mix(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(s))
	}
	return n * bytesPerSample, nil
}

func (o *Oto) latencyFrames() int64 {
	return int64(o.player.BufferedSize() / (hardwareChannels * bytesPerSample))
}

func (o *Oto) SampleRate() int { return o.tl.sampleRate() }

func (o *Oto) Reconfigure(sampleRate int) error {
	o.tl.reconfigure(sampleRate)
	o.log.WithField("unit_rate", sampleRate).Info("Audio clock restarted")
	return nil
}

func (o *Oto) CurrentTime() float64 { return o.tl.clock(o.latencyFrames()) }

func (o *Oto) Suspended() bool { return o.tl.isSuspended() }

func (o *Oto) Suspend() error {
	o.tl.setSuspended(true)
	return nil
}

func (o *Oto) Resume() error {
	o.tl.setSuspended(false)
	return nil
}

func (o *Oto) SetGain(gain float64) { o.tl.setGain(gain) }

func (o *Oto) Gain() float64 { return o.tl.currentGain() }

func (o *Oto) Start(id uint64, u audio.Unit, at float64) error {
	if len(u.Channels) == 0 {
		return errors.New("unit has no channels")
	}
	o.tl.start(id, u, at)
	return nil
}

func (o *Oto) Stop(id uint64) { o.tl.stop(id) }

func (o *Oto) SetEndedHandler(fn func(id uint64)) { o.tl.setEndedHandler(fn) }

// Close releases output resources
func (o *Oto) Close() error {
	o.tl.setSuspended(true)
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			return errors.Wrap(err, "failed to close player")
		}
		o.player = nil
	}
	return o.otoCtx.Suspend()
}
