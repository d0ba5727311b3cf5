// ABOUTME: High-level Player API for live camera audio
// ABOUTME: Runs demux, decode, reorder and scheduling in one event loop
package liveaudio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/camview/liveaudio/pkg/audio/decode"
	"github.com/camview/liveaudio/pkg/audio/output"
	"github.com/camview/liveaudio/pkg/playback"
	"github.com/camview/liveaudio/pkg/records"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrDecoderStalled is passed to the fallback when decodes stop completing.
var ErrDecoderStalled = errors.New("audio decoder stalled")

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// TargetDelay is the most audio queued ahead of the clock. Nil means
	// playback.DefaultTargetDelay; zero is honoured.
	TargetDelay *time.Duration

	// Volume is the initial volume (0-1). Muted overrides it.
	Volume float64
	Muted  bool

	// AutoplayWarning enables OnInputRequired.
	AutoplayWarning bool

	// DecodeWorkers sizes the decode pool for compressed codecs (default: 2).
	// Stateful codecs such as Opus always get one worker.
	DecodeWorkers int

	// Device overrides the sound card, mainly for tests.
	Device output.Device

	// NewDecoder overrides codec selection (default: decode.New).
	NewDecoder func(audio.Format) (decode.Decoder, error)

	Log logrus.FieldLogger

	// OnStateChange is called when playback state changes
	OnStateChange func(State)

	// OnError is called when errors occur
	OnError func(error)

	// OnFallback is called when the current codec cannot be played. The
	// usual response is to reconnect asking for mu-law and call Restart.
	OnFallback func(reason error)

	OnStatus        func(records.StatusBlock)
	OnVideoFrame    func(*records.VideoFrame)
	OnAudioToggle   func(enabled bool)
	OnVolumeChanged func(volume float64)
	OnInputRequired func()
	OnVisualize     func(playback.Visualization)
}

// State describes the current state
type State struct {
	Indicator    playback.Indicator
	Codec        string
	SampleRate   int
	Channels     int
	Volume       float64
	AudioEnabled bool
	BufferedMs   float64
	Ended        bool
}

// Stats contains playback statistics
type Stats struct {
	playback.Stats
	Reordered    int64
	Stalls       int64
	DecodeErrors int64
	Violations   int64
	StreamErrors int64
	BufferedMs   float64
}

// Player plays the audio track of a live feed. Write may be called from
// any goroutine; everything else happens on the player's event loop.
type Player struct {
	config PlayerConfig
	log    logrus.FieldLogger

	// Components, owned by the loop
	dev       output.Device
	scheduler *playback.Scheduler
	reorder   *playback.ReorderQueue
	stall     playback.StallDetector
	demux     *records.Demuxer
	inline    decode.Decoder
	async     *decode.Async
	format    audio.Format
	fellBack  bool
	counts    Stats
	now       func() time.Time
	started   bool

	events chan func()
	ended  chan uint64

	// Snapshot for other goroutines
	mu    sync.RWMutex
	state State
	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer creates a new player with the given configuration
func NewPlayer(config PlayerConfig) *Player {
	targetDelay := playback.DefaultTargetDelay
	if config.TargetDelay != nil {
		targetDelay = *config.TargetDelay
	}
	if config.NewDecoder == nil {
		config.NewDecoder = decode.New
	}
	if config.DecodeWorkers <= 0 {
		config.DecodeWorkers = 2
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		config:  config,
		log:     config.Log,
		reorder: playback.NewReorderQueue(),
		demux:   records.NewDemuxer(),
		now:     time.Now,
		events:  make(chan func(), 64),
		ended:   make(chan uint64, 256),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	p.dev = config.Device
	if p.dev == nil {
		p.dev, _ = output.Open(8000, p.log)
	}
	p.dev.SetEndedHandler(func(id uint64) {
		select {
		case p.ended <- id:
		case <-p.ctx.Done():
		}
	})

	p.scheduler = playback.NewScheduler(p.dev, playback.Options{
		TargetDelay:     targetDelay,
		AutoplayWarning: config.AutoplayWarning,
		Log:             p.log,
		AfterFunc: func(d time.Duration, f func()) playback.Timer {
			return time.AfterFunc(d, func() { p.post(f) })
		},
		Hooks: playback.Hooks{
			OnIndicator: func(i playback.Indicator) {
				p.mu.Lock()
				p.state.Indicator = i
				p.mu.Unlock()
			},
			OnAudioToggle:   config.OnAudioToggle,
			OnVolumeChanged: config.OnVolumeChanged,
			OnInputRequired: config.OnInputRequired,
			OnVisualize:     config.OnVisualize,
			OnDeviceError:   p.notifyError,
		},
	})

	return p
}

// Start runs the event loop until Close.
func (p *Player) Start() {
	p.post(func() {
		if p.config.Muted {
			p.scheduler.SetVolume(0)
		} else {
			p.scheduler.SetVolume(p.config.Volume)
		}
	})
	p.started = true
	go p.run()
}

func (p *Player) run() {
	defer close(p.done)

	for {
		var results <-chan decode.Result
		if p.async != nil {
			results = p.async.Results()
		}

		select {
		case <-p.ctx.Done():
			p.shutdown()
			return

		case f := <-p.events:
			f()

		case id := <-p.ended:
			p.scheduler.Ended(id)

		case r := <-results:
			p.handleDecoded(r)
		}

		p.publish()
	}
}

// post queues f for the event loop. It is dropped once the player closes.
func (p *Player) post(f func()) {
	select {
	case p.events <- f:
	case <-p.ctx.Done():
	}
}

// Write feeds network bytes. The player takes ownership of chunk.
func (p *Player) Write(chunk []byte) {
	p.post(func() {
		p.demux.Write(chunk)
		p.drainBlocks()
	})
}

func (p *Player) drainBlocks() {
	for {
		block, ok, err := p.demux.Next()
		if err != nil {
			p.counts.StreamErrors++
			p.notifyError(errors.Wrap(err, "feed"))
			return
		}
		if !ok {
			return
		}
		p.handleBlock(block)
	}
}

func (p *Player) handleBlock(b records.Block) {
	switch b.Type {
	case records.BlockAudioHeader:
		p.setFormat(*b.AudioHeader)

	case records.BlockAudioFrame:
		p.handleAudioFrame(b.AudioFrame)

	case records.BlockVideoHeader:
		p.log.WithFields(logrus.Fields{
			"width":  b.VideoHeader.Width,
			"height": b.VideoHeader.Height,
			"codec":  b.VideoHeader.Compression,
		}).Debug("Video header")

	case records.BlockVideoFrame:
		if p.config.OnVideoFrame != nil {
			p.config.OnVideoFrame(b.VideoFrame)
		}

	case records.BlockStatus:
		if p.config.OnStatus != nil {
			p.config.OnStatus(*b.Status)
		}

	case records.BlockEnd:
		p.log.Info("Feed ended")
		p.mu.Lock()
		p.state.Ended = true
		p.mu.Unlock()
	}
}

// setFormat prepares decoding for a new audio header.
func (p *Player) setFormat(h records.WaveFormatHeader) {
	p.closeDecoders()
	p.reorder.Reset()
	p.stall.Reset()

	if !h.Valid {
		p.notifyError(errors.Wrap(decode.ErrUnsupportedFormat, "short audio header"))
		return
	}

	format := decode.FormatFromWave(h)
	p.format = format
	p.setCodec(format.Codec)

	dec, err := p.config.NewDecoder(format)
	if err != nil {
		p.notifyError(err)
		p.fallback(err)
		return
	}

	p.log.WithFields(logrus.Fields{
		"codec":       format.Codec,
		"sample_rate": format.SampleRate,
		"channels":    format.Channels,
	}).Info("Audio stream starting")

	if format.Codec == "mulaw" {
		p.inline = dec
		return
	}

	async, err := decode.NewAsync(dec, p.config.DecodeWorkers, p.log)
	if err != nil {
		dec.Close()
		p.notifyError(err)
		return
	}
	p.async = async
	p.log.WithField("workers", async.Workers()).Debug("Decode pool ready")
}

func (p *Player) handleAudioFrame(f *records.AudioFrame) {
	if p.inline != nil {
		unit, err := p.inline.Decode(f.Data)
		if err != nil {
			p.counts.DecodeErrors++
			p.notifyError(err)
			return
		}
		p.accept(unit)
		return
	}

	if p.async == nil || p.fellBack {
		return
	}

	now := p.now()
	if p.stall.Check(p.reorder.Expected(), now) {
		p.counts.Stalls++
		p.log.WithFields(logrus.Fields{
			"expected": p.reorder.Expected(),
			"issued":   p.stall.Requests(),
		}).Warn("Audio decoder stall detected")
		p.fallback(ErrDecoderStalled)
		return
	}

	if _, err := p.async.Submit(f.Data); err != nil {
		p.counts.DecodeErrors++
		p.notifyError(err)
		return
	}
	p.stall.Issued(now)
}

func (p *Player) handleDecoded(r decode.Result) {
	if r.Err != nil {
		p.counts.DecodeErrors++
		p.log.WithError(r.Err).WithField("seq", r.Seq).Warn("Audio decode failed")
		p.setCodec(p.format.Codec + " (cannot decode)")
		p.fallback(r.Err)
		return
	}

	p.setCodec(fmt.Sprintf("%s %dch %dhz", p.format.Codec, len(r.Unit.Channels), p.format.SampleRate))

	released, err := p.reorder.Admit(r.Unit)
	if err != nil {
		p.counts.Violations++
		p.notifyError(err)
		return
	}
	for _, u := range released {
		p.accept(u)
	}
}

func (p *Player) accept(u audio.Unit) {
	if _, err := p.scheduler.Accept(u); err != nil {
		p.log.WithError(err).Debug("Unit not scheduled")
	}
}

// fallback reports that the current codec cannot be played. It fires once
// until Restart.
func (p *Player) fallback(reason error) {
	if p.fellBack {
		return
	}
	p.fellBack = true
	if p.config.OnFallback != nil {
		p.config.OnFallback(reason)
	}
}

func (p *Player) setCodec(codec string) {
	p.mu.Lock()
	p.state.Codec = codec
	p.state.SampleRate = p.format.SampleRate
	p.state.Channels = p.format.Channels
	p.mu.Unlock()
}

func (p *Player) closeDecoders() {
	if p.async != nil {
		p.async.Close()
		p.async = nil
	}
	if p.inline != nil {
		p.inline.Close()
		p.inline = nil
	}
}

// Restart prepares for a new feed connection. Buffered bytes, queued
// decodes and scheduled audio are discarded.
func (p *Player) Restart() {
	p.post(func() {
		p.closeDecoders()
		p.demux.Reset()
		p.reorder.Reset()
		p.stall.Reset()
		p.scheduler.Reset()
		p.fellBack = false

		p.mu.Lock()
		p.state.Ended = false
		p.mu.Unlock()
	})
}

// SetVolume sets the volume (0-1)
func (p *Player) SetVolume(volume float64) {
	p.post(func() { p.scheduler.SetVolume(volume) })
}

// Reset discards scheduled audio and suspends the output.
func (p *Player) Reset() {
	p.post(p.scheduler.Reset)
}

// Pause suspends the output clock.
func (p *Player) Pause() {
	p.post(p.scheduler.Pause)
}

// Resume restarts the output clock.
func (p *Player) Resume() {
	p.post(p.scheduler.Resume)
}

// UserGesture reports a user interaction to release autoplay restrictions.
func (p *Player) UserGesture() {
	p.post(func() { p.scheduler.UserGesture() })
}

// State returns the latest player state
func (p *Player) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Stats returns the latest statistics
func (p *Player) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// publish copies loop-owned values into the snapshot and notifies.
func (p *Player) publish() {
	p.mu.Lock()
	prev := p.state
	p.state.Volume = p.scheduler.GetVolume()
	p.state.AudioEnabled = p.scheduler.AudioEnabled()
	p.state.BufferedMs = p.scheduler.GetBufferedMs()

	p.stats = p.counts
	p.stats.Stats = p.scheduler.Stats()
	p.stats.Reordered = p.reorder.Deferred()
	p.stats.BufferedMs = p.state.BufferedMs
	state := p.state
	p.mu.Unlock()

	if p.config.OnStateChange != nil && changed(prev, state) {
		p.config.OnStateChange(state)
	}
}

func changed(a, b State) bool {
	a.BufferedMs, b.BufferedMs = 0, 0
	return a != b
}

func (p *Player) notifyError(err error) {
	p.log.WithError(err).Error("Player error")
	if p.config.OnError != nil {
		p.config.OnError(err)
	}
}

func (p *Player) shutdown() {
	p.closeDecoders()
	p.scheduler.Reset()
	if err := p.dev.Close(); err != nil {
		p.log.WithError(err).Warn("Failed to close audio output")
	}
}

// Close stops the event loop and releases the output device.
func (p *Player) Close() error {
	p.cancel()
	if !p.started {
		p.shutdown()
		return nil
	}
	<-p.done
	return nil
}
