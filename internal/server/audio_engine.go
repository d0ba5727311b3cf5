// ABOUTME: Audio streaming engine for the feed server
// ABOUTME: Encodes the tone once per codec and fans feed blocks out to clients
package server

import (
	"sync"
	"time"

	"github.com/camview/liveaudio/pkg/records"
	"github.com/sirupsen/logrus"
)

// Frame timing
const (
	DefaultSampleRate = 8000
	ChunkDurationMs   = 20
	StatusEvery       = 50 // frames, one second at 20ms
	VideoEvery        = 5  // frames, ten pictures a second
	KeyframeEvery     = 20 // pictures
)

// AudioEngine generates the feed and streams it to clients
type AudioEngine struct {
	server *Server
	log    logrus.FieldLogger

	source   *TestToneSource
	encoders map[string]*FrameEncoder

	clients   map[string]*Client
	clientsMu sync.RWMutex

	frameIndex uint64
	pictures   uint64
	startTime  time.Time

	stopped  bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewAudioEngine creates a new audio engine
func NewAudioEngine(server *Server) *AudioEngine {
	return &AudioEngine{
		server:    server,
		log:       server.log.WithField("component", "engine"),
		source:    NewTestToneSource(server.config.ToneHz, server.config.SampleRate),
		encoders:  make(map[string]*FrameEncoder),
		clients:   make(map[string]*Client),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
}

// Start runs the engine until Stop
func (e *AudioEngine) Start() {
	e.log.Info("Audio engine starting")

	ticker := time.NewTicker(time.Duration(ChunkDurationMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.generateAndSendChunk()
		case <-e.stopChan:
			e.log.Info("Audio engine stopping")
			return
		}
	}
}

// Stop stops the audio engine and ends every client's feed
func (e *AudioEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)

		e.clientsMu.Lock()
		defer e.clientsMu.Unlock()
		e.stopped = true
		for _, client := range e.clients {
			e.server.sendBinary(client, records.MarshalEndBlock())
		}
		for _, enc := range e.encoders {
			enc.Close()
		}
	})
}

// AddClient queues the feed preamble for client and starts streaming to it
func (e *AudioEngine) AddClient(client *Client) error {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if e.stopped {
		return ErrClientClosed
	}
	enc, ok := e.encoders[client.Codec]
	if !ok {
		var err error
		enc, err = NewFrameEncoder(client.Codec, e.server.config.SampleRate)
		if err != nil {
			return err
		}
		e.encoders[client.Codec] = enc
	}

	preamble := records.MarshalStreamHeader()
	if e.server.config.Video {
		preamble = append(preamble, records.MarshalVideoHeaderBlock(videoHeader)...)
	}
	preamble = append(preamble, records.MarshalAudioHeaderBlock(enc.Header())...)
	if err := e.server.sendBinary(client, preamble); err != nil {
		return err
	}

	e.clients[client.ID] = client
	e.log.WithFields(logrus.Fields{"client": client.ID, "codec": client.Codec}).Info("Added client")
	return nil
}

// RemoveClient removes a client from audio streaming
func (e *AudioEngine) RemoveClient(client *Client) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	delete(e.clients, client.ID)
	e.log.WithField("client", client.ID).Info("Removed client")
}

// Clients returns the number of connected clients
func (e *AudioEngine) Clients() int {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	return len(e.clients)
}

// generateAndSendChunk encodes one frame per codec in use and sends it
func (e *AudioEngine) generateAndSendChunk() {
	samples := make([]int16, e.server.config.SampleRate*ChunkDurationMs/1000)
	e.source.Read(samples)

	elapsed := time.Since(e.startTime)
	meta := records.FrameMeta{
		Time: uint32(elapsed.Milliseconds()),
		UTC:  uint64(time.Now().UnixNano() / int64(time.Millisecond)),
	}

	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	if e.stopped {
		return
	}
	if len(e.clients) == 0 {
		e.frameIndex++
		return
	}

	frames := make(map[string][]byte, len(e.encoders))
	for codec, enc := range e.encoders {
		payload, err := enc.Encode(samples)
		if err != nil {
			e.log.WithError(err).WithField("codec", codec).Error("Encode failed")
			continue
		}
		frames[codec] = records.MarshalFrameBlock(records.BlockAudioFrame, meta, payload)
	}

	var extra []byte
	if e.server.config.Video && e.frameIndex%VideoEvery == 0 {
		extra = append(extra, records.MarshalFrameBlock(records.BlockVideoFrame, meta, fakePicture(e.pictures))...)
		e.pictures++
	}
	if e.frameIndex%StatusEvery == 0 {
		extra = append(extra, records.MarshalStatusBlock(records.StatusBlock{
			Recording: true,
			FPS:       int32(100000 / (ChunkDurationMs * VideoEvery)),
			AudioPeak: Peak(samples),
		})...)
	}
	e.frameIndex++

	for _, client := range e.clients {
		frame, ok := frames[client.Codec]
		if !ok {
			continue
		}
		msg := frame
		if len(extra) > 0 {
			msg = append(append([]byte(nil), frame...), extra...)
		}
		if err := e.server.sendBinary(client, msg); err != nil {
			e.log.WithError(err).WithField("client", client.ID).Debug("Dropping frame")
		}
	}
}

var videoHeader = records.BitmapInfoHeader{
	Size: 40, Width: 320, Height: 240, Planes: 1, BitsPerPixel: 24, Compression: "H264",
}

// fakePicture returns an Annex B stub, an IDR slice every KeyframeEvery
// pictures and a non-IDR slice otherwise.
func fakePicture(n uint64) []byte {
	nal := byte(0x41)
	if n%KeyframeEvery == 0 {
		nal = 0x65
	}
	return []byte{0, 0, 0, 1, nal, 0x88, 0x84, 0x00}
}
