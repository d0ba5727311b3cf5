// ABOUTME: Feed server streaming a simulated camera over WebSocket
// ABOUTME: Manages client connections, codec negotiation and shutdown
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/camview/liveaudio/internal/discovery"
	"github.com/camview/liveaudio/pkg/audio/encode"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FeedPath serves the feed.
const FeedPath = "/audio"

// Send errors.
var (
	ErrSendBufferFull = errors.New("client send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Config holds server configuration
type Config struct {
	Port         int
	Name         string
	EnableMDNS   bool
	DefaultCodec string // used when the client does not ask for one
	SampleRate   int
	ToneHz       float64
	Video        bool
	Log          logrus.FieldLogger
}

// Server serves the simulated camera feed
type Server struct {
	config Config
	log    logrus.FieldLogger

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux
	listener   net.Listener

	clients   map[string]*Client
	clientsMu sync.RWMutex

	audioEngine *AudioEngine
	mdnsManager *discovery.Manager

	ready      chan struct{}
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is one connected feed consumer
type Client struct {
	ID         string
	RemoteAddr string
	Codec      string
	Conn       *websocket.Conn

	sendChan chan []byte
	mu       sync.RWMutex
	closed   bool
}

// closeSend stops further sends; the writer drains what is queued.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.sendChan)
	}
}

// New creates a new server instance
func New(config Config) *Server {
	if config.DefaultCodec == "" {
		config.DefaultCodec = "pcm"
	}
	if config.SampleRate == 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.ToneHz == 0 {
		config.ToneHz = 440
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}

	s := &Server{
		config: config,
		log:    config.Log,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Feed servers run on trusted local networks.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[string]*Client),
		ready:    make(chan struct{}),
		stopChan: make(chan struct{}),
	}
	s.audioEngine = NewAudioEngine(s)
	s.mux.HandleFunc(FeedPath, s.handleWebSocket)
	return s
}

// Addr returns the listening address once Ready is closed.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Ready is closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	s.log.WithField("name", s.config.Name).Info("Feed server starting")

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.mux}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        listener.Addr().(*net.TCPAddr).Port,
			Path:        FeedPath,
			Log:         s.log,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			s.log.WithError(err).Warn("Failed to start mDNS advertisement")
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.audioEngine.Start()
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	s.log.WithField("addr", listener.Addr().String()).Info("Listening")
	close(s.ready)

	var serverErr error
	select {
	case <-s.stopChan:
		s.log.Info("Server shutting down")
	case serverErr = <-errChan:
		s.log.WithError(serverErr).Error("HTTP server error")
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.audioEngine.Stop()

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.closeSend()
	}
	s.clientsMu.RUnlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("HTTP server shutdown error")
	}

	s.wg.Wait()
	s.log.Info("Server stopped cleanly")

	if serverErr != nil {
		return errors.Wrap(serverErr, "HTTP server failed")
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleWebSocket negotiates the codec and upgrades the connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	shutdown := s.isShutdown
	s.shutdownMu.RUnlock()
	if shutdown {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	codec := r.URL.Query().Get("codec")
	if codec == "" {
		codec = s.config.DefaultCodec
	}
	if !supported(codec) {
		http.Error(w, fmt.Sprintf("unsupported codec %q", codec), http.StatusBadRequest)
		return
	}

	id := r.URL.Query().Get("session")
	if id == "" {
		id = uuid.New().String()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{
		ID:         id,
		RemoteAddr: r.RemoteAddr,
		Codec:      codec,
		Conn:       conn,
		sendChan:   make(chan []byte, 100),
	}
	s.handleConnection(client)
}

// handleConnection registers the client and reads until it goes away
func (s *Server) handleConnection(client *Client) {
	defer client.Conn.Close()

	log := s.log.WithFields(logrus.Fields{"client": client.ID, "codec": client.Codec})

	s.clientsMu.Lock()
	if _, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Warn("Session already connected, rejecting duplicate")
		client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "duplicate session"))
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	log.WithField("remote", client.RemoteAddr).Info("Client connected")

	defer func() {
		s.audioEngine.RemoveClient(client)
		client.closeSend()
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		log.Info("Client disconnected")
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	if err := s.audioEngine.AddClient(client); err != nil {
		log.WithError(err).Error("Cannot stream to client")
		return
	}

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("WebSocket error")
			}
			return
		}
	}
}

// clientWriter sends queued feed bytes to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case data, ok := <-client.sendChan:
			if !ok {
				client.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				client.Conn.Close()
				return
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.log.WithError(err).WithField("client", client.ID).Debug("Write failed")
				client.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// sendBinary queues feed bytes without blocking
func (s *Server) sendBinary(client *Client, data []byte) error {
	client.mu.RLock()
	defer client.mu.RUnlock()

	if client.closed {
		return ErrClientClosed
	}
	select {
	case client.sendChan <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func supported(codec string) bool {
	for _, c := range encode.Codecs {
		if c == codec {
			return true
		}
	}
	return false
}
