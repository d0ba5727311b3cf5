// ABOUTME: WebSocket client for the live camera feed
// ABOUTME: Dials the feed endpoint and hands binary messages to a sink
package client

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FeedPath is the server endpoint serving the feed.
const FeedPath = "/audio"

// ErrNotConnected is returned by Reconnect after Close.
var ErrNotConnected = errors.New("client closed")

// Sink receives raw feed bytes in arrival order. *liveaudio.Player is one.
type Sink interface {
	Write(chunk []byte)
}

// Config holds client configuration
type Config struct {
	ServerAddr  string
	Path        string // feed endpoint, FeedPath when empty
	Codec       string // requested codec, "" or "auto" lets the server pick
	SessionID   string // generated when empty
	DialTimeout time.Duration
	Log         logrus.FieldLogger
}

// Client streams one feed at a time into a sink
type Client struct {
	config Config
	sink   Sink
	log    logrus.FieldLogger

	mu        sync.Mutex
	conn      *websocket.Conn
	codec     string
	gen       int
	connected bool
	closed    bool
	readers   sync.WaitGroup

	// Disconnected receives the read error of every connection that ends
	// without being replaced or closed.
	Disconnected chan error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config, sink Sink) *Client {
	if config.SessionID == "" {
		config.SessionID = uuid.New().String()
	}
	if config.Path == "" {
		config.Path = FeedPath
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 10 * time.Second
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:       config,
		sink:         sink,
		codec:        config.Codec,
		log:          config.Log.WithField("session", config.SessionID),
		Disconnected: make(chan error, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// URL returns the feed address for codec.
func (c *Client) URL(codec string) string {
	q := url.Values{}
	q.Set("session", c.config.SessionID)
	if codec != "" && codec != "auto" {
		q.Set("codec", codec)
	}
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path, RawQuery: q.Encode()}
	return u.String()
}

// Connect opens the feed with the configured codec
func (c *Client) Connect() error {
	c.mu.Lock()
	codec := c.codec
	c.mu.Unlock()
	return c.Reconnect(codec)
}

// Reconnect replaces the current connection with one asking for codec.
// Bytes from the old connection stop reaching the sink before the new
// connection is dialed.
func (c *Client) Reconnect(codec string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.gen++
	gen := c.gen
	old := c.conn
	c.conn = nil
	c.connected = false
	c.codec = codec
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	c.readers.Wait()

	addr := c.URL(codec)
	c.log.WithField("url", addr).Info("Connecting to feed")

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	ctx, cancel := context.WithTimeout(c.ctx, c.config.DialTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return errors.Wrap(err, "dial failed")
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	c.conn = conn
	c.connected = true
	c.readers.Add(1)
	c.mu.Unlock()

	go c.readMessages(conn, gen)
	return nil
}

// readMessages forwards binary messages until the connection fails
func (c *Client) readMessages(conn *websocket.Conn, gen int) {
	defer c.readers.Done()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			c.disconnected(gen, err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.sink.Write(data)
		case websocket.TextMessage:
			c.log.WithField("message", string(data)).Debug("Ignoring text message")
		}
	}
}

func (c *Client) disconnected(gen int, err error) {
	c.mu.Lock()
	current := !c.closed && c.gen == gen
	if current {
		c.connected = false
	}
	c.mu.Unlock()

	if !current {
		return
	}

	c.log.WithError(err).Warn("Feed disconnected")
	select {
	case c.Disconnected <- err:
	default:
	}
}

// Codec returns the codec requested by the latest connection.
func (c *Client) Codec() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codec
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close closes the connection and waits for the reader to exit
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	c.readers.Wait()
	c.log.Info("Connection closed")
	return nil
}
