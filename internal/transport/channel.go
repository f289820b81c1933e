package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"talkio/internal/events"
	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	readWait   = 60 * time.Second
)

// HandlerFunc consumes the payload of one inbound event.
type HandlerFunc func(payload json.RawMessage)

// Channel is one realtime WebSocket connection. It dials lazily on
// Connect, dispatches inbound envelopes to registered handlers from a
// single read loop, and serializes writes through a send channel.
//
// Channels are constructed explicitly and injected; there are no
// process-wide socket singletons. Disconnect drops all handlers so a
// reconnect never accumulates duplicates.
type Channel struct {
	url string
	log *logger.Logger

	mu        sync.Mutex // protects conn writes and connected flag
	conn      *websocket.Conn
	connected bool

	hmu      sync.RWMutex
	handlers map[string][]HandlerFunc

	send   chan []byte
	cancel context.CancelFunc
}

// NewChannel creates a disconnected channel for the given socket URL.
func NewChannel(url string, log *logger.Logger) *Channel {
	return &Channel{
		url:      url,
		log:      log,
		handlers: make(map[string][]HandlerFunc),
	}
}

// On registers a handler for an event name. Handlers run on the read
// loop goroutine, one at a time, in registration order.
func (c *Channel) On(event string, fn HandlerFunc) {
	c.hmu.Lock()
	c.handlers[event] = append(c.handlers[event], fn)
	c.hmu.Unlock()
}

// HandlerCount returns the number of handlers registered for event.
func (c *Channel) HandlerCount(event string) int {
	c.hmu.RLock()
	defer c.hmu.RUnlock()
	return len(c.handlers[event])
}

// ClearHandlers deregisters every handler. Registration runs before the
// dial, so callers clear first to keep re-registration idempotent when
// an earlier Connect failed.
func (c *Channel) ClearHandlers() {
	c.hmu.Lock()
	c.handlers = make(map[string][]HandlerFunc)
	c.hmu.Unlock()
}

// Connect dials the socket and starts the read and write loops.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return talkio_errors.ErrAlreadyConnected
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.conn = conn
	c.connected = true
	c.send = make(chan []byte, 256)
	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	send := c.send
	c.mu.Unlock()

	go c.writeLoop(loopCtx, conn, send)
	go c.readLoop(conn)

	c.log.Infof("channel connected: %s", c.url)
	return nil
}

// Connected reports whether the channel currently holds a live socket.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Emit marshals payload into an envelope and queues it for sending.
func (c *Channel) Emit(event string, payload any) error {
	env, err := events.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return talkio_errors.ErrNotConnected
	}
	select {
	case c.send <- raw:
		return nil
	default:
		return talkio_errors.ErrServiceUnavailable
	}
}

// Disconnect tears the socket down and deregisters all handlers.
// Safe to call on an already-disconnected channel.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.cancel()
	_ = c.conn.Close()
	c.mu.Unlock()

	c.ClearHandlers()

	c.log.Infof("channel disconnected: %s", c.url)
}

// writeLoop handles outbound messages from the send channel. It works
// on the connection it was started with, so a later redial never races
// an old loop against a new socket.
func (c *Channel) writeLoop(ctx context.Context, conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			c.mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

// readLoop reads envelopes until the socket closes and dispatches them.
func (c *Channel) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// No automatic reconnect; the session decides when to redial.
			c.Disconnect()
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		var env events.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warnf("channel: dropping malformed frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env events.Envelope) {
	c.hmu.RLock()
	fns := make([]HandlerFunc, len(c.handlers[env.Event]))
	copy(fns, c.handlers[env.Event])
	c.hmu.RUnlock()
	for _, fn := range fns {
		fn(env.Payload)
	}
}
