package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/roomserver/game/message"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Frames queued for a slow peer before deliveries start failing.
	sendQueueSize = 256
)

// RejectMessage is sent to connections over the limit before they are closed.
const RejectMessage = "Server is full"

var (
	ErrClosed         = errors.New("Client socket was closed")
	ErrSendBufferFull = errors.New("Client send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; the admin listener is not meant to be public
		return true
	},
}

// HandlerFunc serves one upgraded connection. It blocks for the lifetime of
// the connection.
type HandlerFunc func(ctx context.Context, conn *Conn) error

// Conn is one WebSocket client. Each text message carries one frame.
type Conn struct {
	hub    *Hub
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	remote string

	mu     sync.Mutex
	closed bool
}

// Hub maintains the set of active WebSocket connections
type Hub struct {
	handler  HandlerFunc
	maxConns int
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*Conn]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

func WithLogger(log zerolog.Logger) Option {
	return func(h *Hub) {
		h.log = log
	}
}

// WithMaxConnections limits concurrent connections. Values below one mean
// no limit.
func WithMaxConnections(n int) Option {
	return func(h *Hub) {
		h.maxConns = n
	}
}

// NewHub creates a hub that hands every upgraded connection to handler.
func NewHub(handler HandlerFunc, opts ...Option) *Hub {
	h := &Hub{
		handler: handler,
		log:     zerolog.Nop(),
		clients: make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := newConn(h, ws, r.RemoteAddr)
	if !h.register(c) {
		h.reject(ws)
		return
	}
	defer func() {
		c.Close()
		<-c.done
		h.unregister(c)
	}()

	go c.writePump()
	if err := h.handler(r.Context(), c); err != nil {
		h.log.Warn().Err(err).Str("remote", c.remote).Msg("connection ended with error")
	}
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// register adds a client to the hub unless the limit has been reached
func (h *Hub) register(c *Conn) bool {
	h.mu.Lock()
	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug().Str("remote", c.remote).Int("connections", total).Msg("WebSocket client registered")
	return true
}

// unregister removes a client from the hub
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug().Str("remote", c.remote).Int("connections", total).Msg("WebSocket client unregistered")
}

func (h *Hub) reject(ws *websocket.Conn) {
	h.log.Warn().Str("remote", ws.RemoteAddr().String()).Msg("connection limit reached")

	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if frame, err := json.Marshal(message.ServerGreet{Error: RejectMessage}); err == nil {
		ws.WriteMessage(websocket.TextMessage, frame)
	}
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, RejectMessage))
	ws.Close()
}

func newConn(h *Hub, ws *websocket.Conn, remote string) *Conn {
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	return &Conn{
		hub:    h,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		remote: remote,
	}
}

// ReadFrame returns the next non-empty text message. A normal close by the
// peer is reported as io.EOF.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil, io.EOF
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Str("remote", c.remote).Msg("WebSocket error")
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		if data = bytes.TrimSpace(data); len(data) > 0 {
			return data, nil
		}
	}
}

// WriteFrame queues frame as one text message. It never blocks.
func (c *Conn) WriteFrame(frame []byte) error {
	msg := make([]byte, len(frame))
	copy(msg, frame)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Writable reports whether frames can still be queued.
func (c *Conn) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close stops accepting frames. Queued frames are flushed, then a close
// message is sent and the socket is closed. Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *Conn) RemoteAddr() string {
	return c.remote
}

// writePump pumps queued frames to the WebSocket connection
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Close was called
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.fail(err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *Conn) fail(err error) {
	c.hub.log.Debug().Err(err).Str("remote", c.remote).Msg("write failed")
	c.Close()
}
