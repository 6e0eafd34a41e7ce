package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/roomserver/game/message"
)

var (
	ErrNoConnection = errors.New("client requires a connection")
	ErrInvalidID    = errors.New("client requires a valid id")
)

// Delivery error strings reported by Notify.
const (
	ErrSocketClosed = "Client socket was closed"
	ErrSendFailed   = "Client send failed"
)

// Conn is the byte-level connection a Client writes frames to.
// Implementations must be safe for use from multiple goroutines.
type Conn interface {
	Writable() bool
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}

// Binding receives the semantic events a Client raises. A Client is bound to
// at most one Binding at a time, which is how a room learns what its members
// are doing.
type Binding interface {
	LeaveRoom(c *Client)
	Disconnect(c *Client)
	GameEvent(c *Client, data json.RawMessage)
	JoinGame(c *Client, data json.RawMessage)

	// Evict drops c from the binding without raising any lifecycle events.
	// It is called when c is bound elsewhere.
	Evict(c *Client)
}

// Delivery reports the outcome of a single Notify.
type Delivery struct {
	ClientID string           `json:"clientId"`
	Message  message.Envelope `json:"message"`
	Error    string           `json:"error,omitempty"`
}

// OK reports whether the frame was handed to the connection.
func (d Delivery) OK() bool {
	return d.Error == ""
}

// Client is one connected participant.
type Client struct {
	id          string
	conn        Conn
	binding     Binding
	log         zerolog.Logger
	connectedAt time.Time
	lastFrameAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-client diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient wraps conn. The id must be a canonical version 4 UUID.
func NewClient(id string, conn Conn, opts ...Option) (*Client, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}
	if !IsValidID(id) {
		return nil, ErrInvalidID
	}

	c := &Client{
		id:          strings.ToLower(id),
		conn:        conn,
		log:         zerolog.Nop(),
		connectedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("client", c.id).Logger()
	return c, nil
}

// NewID returns a fresh random client id.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id is a hyphenated version 4 UUID in the RFC 4122
// variant. Case is ignored.
func IsValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr()
}

func (c *Client) Writable() bool {
	return c.conn.Writable()
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// LastFrameAt returns when the last inbound frame was handled, or the zero
// time if none was.
func (c *Client) LastFrameAt() time.Time {
	return c.lastFrameAt
}

// Bind makes b the client's binding and returns the previous one.
func (c *Client) Bind(b Binding) Binding {
	prev := c.binding
	c.binding = b
	return prev
}

// Binding returns the current binding, or nil.
func (c *Client) Binding() Binding {
	return c.binding
}

// Notify encodes env for this client and queues it on the connection. It
// never fails loudly: problems are reported in the Delivery.
func (c *Client) Notify(env message.Envelope) Delivery {
	d := Delivery{ClientID: c.id, Message: env}

	if !c.conn.Writable() {
		d.Error = ErrSocketClosed
		return d
	}

	frame, err := message.Encode(env, c.id)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to encode message")
		d.Error = err.Error()
		return d
	}

	if err := c.conn.WriteFrame(frame); err != nil {
		c.log.Debug().Err(err).Str("key", string(env.Key())).Msg("failed to write frame")
		d.Error = err.Error()
		if d.Error == "" {
			d.Error = ErrSendFailed
		}
	}
	return d
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
