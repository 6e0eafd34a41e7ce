// Package sessiontest provides an in-memory session.Conn for tests.
package sessiontest

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/wricardo/roomserver/game/session"
)

// ErrBufferFull is returned by a Conn that has been told to refuse writes.
var ErrBufferFull = errors.New("Client send buffer full")

// Conn records every frame written to it.
type Conn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	refuse bool
	addr   string
}

// NewConn returns an open Conn.
func NewConn() *Conn {
	return &Conn{addr: "pipe"}
}

// NewClient returns a client with a fresh id over a new Conn.
func NewClient() (*session.Client, *Conn) {
	conn := NewConn()
	c, err := session.NewClient(session.NewID(), conn)
	if err != nil {
		panic(err)
	}
	return c, conn
}

func (c *Conn) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Conn) WriteFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refuse {
		return ErrBufferFull
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) RemoteAddr() string {
	return c.addr
}

// Refuse makes later writes fail as if the send buffer were full.
func (c *Conn) Refuse() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refuse = true
}

// Frames returns a copy of everything written so far.
func (c *Conn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

// Messages decodes every written frame into a generic map.
func (c *Conn) Messages() []map[string]any {
	frames := c.Frames()
	out := make([]map[string]any, 0, len(frames))
	for _, f := range frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

// Keys returns the key of every written frame, in order.
func (c *Conn) Keys() []string {
	msgs := c.Messages()
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		k, _ := m["key"].(string)
		keys = append(keys, k)
	}
	return keys
}

// Reset forgets recorded frames.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	return !c.Writable()
}
