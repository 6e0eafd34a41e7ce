package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/roomserver/game/message"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingKey     = errors.New("frame has no key")
)

// Frame is one decoded inbound line.
type Frame struct {
	Key  message.Key     `json:"key"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseFrame decodes a single JSON object carrying a string key.
func ParseFrame(line []byte) (Frame, error) {
	var f Frame
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return f, ErrMalformedFrame
	}
	if err := json.Unmarshal(line, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Key == "" {
		return f, ErrMissingKey
	}
	return f, nil
}

// HandleFrame decodes line, raises the matching event on the client's binding
// and acknowledges the frame. A disconnect is acknowledged before its event. Lines that do not decode are answered with a
// frame-error and not acknowledged; the decode error is returned.
func (c *Client) HandleFrame(line []byte) (Frame, error) {
	f, err := ParseFrame(line)
	if err != nil {
		c.log.Debug().Err(err).Msg("rejected frame")
		c.Notify(message.FrameError{Error: err.Error()})
		return f, err
	}

	c.lastFrameAt = time.Now()
	c.log.Debug().Str("key", string(f.Key)).Msg("frame received")

	// A disconnect closes the connection, so its ACK has to be queued first.
	ack := message.Ack{Of: f.Key, Data: f.Data}
	if f.Key == message.KeyDisconnect {
		c.Notify(ack)
		c.Emit(f)
		return f, nil
	}
	c.Emit(f)
	c.Notify(ack)
	return f, nil
}

// Emit raises the event for f on the current binding. Keys without a
// semantic handler are ignored.
func (c *Client) Emit(f Frame) {
	b := c.binding
	if b == nil {
		return
	}

	switch f.Key {
	case message.KeyLeaveRoom:
		b.LeaveRoom(c)
	case message.KeyDisconnect:
		b.Disconnect(c)
	case message.KeyGameEvent:
		b.GameEvent(c, f.Data)
	case message.KeyJoinGame:
		b.JoinGame(c, f.Data)
	}
}
