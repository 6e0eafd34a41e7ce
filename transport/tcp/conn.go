package tcp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Time allowed to write one frame to the peer.
	writeWait = 10 * time.Second

	// Maximum length of one inbound line.
	MaxFrameSize = 64 * 1024

	// Frames queued for a slow peer before deliveries start failing.
	sendQueueSize = 256
)

var (
	ErrClosed         = errors.New("Client socket was closed")
	ErrSendBufferFull = errors.New("Client send buffer full")
)

// Conn is a newline-delimited connection. Reads happen on the caller's
// goroutine; writes are queued and flushed by a writer goroutine.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	send    chan []byte
	done    chan struct{}
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func newConn(nc net.Conn, log zerolog.Logger) *Conn {
	scanner := bufio.NewScanner(nc)
	scanner.Buffer(make([]byte, 4096), MaxFrameSize)

	c := &Conn{
		conn:    nc,
		scanner: scanner,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		log:     log.With().Str("remote", nc.RemoteAddr().String()).Logger(),
	}
	go c.writePump()
	return c
}

// ReadFrame returns the next non-blank line without its terminator. It
// returns io.EOF when the peer closes the connection and bufio.ErrTooLong
// for lines over MaxFrameSize.
func (c *Conn) ReadFrame() ([]byte, error) {
	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := c.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// WriteFrame queues frame followed by a newline. It never blocks.
func (c *Conn) WriteFrame(frame []byte) error {
	line := make([]byte, len(frame)+1)
	copy(line, frame)
	line[len(frame)] = '\n'

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- line:
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

// Close stops accepting frames. Frames already queued are flushed before the
// socket is closed. Close is idempotent.
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
	return c.conn.RemoteAddr().String()
}

// Done is closed once the socket itself has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// writePump flushes queued frames to the socket. A write error closes the
// connection; the reader then sees the socket go away.
func (c *Conn) writePump() {
	defer func() {
		c.conn.Close()
		close(c.done)
	}()

	w := bufio.NewWriter(c.conn)
	for line := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := w.Write(line); err != nil {
			c.fail(err)
			return
		}

		// Add queued frames to the current flush.
		n := len(c.send)
		for i := 0; i < n; i++ {
			if _, err := w.Write(<-c.send); err != nil {
				c.fail(err)
				return
			}
		}

		if err := w.Flush(); err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Conn) fail(err error) {
	c.log.Debug().Err(err).Msg("write failed")
	c.Close()
}
