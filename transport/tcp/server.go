package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"github.com/wricardo/roomserver/game/message"
)

// RejectMessage is sent to connections over the limit before they are closed.
const RejectMessage = "Server is full"

// HandlerFunc serves one accepted connection. It runs on its own goroutine and
// the connection is closed when it returns.
type HandlerFunc func(ctx context.Context, conn *Conn) error

// Server accepts newline-delimited TCP connections up to a limit.
type Server struct {
	addr     string
	maxConns int
	log      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	active atomic.Int64
	wg     sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithListener serves on ln instead of listening on the configured address.
func WithListener(ln net.Listener) Option {
	return func(s *Server) {
		s.listener = ln
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMaxConnections limits concurrent connections. Values below one mean
// no limit.
func WithMaxConnections(n int) Option {
	return func(s *Server) {
		s.maxConns = n
	}
}

// NewServer creates a server for addr, such as ":8999".
func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		addr: addr,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the configured address unless a listener was supplied.
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return net.ErrClosed
	}
	if s.listener != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Close is called, then
// waits for running handlers to return. Temporary accept errors are retried
// with backoff.
func (s *Server) Serve(ctx context.Context, handler HandlerFunc) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.log.Info().Str("addr", ln.Addr().String()).Int("max_connections", s.maxConns).Msg("listening")

	b := &backoff.Backoff{Min: 5 * time.Millisecond, Max: time.Second, Factor: 2}
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			delay := b.Duration()
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			}
		}
		b.Reset()

		if s.maxConns > 0 && s.active.Load() >= int64(s.maxConns) {
			s.reject(nc)
			continue
		}

		s.active.Add(1)
		s.wg.Add(1)
		go s.serveConn(ctx, nc, handler)
	}
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn, handler HandlerFunc) {
	defer s.wg.Done()
	defer s.active.Add(-1)

	conn := newConn(nc, s.log)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer func() {
		conn.Close()
		<-conn.Done()
	}()

	if err := handler(ctx, conn); err != nil {
		s.log.Warn().Err(err).Str("remote", conn.RemoteAddr()).Msg("connection ended with error")
	}
}

// reject tells a connection over the limit that the server is full.
func (s *Server) reject(nc net.Conn) {
	s.log.Warn().Str("remote", nc.RemoteAddr().String()).Msg("connection limit reached")

	frame, err := json.Marshal(message.ServerGreet{Error: RejectMessage})
	if err == nil {
		nc.SetWriteDeadline(time.Now().Add(writeWait))
		nc.Write(append(frame, '\n'))
	}
	nc.Close()
}

// Close stops accepting connections. Open connections are closed when the
// context passed to Serve is cancelled.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.listener == nil {
		return nil
	}
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ConnectionCount returns the number of connections being served.
func (s *Server) ConnectionCount() int {
	return int(s.active.Load())
}
