package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wricardo/roomserver/game/config"
	"github.com/wricardo/roomserver/game/message"
	"github.com/wricardo/roomserver/game/room"
	"github.com/wricardo/roomserver/game/session"
)

var ErrRateLimited = errors.New("frame rate exceeded")

const defaultInboxSize = 256

// Conn is a transport connection the server can read frames from.
type Conn interface {
	session.Conn
	// ReadFrame blocks until the next inbound line. It returns io.EOF once
	// the peer is gone.
	ReadFrame() ([]byte, error)
}

// Server owns the lobby and every connected client. All lobby, room and
// client state is mutated on its dispatcher.
type Server struct {
	cfg       *config.Config
	log       zerolog.Logger
	dispatch  *Dispatcher
	sessions  *session.Manager
	lobby     *room.Lobby
	startedAt time.Time

	mu      sync.Mutex
	sockets []ConnCounter
}

// NewServer creates a server. Run must be called before connections are
// served.
func NewServer(cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       config.Component(log, "server"),
		sessions:  session.NewManager(session.WithLogger(config.Component(log, "session"))),
		startedAt: time.Now(),
	}
	s.dispatch = NewDispatcher(defaultInboxSize, s.log)
	s.lobby = room.NewLobby(
		room.WithLogger(config.Component(log, "lobby")),
		room.WithObserver(s),
		room.WithCapacity(cfg.RoomCapacity),
	)
	return s
}

// Run processes events until ctx is cancelled, then closes every connection
// still registered.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().
		Str("api_version", s.cfg.APIVersion).
		Int("room_capacity", s.lobby.Capacity()).
		Bool("auto_join_games", s.cfg.AutoJoinGames).
		Msg("server running")

	s.dispatch.Run(ctx)

	n := s.sessions.CloseAll()
	s.log.Info().Int("closed", n).Msg("server stopped")
	return nil
}

// Attach registers a transport whose connections count toward
// ConnectionCount.
func (s *Server) Attach(c ConnCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets = append(s.sockets, c)
}

// ConnectionCount returns the number of open connections across all attached
// transports.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, sock := range s.sockets {
		total += sock.ConnectionCount()
	}
	return total
}

// Connection looks up a connected client by id.
func (s *Server) Connection(id string) (*session.Client, error) {
	return s.sessions.Get(id)
}

// ServeConn admits conn and reads frames from it until the peer goes away or
// ctx is cancelled. An abrupt close runs the same cascade as a disconnect
// frame. The connection is closed on return.
func (s *Server) ServeConn(ctx context.Context, conn Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var (
		client *session.Client
		err    error
	)
	if derr := s.dispatch.Do(ctx, func() { client, err = s.admit(conn) }); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	defer s.release(client)

	limiter := s.newLimiter()
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		if limiter != nil && !limiter.Allow() {
			if err := s.dispatch.Post(ctx, func() {
				client.Notify(message.FrameError{Error: ErrRateLimited.Error()})
			}); err != nil {
				return nil
			}
			continue
		}

		if err := s.dispatch.Post(ctx, func() { s.handle(client, frame) }); err != nil {
			return nil
		}
	}
}

// handle runs one frame. A disconnect frame always ends the session, even
// when the client is not in any room to hear it.
func (s *Server) handle(c *session.Client, line []byte) {
	f, err := c.HandleFrame(line)
	if err == nil && f.Key == message.KeyDisconnect {
		s.drop(c)
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.FrameRate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.cfg.FrameRate), s.cfg.FrameBurst)
}

// admit registers a new client, greets it and puts it in the lobby.
func (s *Server) admit(conn Conn) (*session.Client, error) {
	c, err := s.sessions.Create("", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to admit connection: %w", err)
	}

	s.log.Info().Str("client", c.ID()).Str("remote", conn.RemoteAddr()).Msg("client connected")
	c.Notify(message.ServerGreet{})
	s.lobby.AddClient(c, true)
	if s.cfg.AutoJoinGames {
		s.lobby.JoinRoom(c, nil)
	}
	return c, nil
}

// release raises a disconnect for a client whose reader stopped and forgets
// it. Clients that already disconnected are left alone.
func (s *Server) release(c *session.Client) {
	_ = s.dispatch.Post(context.Background(), func() {
		if _, err := s.sessions.Get(c.ID()); err != nil {
			return
		}
		c.Emit(session.Frame{Key: message.KeyDisconnect})
		s.drop(c)
	})
}

func (s *Server) drop(c *session.Client) {
	if err := s.sessions.Delete(c.ID()); err != nil {
		return
	}
	if err := c.Close(); err != nil {
		s.log.Debug().Err(err).Str("client", c.ID()).Msg("failed to close connection")
	}
	s.log.Info().Str("client", c.ID()).Int("sessions", s.sessions.Count()).Msg("client disconnected")
}

// ClientRemoved is called when a client leaves the lobby itself.
func (s *Server) ClientRemoved(c *session.Client, r *room.Room) {
	s.log.Debug().Str("client", c.ID()).Str("room", r.ID).Msg("client left the lobby")
}

// ClientDisconnected ends the client's connection and forgets it.
func (s *Server) ClientDisconnected(c *session.Client, r *room.Room) {
	s.drop(c)
}
