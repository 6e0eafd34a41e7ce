package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/roomserver/game/room"
	"github.com/wricardo/roomserver/game/session"
)

var _ RoomService = (*Server)(nil)

// Status reports counters and the lobby.
func (s *Server) Status(ctx context.Context) (*ServerStatus, error) {
	var status *ServerStatus
	err := s.dispatch.Do(ctx, func() {
		status = &ServerStatus{
			APIVersion:   s.cfg.APIVersion,
			Env:          s.cfg.Env,
			StartedAt:    s.startedAt,
			Uptime:       time.Since(s.startedAt).Truncate(time.Second).String(),
			Sessions:     s.sessions.Count(),
			LobbyClients: s.lobby.ClientCount(),
			Rooms:        s.lobby.RoomCount(),
			RoomCapacity: s.lobby.Capacity(),
			AutoJoin:     s.cfg.AutoJoinGames,
			Lobby:        s.roomInfo(s.lobby.Room),
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	status.Connections = s.ConnectionCount()
	return status, nil
}

// ListRooms returns the game rooms in creation order.
func (s *Server) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	var rooms []*RoomInfo
	err := s.dispatch.Do(ctx, func() {
		rooms = make([]*RoomInfo, 0, s.lobby.RoomCount())
		for _, r := range s.lobby.Rooms() {
			rooms = append(rooms, s.roomInfo(r))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom returns a game room or the lobby by id.
func (s *Server) GetRoom(ctx context.Context, roomID string) (*RoomInfo, error) {
	var info *RoomInfo
	err := s.dispatch.Do(ctx, func() {
		if strings.EqualFold(roomID, s.lobby.ID) {
			info = s.roomInfo(s.lobby.Room)
			return
		}
		if r, ok := s.lobby.FindRoom(strings.ToLower(roomID)); ok {
			info = s.roomInfo(r)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if info == nil {
		return nil, ErrRoomNotFound
	}
	return info, nil
}

// GetConnection describes a connected client and the room it is in.
func (s *Server) GetConnection(ctx context.Context, clientID string) (*ConnectionInfo, error) {
	c, err := s.sessions.Get(clientID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrConnectionNotFound
		}
		return nil, err
	}

	var info *ConnectionInfo
	err = s.dispatch.Do(ctx, func() {
		info = &ConnectionInfo{
			ID:          c.ID(),
			RemoteAddr:  c.RemoteAddr(),
			Writable:    c.Writable(),
			ConnectedAt: c.ConnectedAt(),
		}
		if last := c.LastFrameAt(); !last.IsZero() {
			info.LastFrameAt = &last
		}
		if r, ok := c.Binding().(*room.Room); ok && r.Has(c) {
			info.RoomID = r.ID
			info.RoomName = r.Name
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return info, nil
}

func (s *Server) roomInfo(r *room.Room) *RoomInfo {
	view := r.View()
	info := &RoomInfo{
		ID:        view.ID,
		Name:      view.Name,
		CreatedAt: view.CreatedAt,
		Clients:   view.Clients,
		IsLobby:   r == s.lobby.Room,
	}
	if !info.IsLobby {
		info.Capacity = s.lobby.Capacity()
	}
	return info
}
