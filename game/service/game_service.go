package service

import (
	"context"
	"errors"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrConnectionNotFound = errors.New("connection not found")
)

// RoomService is the read-only view of a running server used by the admin
// surfaces.
type RoomService interface {
	// Server
	Status(ctx context.Context) (*ServerStatus, error)

	// Rooms
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	GetRoom(ctx context.Context, roomID string) (*RoomInfo, error)

	// Connections
	GetConnection(ctx context.Context, clientID string) (*ConnectionInfo, error)
}

// ConnCounter is a transport that knows how many connections it holds.
type ConnCounter interface {
	ConnectionCount() int
}
