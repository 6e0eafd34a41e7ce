package service

import (
	"time"
)

// ServerStatus summarises a running server
type ServerStatus struct {
	APIVersion   string    `json:"api_version"`
	Env          string    `json:"env"`
	StartedAt    time.Time `json:"started_at"`
	Uptime       string    `json:"uptime"`
	Connections  int       `json:"connections"`
	Sessions     int       `json:"sessions"`
	LobbyClients int       `json:"lobby_clients"`
	Rooms        int       `json:"rooms"`
	RoomCapacity int       `json:"room_capacity"`
	AutoJoin     bool      `json:"auto_join_games"`
	Lobby        *RoomInfo `json:"lobby"`
}

// RoomInfo provides information about a room
type RoomInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Clients   []string  `json:"clients"`
	Capacity  int       `json:"capacity,omitempty"` // zero for the lobby
	IsLobby   bool      `json:"is_lobby"`
}

// ConnectionInfo provides information about a connected client
type ConnectionInfo struct {
	ID          string     `json:"id"`
	RemoteAddr  string     `json:"remote_addr"`
	Writable    bool       `json:"writable"`
	ConnectedAt time.Time  `json:"connected_at"`
	LastFrameAt *time.Time `json:"last_frame_at,omitempty"`
	RoomID      string     `json:"room_id,omitempty"`
	RoomName    string     `json:"room_name,omitempty"`
}
