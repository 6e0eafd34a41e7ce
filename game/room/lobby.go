package room

import (
	"encoding/json"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wricardo/roomserver/game/message"
	"github.com/wricardo/roomserver/game/session"
)

// LobbyName is the name every lobby carries.
const LobbyName = "LOBBY"

// Lobby is the waiting room. It owns the game rooms and observes them, so a
// client that leaves a game room comes back here.
type Lobby struct {
	*Room

	rooms    *orderedmap.OrderedMap[string, *Room]
	capacity int
}

// NewLobby creates an empty lobby. WithObserver sets who hears about the
// lobby's own membership changes, typically the server.
func NewLobby(opts ...Option) *Lobby {
	o := buildOptions(opts)
	l := &Lobby{
		Room:     newRoom(LobbyName, o),
		rooms:    orderedmap.New[string, *Room](),
		capacity: o.capacity,
	}
	l.Room.matchmaker = l
	return l
}

// Capacity returns the matchmaking capacity of the lobby's rooms.
func (l *Lobby) Capacity() int {
	return l.capacity
}

// CreateRoom registers a new game room observed by the lobby and moves the
// given clients into it.
func (l *Lobby) CreateRoom(name string, clients ...*session.Client) *Room {
	r := New(name, WithLogger(l.log), WithObserver(l))
	for _, c := range clients {
		r.AddClient(c, true)
	}
	for _, c := range clients {
		l.RemoveClient(c)
	}
	l.rooms.Set(r.ID, r)
	l.log.Info().Str("new_room", r.ID).Int("rooms", l.rooms.Len()).Msg("room created")
	return r
}

// RemoveRoom closes r: its occupants get room-closing, r is unregistered and
// the occupants are moved back into the lobby. Unknown rooms are ignored.
// It returns the remaining rooms.
func (l *Lobby) RemoveRoom(r *Room) []*Room {
	if r == nil {
		return l.Rooms()
	}
	if _, ok := l.rooms.Get(r.ID); !ok {
		return l.Rooms()
	}

	r.NotifyClients(message.RoomClosing{Room: r.View()}, nil)
	l.rooms.Delete(r.ID)
	for _, c := range r.Clients() {
		l.AddClient(c, true)
	}
	l.log.Info().Str("old_room", r.ID).Int("rooms", l.rooms.Len()).Msg("room removed")
	return l.Rooms()
}

// JoinRoom moves c out of the lobby and into a game room. When data names a
// roomId that room is used, and an unknown id is answered with room-not-found.
// Otherwise the first room with a free seat is used, or a new one is created.
// It returns the room joined, or nil.
func (l *Lobby) JoinRoom(c *session.Client, data json.RawMessage) *Room {
	if c == nil {
		return nil
	}

	target, requested, ok := l.requestedRoom(data)
	if requested && !ok {
		l.log.Debug().Str("client", c.ID()).Str("requested", target).Msg("room not found")
		c.Notify(message.RoomNotFound{RoomID: target})
		return nil
	}

	var r *Room
	if requested {
		r, _ = l.rooms.Get(target)
	} else {
		r = l.openRoom()
		if r == nil {
			r = l.CreateRoom("")
		}
	}

	l.RemoveClient(c)
	r.AddClient(c, true)
	return r
}

// requestedRoom reads data.roomId. It reports the id, whether one was given,
// and whether it names a registered room.
func (l *Lobby) requestedRoom(data json.RawMessage) (string, bool, bool) {
	if len(data) == 0 {
		return "", false, false
	}

	value, dataType, _, err := jsonparser.Get(data, "roomId")
	if err != nil || dataType == jsonparser.Null {
		return "", false, false
	}

	id := string(value)
	if dataType == jsonparser.String {
		parsed, err := jsonparser.ParseString(value)
		if err != nil {
			return id, true, false
		}
		if parsed == "" {
			return "", false, false
		}
		id = parsed
	}

	_, ok := l.rooms.Get(id)
	return id, true, ok
}

func (l *Lobby) openRoom() *Room {
	for pair := l.rooms.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.ClientCount() < l.capacity {
			return pair.Value
		}
	}
	return nil
}

// FindRoom looks up a registered game room by id.
func (l *Lobby) FindRoom(id string) (*Room, bool) {
	return l.rooms.Get(id)
}

// Rooms returns the registered game rooms in creation order.
func (l *Lobby) Rooms() []*Room {
	out := make([]*Room, 0, l.rooms.Len())
	for pair := l.rooms.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// RoomCount returns the number of registered game rooms.
func (l *Lobby) RoomCount() int {
	return l.rooms.Len()
}

// ClientRemoved moves a client that left one of the lobby's rooms back into
// the lobby, and closes the room once it is empty.
func (l *Lobby) ClientRemoved(c *session.Client, r *Room) {
	l.AddClient(c, true)
	if r.ClientCount() < 1 {
		l.RemoveRoom(r)
	}
}

// ClientDisconnected passes the disconnect on to the lobby's own observer and
// closes the room once it is empty.
func (l *Lobby) ClientDisconnected(c *session.Client, r *Room) {
	if l.observer != nil {
		l.observer.ClientDisconnected(c, r)
	}
	if r.ClientCount() < 1 {
		l.RemoveRoom(r)
	}
}
