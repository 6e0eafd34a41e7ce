package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/roomserver/game/session"
	"github.com/wricardo/roomserver/game/session/sessiontest"
)

func TestNewLobby(t *testing.T) {
	l := NewLobby()
	assert.Equal(t, LobbyName, l.Name)
	assert.Equal(t, DefaultCapacity, l.Capacity())
	assert.Equal(t, 0, l.RoomCount())

	assert.Equal(t, 5, NewLobby(WithCapacity(5)).Capacity())
	assert.Equal(t, DefaultCapacity, NewLobby(WithCapacity(0)).Capacity())
}

func TestCreateRoom(t *testing.T) {
	l := NewLobby()
	a, aConn := sessiontest.NewClient()
	b, _ := sessiontest.NewClient()
	l.AddClient(a, true)
	l.AddClient(b, true)
	aConn.Reset()

	r := l.CreateRoom("duel", a, b)

	assert.Equal(t, "duel", r.Name)
	assert.Equal(t, []string{a.ID(), b.ID()}, ids(r.Clients()))
	assert.Equal(t, 0, l.ClientCount())
	assert.Equal(t, []*Room{r}, l.Rooms())

	found, ok := l.FindRoom(r.ID)
	require.True(t, ok)
	assert.Same(t, r, found)

	assert.Equal(t, []string{"room-greet", "new-player"}, aConn.Keys())
}

func TestJoinRoom(t *testing.T) {
	t.Run("creates a room when none has a free seat", func(t *testing.T) {
		l := NewLobby()
		full := l.CreateRoom("full")
		for i := 0; i < 2; i++ {
			c, _ := sessiontest.NewClient()
			full.AddClient(c, false)
		}
		c, _ := sessiontest.NewClient()

		r := l.JoinRoom(c, nil)

		require.NotNil(t, r)
		assert.NotSame(t, full, r)
		assert.Equal(t, []string{c.ID()}, ids(r.Clients()))
		assert.Equal(t, 2, l.RoomCount())
	})

	t.Run("fills the first room with a free seat", func(t *testing.T) {
		l := NewLobby()
		a, _ := sessiontest.NewClient()
		b, bConn := sessiontest.NewClient()
		l.AddClient(a, true)
		l.AddClient(b, true)

		first := l.JoinRoom(a, nil)
		second := l.JoinRoom(b, nil)

		assert.Same(t, first, second)
		assert.Equal(t, []string{a.ID(), b.ID()}, ids(first.Clients()))
		assert.Equal(t, 0, l.ClientCount())
		assert.Equal(t, 1, l.RoomCount())
		assert.Contains(t, bConn.Keys(), "room-greet")
	})

	t.Run("respects the configured capacity", func(t *testing.T) {
		l := NewLobby(WithCapacity(3))
		var rooms []*Room
		for i := 0; i < 4; i++ {
			c, _ := sessiontest.NewClient()
			rooms = append(rooms, l.JoinRoom(c, nil))
		}
		assert.Same(t, rooms[0], rooms[2])
		assert.NotSame(t, rooms[0], rooms[3])
	})

	t.Run("joins the requested room", func(t *testing.T) {
		l := NewLobby()
		target := l.CreateRoom("target")
		l.CreateRoom("other")
		c, _ := sessiontest.NewClient()
		l.AddClient(c, true)

		r := l.JoinRoom(c, json.RawMessage(`{"roomId":"`+target.ID+`"}`))

		assert.Same(t, target, r)
		assert.True(t, target.Has(c))
		assert.False(t, l.Has(c))
	})

	t.Run("requested rooms ignore capacity", func(t *testing.T) {
		l := NewLobby(WithCapacity(1))
		target := l.CreateRoom("target")
		a, _ := sessiontest.NewClient()
		target.AddClient(a, false)
		b, _ := sessiontest.NewClient()

		r := l.JoinRoom(b, json.RawMessage(`{"roomId":"`+target.ID+`"}`))

		assert.Same(t, target, r)
		assert.Equal(t, 2, target.ClientCount())
	})

	t.Run("unknown room is reported", func(t *testing.T) {
		l := NewLobby()
		c, conn := sessiontest.NewClient()
		l.AddClient(c, true)
		conn.Reset()

		r := l.JoinRoom(c, json.RawMessage(`{"roomId":"nope"}`))

		assert.Nil(t, r)
		msgs := conn.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "room-not-found", msgs[0]["key"])
		assert.Equal(t, "nope", msgs[0]["roomId"])
		assert.True(t, l.Has(c))
		assert.Equal(t, 0, l.RoomCount())
	})

	t.Run("unknown room is reported to non-members too", func(t *testing.T) {
		l := NewLobby()
		c, conn := sessiontest.NewClient()

		l.JoinRoom(c, json.RawMessage(`{"roomId":"nope"}`))

		assert.Equal(t, []string{"room-not-found"}, conn.Keys())
	})

	t.Run("empty or null roomId falls back to matchmaking", func(t *testing.T) {
		for _, data := range []string{`{"roomId":""}`, `{"roomId":null}`, `{}`, `{"other":1}`} {
			l := NewLobby()
			c, _ := sessiontest.NewClient()
			r := l.JoinRoom(c, json.RawMessage(data))
			require.NotNil(t, r, data)
			assert.True(t, r.Has(c), data)
		}
	})

	t.Run("join-game frame from a lobby member", func(t *testing.T) {
		l := NewLobby()
		c, conn := sessiontest.NewClient()
		l.AddClient(c, true)
		conn.Reset()

		c.HandleFrame([]byte(`{"key":"join-game"}`))

		require.Equal(t, 1, l.RoomCount())
		assert.True(t, l.Rooms()[0].Has(c))
		assert.Equal(t, []string{"room-greet", "join-game"}, conn.Keys())
	})

	t.Run("join-game frame inside a game room is ignored", func(t *testing.T) {
		l := NewLobby()
		c, _ := sessiontest.NewClient()
		r := l.JoinRoom(c, nil)

		c.HandleFrame([]byte(`{"key":"join-game"}`))

		assert.Equal(t, 1, l.RoomCount())
		assert.True(t, r.Has(c))
	})

	t.Run("join-game after leaving the lobby", func(t *testing.T) {
		l := NewLobby()
		c, conn := sessiontest.NewClient()
		l.AddClient(c, true)

		c.HandleFrame([]byte(`{"key":"leave-room"}`))
		require.False(t, l.Has(c))
		conn.Reset()

		c.HandleFrame([]byte(`{"key":"join-game"}`))

		require.Equal(t, 1, l.RoomCount())
		assert.True(t, l.Rooms()[0].Has(c))
		assert.Same(t, l.Rooms()[0], c.Binding())
		assert.Equal(t, []string{"room-greet", "join-game"}, conn.Keys())
	})

	t.Run("nil client", func(t *testing.T) {
		assert.Nil(t, NewLobby().JoinRoom(nil, nil))
	})
}

func TestLeavingAGameRoom(t *testing.T) {
	obs := &recordingObserver{}
	l := NewLobby(WithObserver(obs))
	a, aConn := sessiontest.NewClient()
	b, bConn := sessiontest.NewClient()
	r := l.JoinRoom(a, nil)
	l.JoinRoom(b, nil)
	aConn.Reset()
	bConn.Reset()

	a.HandleFrame([]byte(`{"key":"leave-room"}`))

	assert.True(t, l.Has(a), "leaving a game room returns the client to the lobby")
	assert.Same(t, l.Room, a.Binding())
	assert.Equal(t, []string{b.ID()}, ids(r.Clients()))
	assert.Equal(t, 1, l.RoomCount())
	assert.Equal(t, []string{"room-greet", "leave-room"}, aConn.Keys())

	// Once the last member leaves, the room is closed.
	b.HandleFrame([]byte(`{"key":"leave-room"}`))

	assert.Equal(t, 0, l.RoomCount())
	assert.Equal(t, []string{a.ID(), b.ID()}, ids(l.Clients()))
	assert.Equal(t, []string{"new-player"}, aConn.Keys()[2:])
	assert.Empty(t, obs.removed, "game room departures are handled by the lobby")
}

func TestDisconnectFromGameRoom(t *testing.T) {
	obs := &recordingObserver{}
	l := NewLobby(WithObserver(obs))
	a, _ := sessiontest.NewClient()
	b, bConn := sessiontest.NewClient()
	r := l.JoinRoom(a, nil)
	l.JoinRoom(b, nil)
	bConn.Reset()

	a.Emit(session.Frame{Key: "disconnect"})

	assert.Equal(t, []string{a.ID()}, obs.disconnected)
	assert.False(t, r.Has(a))
	assert.False(t, l.Has(a))
	assert.Equal(t, 1, l.RoomCount())
	assert.Empty(t, bConn.Frames())

	b.Emit(session.Frame{Key: "disconnect"})

	assert.Equal(t, []string{a.ID(), b.ID()}, obs.disconnected)
	assert.Equal(t, 0, l.RoomCount(), "an empty room is closed")
	assert.Equal(t, 0, l.ClientCount())
}

func TestDisconnectFromLobby(t *testing.T) {
	obs := &recordingObserver{}
	l := NewLobby(WithObserver(obs))
	c, _ := sessiontest.NewClient()
	l.AddClient(c, true)

	c.Emit(session.Frame{Key: "disconnect"})

	assert.Equal(t, []string{c.ID()}, obs.disconnected)
	assert.Equal(t, 0, l.ClientCount())
}

func TestRemoveRoom(t *testing.T) {
	l := NewLobby()
	a, aConn := sessiontest.NewClient()
	b, _ := sessiontest.NewClient()
	r := l.CreateRoom("doomed", a, b)
	aConn.Reset()

	rooms := l.RemoveRoom(r)

	assert.Empty(t, rooms)
	keys := aConn.Keys()
	require.NotEmpty(t, keys)
	assert.Equal(t, "room-closing", keys[0])
	assert.Contains(t, keys, "room-greet")
	assert.Equal(t, []string{a.ID(), b.ID()}, ids(l.Clients()))
	assert.Equal(t, 0, r.ClientCount())

	_, ok := l.FindRoom(r.ID)
	assert.False(t, ok)

	// Removing an unknown room is a no-op.
	assert.Empty(t, l.RemoveRoom(r))
	assert.Empty(t, l.RemoveRoom(nil))
}
