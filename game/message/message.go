package message

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
)

// Key identifies the meaning of a frame on the wire.
type Key string

// Outbound envelope keys.
const (
	KeyServerGreet  Key = "server-greet"
	KeyRoomGreet    Key = "room-greet"
	KeyRoomClosing  Key = "room-closing"
	KeyNewPlayer    Key = "new-player"
	KeyRoomNotFound Key = "room-not-found"
	KeyFrameError   Key = "frame-error"
)

// Inbound frame keys with a semantic handler.
const (
	KeyLeaveRoom  Key = "leave-room"
	KeyDisconnect Key = "disconnect"
	KeyJoinGame   Key = "join-game"
	KeyGameEvent  Key = "game-event"
)

// TypeAck marks acknowledgement frames.
const TypeAck = "ACK"

// Envelope is an outbound message. The set of implementations is closed.
type Envelope interface {
	Key() Key
	envelope()
}

// RoomView is the wire rendering of a room. Only member ids are exposed.
type RoomView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	Clients   []string  `json:"clients"`
}

// ServerGreet is sent once right after a connection is accepted.
type ServerGreet struct {
	Error string `json:"error,omitempty"`
}

// RoomGreet is sent to a client when it joins a room.
type RoomGreet struct {
	Room  RoomView `json:"room"`
	Error string   `json:"error,omitempty"`
}

// RoomClosing is sent to every occupant of a room that is being torn down.
type RoomClosing struct {
	Room RoomView `json:"room"`
}

// NewPlayer is sent to existing occupants when someone joins their room.
type NewPlayer struct {
	NewPlayerID string   `json:"newPlayerId"`
	Room        RoomView `json:"room"`
}

// RoomNotFound answers a join request naming an unknown room.
type RoomNotFound struct {
	RoomID string `json:"roomId"`
}

// FrameError answers an inbound line that could not be handled.
type FrameError struct {
	Error string `json:"error"`
}

// Ack echoes an inbound frame back to its sender.
type Ack struct {
	Of   Key             `json:"key"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Relay carries an opaque game-event payload to other room members.
type Relay struct {
	Data json.RawMessage
}

func (ServerGreet) Key() Key  { return KeyServerGreet }
func (RoomGreet) Key() Key    { return KeyRoomGreet }
func (RoomClosing) Key() Key  { return KeyRoomClosing }
func (NewPlayer) Key() Key    { return KeyNewPlayer }
func (RoomNotFound) Key() Key { return KeyRoomNotFound }
func (FrameError) Key() Key   { return KeyFrameError }
func (a Ack) Key() Key        { return a.Of }

// Key reports the payload's own "key" member, or KeyGameEvent when it has none.
func (r Relay) Key() Key {
	if k, err := jsonparser.GetString(r.Data, "key"); err == nil {
		return Key(k)
	}
	return KeyGameEvent
}

func (ServerGreet) envelope()  {}
func (RoomGreet) envelope()    {}
func (RoomClosing) envelope()  {}
func (NewPlayer) envelope()    {}
func (RoomNotFound) envelope() {}
func (FrameError) envelope()   {}
func (Ack) envelope()          {}
func (Relay) envelope()        {}

func (m ServerGreet) MarshalJSON() ([]byte, error) {
	type fields ServerGreet
	return keyed(m.Key(), fields(m))
}

func (m RoomGreet) MarshalJSON() ([]byte, error) {
	type fields RoomGreet
	return keyed(m.Key(), fields(m))
}

func (m RoomClosing) MarshalJSON() ([]byte, error) {
	type fields RoomClosing
	return keyed(m.Key(), fields(m))
}

func (m NewPlayer) MarshalJSON() ([]byte, error) {
	type fields NewPlayer
	return keyed(m.Key(), fields(m))
}

func (m RoomNotFound) MarshalJSON() ([]byte, error) {
	type fields RoomNotFound
	return keyed(m.Key(), fields(m))
}

func (m FrameError) MarshalJSON() ([]byte, error) {
	type fields FrameError
	return keyed(m.Key(), fields(m))
}

func (a Ack) MarshalJSON() ([]byte, error) {
	type fields Ack
	return json.Marshal(struct {
		fields
		Type string `json:"type"`
	}{fields(a), TypeAck})
}

func (r Relay) MarshalJSON() ([]byte, error) {
	if len(r.Data) == 0 {
		return []byte("null"), nil
	}
	return r.Data, nil
}

// keyed marshals fields and puts the key member first.
func keyed(key Key, fields any) ([]byte, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	head := `{"key":` + strconv.Quote(string(key))
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}
