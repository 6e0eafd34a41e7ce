package room

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wricardo/roomserver/game/message"
	"github.com/wricardo/roomserver/game/session"
)

// ErrEventNotObject is reported to a member whose game-event data is not a
// JSON object.
var ErrEventNotObject = errors.New("game-event data must be a JSON object")

// Observer is told about membership changes a room cannot resolve itself.
type Observer interface {
	// ClientRemoved is called after c left r voluntarily.
	ClientRemoved(c *session.Client, r *Room)
	// ClientDisconnected is called after c was dropped from r because its
	// connection went away.
	ClientDisconnected(c *session.Client, r *Room)
}

// Matchmaker places a client into a game room.
type Matchmaker interface {
	JoinRoom(c *session.Client, data json.RawMessage) *Room
}

// Notification is the per-recipient outcome of NotifyClients.
type Notification struct {
	ID       string           `json:"id"`
	Notified bool             `json:"notified"`
	Message  message.Envelope `json:"message"`
	Error    string           `json:"error,omitempty"`
}

// Room is a named group of clients. Members are kept in join order.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	members    *orderedmap.OrderedMap[string, *session.Client]
	observer   Observer
	matchmaker Matchmaker
	log        zerolog.Logger
}

// New creates an empty room. An empty name defaults to "[<id>]".
func New(name string, opts ...Option) *Room {
	return newRoom(name, buildOptions(opts))
}

func newRoom(name string, o options) *Room {
	id := uuid.NewString()
	if name == "" {
		name = "[" + id + "]"
	}
	return &Room{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		members:   orderedmap.New[string, *session.Client](),
		observer:  o.observer,
		log:       o.log.With().Str("room", id).Logger(),
	}
}

// SetObserver replaces the room's observer.
func (r *Room) SetObserver(o Observer) {
	r.observer = o
}

// AddClient admits c, greeting it when sendGreeting is set, and tells the
// other members about the newcomer. A client that was bound to another room
// is evicted from there first. It returns the members after the change.
func (r *Room) AddClient(c *session.Client, sendGreeting bool) []*session.Client {
	if c == nil {
		return r.Clients()
	}

	if prev := c.Bind(r); prev != nil && prev != session.Binding(r) {
		prev.Evict(c)
	}
	r.members.Set(c.ID(), c)
	r.log.Debug().Str("client", c.ID()).Int("members", r.members.Len()).Msg("client added")

	view := r.View()
	if sendGreeting {
		c.Notify(message.RoomGreet{Room: view})
	}
	if others := r.except(c.ID()); len(others) > 0 {
		r.NotifyClients(message.NewPlayer{NewPlayerID: c.ID(), Room: view}, others)
	}
	return r.Clients()
}

// RemoveClient drops c and notifies the observer. Removing a non-member is a
// no-op. It returns the members after the change.
func (r *Room) RemoveClient(c *session.Client) []*session.Client {
	if c == nil {
		return r.Clients()
	}

	if _, present := r.members.Delete(c.ID()); present {
		r.log.Debug().Str("client", c.ID()).Int("members", r.members.Len()).Msg("client removed")
		if r.observer != nil {
			r.observer.ClientRemoved(c, r)
		}
	}
	return r.Clients()
}

// NotifyClients sends env to each member in targets, or to every member when
// targets is nil. Targets that are not members are skipped.
func (r *Room) NotifyClients(env message.Envelope, targets []*session.Client) []Notification {
	var want map[string]struct{}
	if targets != nil {
		want = make(map[string]struct{}, len(targets))
		for _, t := range targets {
			if t != nil {
				want[t.ID()] = struct{}{}
			}
		}
	}

	results := make([]Notification, 0, r.members.Len())
	for pair := r.members.Oldest(); pair != nil; pair = pair.Next() {
		if want != nil {
			if _, ok := want[pair.Key]; !ok {
				continue
			}
		}

		d := pair.Value.Notify(env)
		if !d.OK() {
			r.log.Debug().Str("client", pair.Key).Str("error", d.Error).Msg("notify failed")
		}
		results = append(results, Notification{
			ID:       pair.Key,
			Notified: d.OK(),
			Message:  env,
			Error:    d.Error,
		})
	}
	return results
}

// Has reports whether c is a member.
func (r *Room) Has(c *session.Client) bool {
	if c == nil {
		return false
	}
	_, ok := r.members.Get(c.ID())
	return ok
}

// ClientCount returns the number of members.
func (r *Room) ClientCount() int {
	return r.members.Len()
}

// Clients returns the members in join order.
func (r *Room) Clients() []*session.Client {
	out := make([]*session.Client, 0, r.members.Len())
	for pair := r.members.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// View renders the room for the wire.
func (r *Room) View() message.RoomView {
	ids := make([]string, 0, r.members.Len())
	for pair := r.members.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return message.RoomView{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Name:      r.Name,
		Clients:   ids,
	}
}

func (r *Room) except(id string) []*session.Client {
	out := make([]*session.Client, 0, r.members.Len())
	for pair := r.members.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != id {
			out = append(out, pair.Value)
		}
	}
	return out
}

// LeaveRoom handles a member's leave-room frame.
func (r *Room) LeaveRoom(c *session.Client) {
	r.RemoveClient(c)
}

// Disconnect handles a member's connection going away. The member is dropped
// and the observer is told about the disconnect. Remaining members get no
// notice; room-closing is only sent when the whole room is removed.
func (r *Room) Disconnect(c *session.Client) {
	if _, present := r.members.Delete(c.ID()); !present {
		return
	}
	r.log.Debug().Str("client", c.ID()).Int("members", r.members.Len()).Msg("client disconnected")
	if r.observer != nil {
		r.observer.ClientDisconnected(c, r)
	}
}

// GameEvent relays data to every member other than the sender. The sender is
// data.clientId when present, the emitting client otherwise. Data that is not
// a JSON object is answered with a frame-error and not relayed.
func (r *Room) GameEvent(c *session.Client, data json.RawMessage) {
	if !r.Has(c) {
		return
	}
	if _, dataType, _, err := jsonparser.Get(data); err != nil || dataType != jsonparser.Object {
		c.Notify(message.FrameError{Error: ErrEventNotObject.Error()})
		return
	}

	sender := c.ID()
	if id, err := jsonparser.GetString(data, "clientId"); err == nil {
		sender = id
	}
	if others := r.except(sender); len(others) > 0 {
		r.NotifyClients(message.Relay{Data: data}, others)
	}
}

// JoinGame hands c to the room's matchmaker, if it has one. c need not be a
// member: a client that left the lobby stays bound to it and can still ask
// for a game.
func (r *Room) JoinGame(c *session.Client, data json.RawMessage) {
	if r.matchmaker == nil {
		return
	}
	r.matchmaker.JoinRoom(c, data)
}

// Evict drops c without notifying anyone.
func (r *Room) Evict(c *session.Client) {
	if _, present := r.members.Delete(c.ID()); present {
		r.log.Debug().Str("client", c.ID()).Msg("client evicted")
	}
}
