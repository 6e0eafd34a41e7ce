package message

import (
	"slices"

	"github.com/invopop/jsonschema"
)

// Schemas reflects a JSON Schema for every structured outbound kind, keyed by
// the envelope key. Relayed game events are opaque and have no schema.
func Schemas() map[Key]*jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	return map[Key]*jsonschema.Schema{
		KeyServerGreet:  r.Reflect(&ServerGreet{}),
		KeyRoomGreet:    r.Reflect(&RoomGreet{}),
		KeyRoomClosing:  r.Reflect(&RoomClosing{}),
		KeyNewPlayer:    r.Reflect(&NewPlayer{}),
		KeyRoomNotFound: r.Reflect(&RoomNotFound{}),
		KeyFrameError:   r.Reflect(&FrameError{}),
		TypeAck:         r.Reflect(&Ack{}),
	}
}

func (ServerGreet) JSONSchemaExtend(s *jsonschema.Schema)  { stampKey(s, KeyServerGreet) }
func (RoomGreet) JSONSchemaExtend(s *jsonschema.Schema)    { stampKey(s, KeyRoomGreet) }
func (RoomClosing) JSONSchemaExtend(s *jsonschema.Schema)  { stampKey(s, KeyRoomClosing) }
func (NewPlayer) JSONSchemaExtend(s *jsonschema.Schema)    { stampKey(s, KeyNewPlayer) }
func (RoomNotFound) JSONSchemaExtend(s *jsonschema.Schema) { stampKey(s, KeyRoomNotFound) }
func (FrameError) JSONSchemaExtend(s *jsonschema.Schema)   { stampKey(s, KeyFrameError) }

func (Ack) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties == nil {
		return
	}
	s.Properties.Set("key", &jsonschema.Schema{Type: "string"})
	s.Properties.Set("data", &jsonschema.Schema{Description: "payload of the acknowledged frame"})
	s.Properties.Set("type", &jsonschema.Schema{Type: "string", Const: TypeAck})
	s.Properties.Set("id", &jsonschema.Schema{Type: "string", Format: "uuid"})
	s.Required = appendMissing(s.Required, "key", "type", "id")
}

func stampKey(s *jsonschema.Schema, key Key) {
	if s.Properties == nil {
		return
	}
	s.Properties.Set("key", &jsonschema.Schema{Type: "string", Const: string(key)})
	s.Properties.Set("id", &jsonschema.Schema{Type: "string", Format: "uuid"})
	s.Required = appendMissing(s.Required, "key", "id")
}

func appendMissing(list []string, names ...string) []string {
	for _, name := range names {
		if !slices.Contains(list, name) {
			list = append(list, name)
		}
	}
	return list
}
