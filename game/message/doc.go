// Package message defines the envelopes exchanged between the room server and
// its clients.
//
// The message package implements:
//   - A closed set of outbound envelope kinds (server-greet, room-greet,
//     room-closing, new-player, room-not-found, frame-error)
//   - Acknowledgement frames echoed for every inbound frame
//   - Relaying of opaque game-event payloads
//   - Wire encoding with the recipient id stamped into every frame
//   - JSON Schema reflection of the envelope kinds
//
// Envelopes:
//
// Every kind implements Envelope. The interface is sealed by an unexported
// method, so new kinds can only be added in this package and every
// constructor carries exactly the fields its key requires.
//
// Wire Format:
//
// Each envelope marshals to one JSON object with a "key" member. Encode adds
// the recipient's id as an "id" member:
//
//	{"key":"room-greet","room":{"id":"...","createdAt":"...","name":"...","clients":["..."]},"id":"..."}
//
// Acknowledgements additionally carry "type":"ACK".
package message
