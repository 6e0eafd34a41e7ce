// Package session provides the connected-client side of the room server.
//
// The session package implements:
//   - Client identity (version 4 UUIDs) and connection wrapping
//   - Delivery of envelopes with per-recipient id stamping
//   - Decoding of inbound frames and acknowledgement of every frame
//   - Routing of semantic events to the client's current Binding
//   - A thread-safe Manager of connected clients
//
// Core Types:
//
// Client wraps a Conn, which is anything that can accept encoded frames. A
// Client never writes to the network directly; the transport owns buffering.
// Binding is the other half of a client: the room the client is currently in.
// Bind swaps it and returns the previous binding so the caller can evict the
// client from there.
//
// Frames:
//
// An inbound frame is one JSON object with a "key" and optional "data":
//
//	{"key":"join-game","data":{"roomId":"..."}}
//
// The keys leave-room, disconnect, game-event and join-game are routed to the
// binding. Every frame that decodes is acknowledged with
//
//	{"key":"<key>","data":<data>,"type":"ACK","id":"<client id>"}
//
// after its handler ran.
//
// Concurrency:
//
// Client is not safe for concurrent use. The server confines every Client
// method to its dispatcher goroutine. Manager is safe for concurrent use.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(log))
//
//	client, err := manager.Create("", conn)
//	if err != nil {
//		return err
//	}
//	lobby.AddClient(client, true)
//	client.HandleFrame(line)
package session
