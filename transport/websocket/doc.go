// Package websocket serves the room protocol over WebSocket.
//
// It is the browser-facing sibling of package tcp and speaks the same frames.
// Each text message carries exactly one JSON frame in either direction, so
// no newline framing is involved.
//
// Architecture:
//
// A Hub is an http.Handler. It upgrades each request, registers the
// connection and runs the HandlerFunc on the request goroutine. The handler
// reads frames there; writes are queued and sent by a dedicated write pump
// that also keeps the connection alive with pings.
//
// Usage:
//
//	hub := websocket.NewHub(func(ctx context.Context, conn *websocket.Conn) error {
//		return rooms.ServeConn(ctx, conn)
//	}, websocket.WithMaxConnections(10))
//	mux.Handle("/ws", hub)
//
// Connection Lifecycle:
//
// 1. Client upgrades the request
// 2. Connection registered with hub, or rejected with a server-greet error
// 3. Handler serves frames until the peer leaves or Close is called
// 4. Queued frames are flushed, a close message is sent and the hub forgets
// the connection
package websocket
