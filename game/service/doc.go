// Package service runs the room server on top of the room and session
// packages.
//
// The service package implements:
//   - A single-goroutine Dispatcher that serialises every state change
//   - Admission of transport connections into the lobby
//   - Per-connection read loops with optional inbound rate limiting
//   - Disconnect handling for both disconnect frames and dropped sockets
//   - A read-only RoomService used by the admin API and MCP tools
//
// Core Types:
//
// Server is the lobby's observer and owns the session manager. Transports hand
// each accepted connection to ServeConn, which blocks for the lifetime of the
// connection. RoomService is the query surface the admin transports depend
// on; Server implements it by reading state on the dispatcher.
//
// Architecture:
//
// Rooms, the lobby and clients hold no locks. Every reader goroutine posts its
// frames to the dispatcher, so frames from one connection are handled in
// order and handlers never run concurrently. Writes go into each
// connection's bounded send queue and never block the dispatcher.
//
// Usage:
//
//	srv := service.NewServer(cfg, logger)
//	go srv.Run(ctx)
//
//	// for every accepted connection
//	go srv.ServeConn(ctx, conn)
//
//	status, err := srv.Status(ctx)
package service
