// Package api provides the admin HTTP API of the room server.
//
// The api package implements:
//   - Read-only inspection of the running server
//   - JSON Schemas of the outbound protocol
//   - Mounting of the WebSocket gateway and other admin surfaces
//
// Endpoints:
//
// Server:
//   - GET /api/health - Liveness check
//   - GET /api/status - Connection, session and room counts plus the lobby
//
// Rooms:
//   - GET /api/rooms - List game rooms in creation order (?limit=n)
//   - GET /api/rooms/{id} - Get one room, the lobby included
//
// Connections:
//   - GET /api/connections/{id} - Get one session and the room it is in
//
// Protocol:
//   - GET /api/protocol/schema - JSON Schema per envelope key
//
// WebSocket:
//   - GET /ws - Upgrade to the frame protocol, when a gateway is supplied
//
// Usage:
//
//	hub := websocket.NewHub(handler)
//	admin := api.NewServer(rooms, hub)
//	http.ListenAndServe(":8998", admin)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status code. Unknown rooms and
// connections are 404:
//
//	{
//	  "error": "room not found"
//	}
package api
