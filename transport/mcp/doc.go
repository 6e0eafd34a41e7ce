// Package mcp provides a Model Context Protocol inspector for the room server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Read-only tools backed by the admin REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - server_status: Connection, session and room counts plus the lobby
//   - list_rooms: Game rooms in creation order
//   - get_room: One room and its members
//   - get_connection: One client session and its room
//
// Transport Modes:
//
// The Client proxies every tool call to the admin API over HTTP, so the
// same tools work in both modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer()), used by the mcp command
//   - HTTP: mount the Client itself, one JSON-RPC message per POST
//
// Usage:
//
//	client := mcp.NewClient("http://127.0.0.1:8998")
//	mux.Handle("/mcp", client)
package mcp
