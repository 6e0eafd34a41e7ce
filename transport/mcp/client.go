package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/roomserver/game/config"
	"github.com/wricardo/roomserver/game/service"
)

// Client is a thin MCP client that proxies to the admin REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the admin API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Room Server Inspector",
		config.APIVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Room Server - MCP Inspector

Read-only view of a running room server. Players connect over TCP or
WebSocket, wait in the LOBBY and are matched into game rooms.

AVAILABLE TOOLS:
- server_status: Connection, session and room counts plus lobby members
- list_rooms: Game rooms in creation order with their members
- get_room: One room by id (the lobby id works too)
- get_connection: One client session and the room it is in

All tools proxy the admin REST API; nothing here changes server state.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get connection, session and room counts of the running server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List game rooms in creation order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of rooms to return (optional)",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get one room and its members",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_connection",
		Description: "Get one client session and the room it belongs to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": map[string]interface{}{
					"type":        "string",
					"description": "Client ID to retrieve",
				},
			},
			Required: []string{"client_id"},
		},
	}, c.handleGetConnection)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers one JSON-RPC message per POST request.
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseData)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status service.ServerStatus
	if err := c.apiCall(ctx, "GET", "/api/status", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	path := "/api/rooms"
	if limit, ok := args["limit"].(float64); ok && limit >= 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", int(limit)))
	}

	var response struct {
		Count int                 `json:"count"`
		Total int                 `json:"total"`
		Rooms []*service.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Rooms (%d of %d):\n\n", response.Count, response.Total)
	for _, r := range response.Rooms {
		fmt.Fprintf(&result, "- %s %s (%d/%d players, created %s)\n",
			r.ID, r.Name, len(r.Clients), r.Capacity, r.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var room service.RoomInfo
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &room); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(&room)), nil
}

func (c *Client) handleGetConnection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	clientID, _ := args["client_id"].(string)
	if clientID == "" {
		return mcp.NewToolResultError("client_id is required"), nil
	}

	var conn service.ConnectionInfo
	if err := c.apiCall(ctx, "GET", "/api/connections/"+url.PathEscape(clientID), nil, &conn); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatConnection(&conn)), nil
}

func formatStatus(status *service.ServerStatus) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Room Server %s (%s)\n", status.APIVersion, status.Env)
	fmt.Fprintf(&result, "Up since: %s (%s)\n", status.StartedAt.Format("2006-01-02 15:04:05"), status.Uptime)
	fmt.Fprintf(&result, "Connections: %d\n", status.Connections)
	fmt.Fprintf(&result, "Sessions: %d\n", status.Sessions)
	fmt.Fprintf(&result, "Lobby clients: %d\n", status.LobbyClients)
	fmt.Fprintf(&result, "Rooms: %d (capacity %d)\n", status.Rooms, status.RoomCapacity)
	fmt.Fprintf(&result, "Auto join: %t\n", status.AutoJoin)
	if status.Lobby != nil {
		result.WriteString("\n")
		result.WriteString(formatRoom(status.Lobby))
	}
	return result.String()
}

func formatRoom(room *service.RoomInfo) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Room: %s\nName: %s\nCreated: %s\n",
		room.ID, room.Name, room.CreatedAt.Format("2006-01-02 15:04:05"))
	if room.IsLobby {
		result.WriteString("Lobby: yes\n")
	} else {
		fmt.Fprintf(&result, "Capacity: %d\n", room.Capacity)
	}

	fmt.Fprintf(&result, "Clients (%d):\n", len(room.Clients))
	for _, id := range room.Clients {
		fmt.Fprintf(&result, "- %s\n", id)
	}
	return result.String()
}

func formatConnection(conn *service.ConnectionInfo) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Client: %s\nRemote: %s\nWritable: %t\nConnected: %s\n",
		conn.ID, conn.RemoteAddr, conn.Writable, conn.ConnectedAt.Format("2006-01-02 15:04:05"))
	if conn.LastFrameAt != nil {
		fmt.Fprintf(&result, "Last frame: %s\n", conn.LastFrameAt.Format("2006-01-02 15:04:05"))
	}
	if conn.RoomID != "" {
		fmt.Fprintf(&result, "Room: %s %s\n", conn.RoomID, conn.RoomName)
	} else {
		result.WriteString("Room: none\n")
	}
	return result.String()
}
