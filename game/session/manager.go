package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Manager tracks the clients connected to a server, keyed by id.
type Manager struct {
	sessions map[string]*Client
	opts     []Option
	mu       sync.RWMutex
}

// NewManager creates a new session manager. The options are applied to every
// client it creates.
func NewManager(opts ...Option) *Manager {
	return &Manager{
		sessions: make(map[string]*Client),
		opts:     opts,
	}
}

// Create wraps conn in a new client and registers it. An empty id is replaced
// by a generated one.
func (m *Manager) Create(id string, conn Conn) (*Client, error) {
	if id == "" {
		id = NewID()
	}

	c, err := NewClient(id, conn, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := m.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Add registers an existing client.
func (m *Manager) Add(c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[c.id]; exists {
		return ErrSessionAlreadyExists
	}
	m.sessions[c.id] = c
	return nil
}

// Get retrieves a client by id (case-insensitive)
func (m *Manager) Get(id string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// List returns all registered clients, oldest connection first.
func (m *Manager) List() []*Client {
	m.mu.RLock()
	result := make([]*Client, 0, len(m.sessions))
	for _, c := range m.sessions {
		result = append(result, c)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].connectedAt.Equal(result[j].connectedAt) {
			return result[i].id < result[j].id
		}
		return result[i].connectedAt.Before(result[j].connectedAt)
	})
	return result
}

// Delete removes a client from the manager. The connection is left alone.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// Count returns the number of registered clients
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every registered connection and empties the manager. It
// returns the number of clients removed.
func (m *Manager) CloseAll() int {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.sessions))
	for id, c := range m.sessions {
		clients = append(clients, c)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	return len(clients)
}
