package session_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/roomserver/game/session"
	"github.com/wricardo/roomserver/game/session/sessiontest"
)

func TestManager_Create(t *testing.T) {
	manager := session.NewManager()

	t.Run("create with custom ID", func(t *testing.T) {
		id := "0b8f7f5e-8a8e-4f5c-a1d2-6c0e3f1b2a44"
		c, err := manager.Create(id, sessiontest.NewConn())
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		if c.ID() != id {
			t.Errorf("Expected client ID '%s', got '%s'", id, c.ID())
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		c, err := manager.Create("", sessiontest.NewConn())
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		if !session.IsValidID(c.ID()) {
			t.Errorf("Expected a v4 UUID, got '%s'", c.ID())
		}
	})

	t.Run("duplicate ID fails", func(t *testing.T) {
		id := "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
		if _, err := manager.Create(id, sessiontest.NewConn()); err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		_, err := manager.Create(strings.ToUpper(id), sessiontest.NewConn())
		if err != session.ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID fails", func(t *testing.T) {
		_, err := manager.Create("abcd", sessiontest.NewConn())
		if err == nil {
			t.Fatal("Expected an error for an invalid id")
		}
	})

	t.Run("missing connection fails", func(t *testing.T) {
		if _, err := manager.Create("", nil); err == nil {
			t.Fatal("Expected an error for a nil connection")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := session.NewManager()
	c, err := manager.Create("", sessiontest.NewConn())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	t.Run("get existing client", func(t *testing.T) {
		got, err := manager.Get(c.ID())
		if err != nil {
			t.Fatalf("Failed to get client: %v", err)
		}
		if got != c {
			t.Error("Expected the same client instance")
		}
	})

	t.Run("get is case-insensitive", func(t *testing.T) {
		if _, err := manager.Get(strings.ToUpper(c.ID())); err != nil {
			t.Errorf("Expected case-insensitive lookup, got %v", err)
		}
	})

	t.Run("get unknown client", func(t *testing.T) {
		_, err := manager.Get(session.NewID())
		if err != session.ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_ListDeleteCount(t *testing.T) {
	manager := session.NewManager()
	var ids []string
	for i := 0; i < 3; i++ {
		c, err := manager.Create("", sessiontest.NewConn())
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		ids = append(ids, c.ID())
	}

	if manager.Count() != 3 {
		t.Errorf("Expected 3 clients, got %d", manager.Count())
	}

	list := manager.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 listed clients, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].ConnectedAt().Before(list[i-1].ConnectedAt()) {
			t.Error("Expected clients ordered by connection time")
		}
	}

	if err := manager.Delete(ids[0]); err != nil {
		t.Fatalf("Failed to delete client: %v", err)
	}
	if err := manager.Delete(ids[0]); err != session.ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if manager.Count() != 2 {
		t.Errorf("Expected 2 clients, got %d", manager.Count())
	}
}

func TestManager_CloseAll(t *testing.T) {
	manager := session.NewManager()
	conns := []*sessiontest.Conn{sessiontest.NewConn(), sessiontest.NewConn()}
	for _, conn := range conns {
		if _, err := manager.Create("", conn); err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
	}

	if n := manager.CloseAll(); n != 2 {
		t.Errorf("Expected 2 closed clients, got %d", n)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected empty manager, got %d", manager.Count())
	}
	for i, conn := range conns {
		if !conn.Closed() {
			t.Errorf("Expected connection %d to be closed", i)
		}
	}
}

func TestManager_Concurrency(t *testing.T) {
	manager := session.NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := manager.Create("", sessiontest.NewConn())
			if err != nil {
				t.Errorf("Failed to create client: %v", err)
				return
			}
			if _, err := manager.Get(c.ID()); err != nil {
				t.Errorf("Failed to get client: %v", err)
			}
			manager.List()
		}()
	}
	wg.Wait()

	if manager.Count() != 50 {
		t.Errorf("Expected 50 clients, got %d", manager.Count())
	}
}
