package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.APIVersion != "1.0.0" {
		t.Errorf("Expected API version 1.0.0, got %s", cfg.APIVersion)
	}
	if cfg.Port != 8999 {
		t.Errorf("Expected port 8999, got %d", cfg.Port)
	}
	if cfg.MaxConnections != 10 {
		t.Errorf("Expected 10 max connections, got %d", cfg.MaxConnections)
	}
	if cfg.RoomCapacity != 2 {
		t.Errorf("Expected room capacity 2, got %d", cfg.RoomCapacity)
	}
	if cfg.AutoJoinGames {
		t.Error("Expected auto join to be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestFromLookup(t *testing.T) {
	t.Run("empty lookup yields defaults", func(t *testing.T) {
		cfg, err := FromLookup(lookupFrom(nil))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if *cfg != *Defaults() {
			t.Errorf("Expected defaults, got %+v", cfg)
		}
	})

	t.Run("values are converted", func(t *testing.T) {
		cfg, err := FromLookup(lookupFrom(map[string]string{
			EnvAppEnv:         "production",
			EnvPort:           "9100",
			EnvAdminPort:      "0",
			EnvMaxConnections: " 50 ",
			EnvAutoJoinGames:  "TRUE",
			EnvRoomCapacity:   "4",
			EnvFrameRate:      "12.5",
			EnvFrameBurst:     "30",
			EnvLogLevel:       "DEBUG",
			EnvLogFormat:      "json",
		}))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Env != "production" || cfg.Port != 9100 || cfg.AdminPort != 0 || cfg.MaxConnections != 50 {
			t.Errorf("Unexpected listener settings: %+v", cfg)
		}
		if !cfg.AutoJoinGames || cfg.RoomCapacity != 4 {
			t.Errorf("Unexpected room settings: %+v", cfg)
		}
		if cfg.FrameRate != 12.5 || cfg.FrameBurst != 30 {
			t.Errorf("Unexpected frame limits: %+v", cfg)
		}
		if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
			t.Errorf("Unexpected log settings: %+v", cfg)
		}
	})

	t.Run("blank values keep defaults", func(t *testing.T) {
		cfg, err := FromLookup(lookupFrom(map[string]string{EnvPort: "  "}))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Port != 8999 {
			t.Errorf("Expected default port, got %d", cfg.Port)
		}
	})

	invalid := []struct {
		name   string
		values map[string]string
	}{
		{"non-numeric port", map[string]string{EnvPort: "eighty"}},
		{"port out of range", map[string]string{EnvPort: "70000"}},
		{"admin port clashes", map[string]string{EnvPort: "9000", EnvAdminPort: "9000"}},
		{"bad boolean", map[string]string{EnvAutoJoinGames: "maybe"}},
		{"zero capacity", map[string]string{EnvRoomCapacity: "0"}},
		{"zero connections", map[string]string{EnvMaxConnections: "0"}},
		{"negative frame rate", map[string]string{EnvFrameRate: "-1"}},
		{"rate without burst", map[string]string{EnvFrameRate: "5", EnvFrameBurst: "0"}},
		{"unknown log format", map[string]string{EnvLogFormat: "xml"}},
		{"ngrok without token", map[string]string{EnvNgrokEnabled: "true"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.values))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(os.TempDir(), "does-not-exist", ".env"))
		if !errors.Is(err, ErrEnvFileNotFound) {
			t.Errorf("Expected ErrEnvFileNotFound, got %v", err)
		}
	})

	t.Run("reads the file", func(t *testing.T) {
		path := writeEnvFile(t, "ROOM_CAPACITY=3\n# comment\nAUTO_JOIN_GAMES=true\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if cfg.RoomCapacity != 3 {
			t.Errorf("Expected room capacity 3, got %d", cfg.RoomCapacity)
		}
		if !cfg.AutoJoinGames {
			t.Error("Expected auto join from file")
		}
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		path := writeEnvFile(t, "ROOM_CAPACITY=3\n")
		t.Setenv(EnvRoomCapacity, "5")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if cfg.RoomCapacity != 5 {
			t.Errorf("Expected room capacity 5, got %d", cfg.RoomCapacity)
		}
	})

	t.Run("invalid file values", func(t *testing.T) {
		path := writeEnvFile(t, "ROOM_CAPACITY=lots\n")

		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("silent in test env", func(t *testing.T) {
		cfg := Defaults()
		cfg.Env = "test"
		var buf bytes.Buffer

		log := NewLogger(cfg, &buf)
		log.Error().Msg("hidden")

		if buf.Len() != 0 {
			t.Errorf("Expected no output, got %q", buf.String())
		}
	})

	t.Run("test logging re-enables output", func(t *testing.T) {
		cfg := Defaults()
		cfg.Env = "test"
		cfg.TestLogging = true
		cfg.LogFormat = "json"
		var buf bytes.Buffer

		NewLogger(cfg, &buf).Info().Msg("visible")

		if !strings.Contains(buf.String(), `"message":"visible"`) {
			t.Errorf("Expected JSON output, got %q", buf.String())
		}
	})

	t.Run("level filters", func(t *testing.T) {
		cfg := Defaults()
		cfg.LogLevel = "warn"
		cfg.LogFormat = "json"
		var buf bytes.Buffer

		log := Component(NewLogger(cfg, &buf), "lobby")
		log.Info().Msg("dropped")
		log.Warn().Msg("kept")

		out := buf.String()
		if strings.Contains(out, "dropped") {
			t.Errorf("Expected info to be filtered, got %q", out)
		}
		if !strings.Contains(out, `"component":"lobby"`) {
			t.Errorf("Expected component field, got %q", out)
		}
	})
}
