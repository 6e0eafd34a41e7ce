package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

var (
	ErrEnvFileNotFound = errors.New("env file not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// APIVersion is the protocol version reported to clients and admin tools.
const APIVersion = "1.0.0"

// Environment variable names.
const (
	EnvAppEnv         = "APP_ENV"
	EnvHost           = "HOST"
	EnvPort           = "PORT"
	EnvAdminPort      = "ADMIN_PORT"
	EnvMaxConnections = "MAX_CONNECTIONS"
	EnvAutoJoinGames  = "AUTO_JOIN_GAMES"
	EnvRoomCapacity   = "ROOM_CAPACITY"
	EnvFrameRate      = "FRAME_RATE"
	EnvFrameBurst     = "FRAME_BURST"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvTestLogging    = "TEST_LOGGING"
	EnvNgrokEnabled   = "NGROK_ENABLED"
	EnvNgrokAuthToken = "NGROK_AUTHTOKEN"
)

// Keys lists every variable Load understands.
var Keys = []string{
	EnvAppEnv, EnvHost, EnvPort, EnvAdminPort, EnvMaxConnections,
	EnvAutoJoinGames, EnvRoomCapacity, EnvFrameRate, EnvFrameBurst,
	EnvLogLevel, EnvLogFormat, EnvTestLogging, EnvNgrokEnabled, EnvNgrokAuthToken,
}

// Config holds the settings of one server process.
type Config struct {
	APIVersion string `json:"api_version"`
	Env        string `json:"env"`

	Host           string `json:"host"`
	Port           int    `json:"port"`
	AdminPort      int    `json:"admin_port"` // 0 disables the admin listener
	MaxConnections int    `json:"max_connections"`

	AutoJoinGames bool    `json:"auto_join_games"`
	RoomCapacity  int     `json:"room_capacity"`
	FrameRate     float64 `json:"frame_rate"` // frames per second, 0 disables limiting
	FrameBurst    int     `json:"frame_burst"`

	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	TestLogging bool   `json:"test_logging"`

	NgrokEnabled   bool   `json:"ngrok_enabled"`
	NgrokAuthToken string `json:"-"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		APIVersion:     APIVersion,
		Env:            "development",
		Port:           8999,
		AdminPort:      8998,
		MaxConnections: 10,
		RoomCapacity:   2,
		FrameBurst:     20,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load reads envFile, overlays the process environment and validates the
// result. An empty envFile skips the file. A missing file is an error.
func Load(envFile string) (*Config, error) {
	values := map[string]string{}
	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrEnvFileNotFound, envFile)
			}
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		values = fileValues
	}

	cfg, err := FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromLookup builds a Config from a variable lookup, starting from Defaults.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	p := parser{lookup: lookup}

	cfg.Env = p.strVal(EnvAppEnv, cfg.Env)
	cfg.Host = p.strVal(EnvHost, cfg.Host)
	cfg.Port = p.intVal(EnvPort, cfg.Port)
	cfg.AdminPort = p.intVal(EnvAdminPort, cfg.AdminPort)
	cfg.MaxConnections = p.intVal(EnvMaxConnections, cfg.MaxConnections)
	cfg.AutoJoinGames = p.boolVal(EnvAutoJoinGames, cfg.AutoJoinGames)
	cfg.RoomCapacity = p.intVal(EnvRoomCapacity, cfg.RoomCapacity)
	cfg.FrameRate = p.floatVal(EnvFrameRate, cfg.FrameRate)
	cfg.FrameBurst = p.intVal(EnvFrameBurst, cfg.FrameBurst)
	cfg.LogLevel = strings.ToLower(p.strVal(EnvLogLevel, cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(p.strVal(EnvLogFormat, cfg.LogFormat))
	cfg.TestLogging = p.boolVal(EnvTestLogging, cfg.TestLogging)
	cfg.NgrokEnabled = p.boolVal(EnvNgrokEnabled, cfg.NgrokEnabled)
	cfg.NgrokAuthToken = p.strVal(EnvNgrokAuthToken, cfg.NgrokAuthToken)

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(p.errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s out of range: %d", EnvPort, c.Port))
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("%s out of range: %d", EnvAdminPort, c.AdminPort))
	}
	if c.AdminPort != 0 && c.AdminPort == c.Port {
		errs = append(errs, fmt.Errorf("%s must differ from %s", EnvAdminPort, EnvPort))
	}
	if c.MaxConnections < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1: %d", EnvMaxConnections, c.MaxConnections))
	}
	if c.RoomCapacity < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1: %d", EnvRoomCapacity, c.RoomCapacity))
	}
	if c.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative: %v", EnvFrameRate, c.FrameRate))
	}
	if c.FrameRate > 0 && c.FrameBurst < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1 when %s is set", EnvFrameBurst, EnvFrameRate))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%s must be console or json: %q", EnvLogFormat, c.LogFormat))
	}
	if c.NgrokEnabled && c.NgrokAuthToken == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvNgrokAuthToken, EnvNgrokEnabled))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// IsTest reports whether the process runs in the test environment.
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) strVal(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) intVal(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) floatVal(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) boolVal(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
