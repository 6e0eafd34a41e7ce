// Package config provides configuration management for the room server.
//
// The config package handles:
//   - Loading settings from an env file and the process environment
//   - Converting and validating values
//   - Default settings for tests and file-less runs
//   - Building the process logger
//
// Configuration Sources:
//
// Settings are plain environment variables. Load reads an env file with
// godotenv and lays the process environment over it, so a variable exported
// in the shell always wins:
//
//	APP_ENV=production
//	PORT=8999
//	ADMIN_PORT=8998
//	MAX_CONNECTIONS=10
//	AUTO_JOIN_GAMES=false
//	ROOM_CAPACITY=2
//	LOG_LEVEL=info
//	LOG_FORMAT=json
//
// A missing env file is an error (ErrEnvFileNotFound). Values that do not
// convert or fall out of range are reported as ErrInvalidConfig.
//
// Usage:
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	logger := config.NewLogger(cfg, os.Stderr)
//	logger.Info().Int("port", cfg.Port).Msg("starting")
//
// Logging:
//
// NewLogger returns a zerolog logger writing console output or JSON lines.
// When APP_ENV is "test" it returns a disabled logger unless TEST_LOGGING is
// true.
package config
