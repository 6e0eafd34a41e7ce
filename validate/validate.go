// Package validate checks server env files before deployment. It checks:
//   - The file exists and parses as dotenv
//   - Every variable is one the server understands
//   - Values convert to their types and are within range
//   - Enumerations such as LOG_FORMAT hold a known value
package validate

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wricardo/roomserver/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// EnvFile loads and validates a single env file. The process environment is
// not consulted.
func EnvFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	values, err := godotenv.Read(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var unknown []string
	for key := range values {
		if !slices.Contains(config.Keys, key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Unknown variable: %s", key))
	}

	cfg, err := config.FromLookup(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, configErrors(err)...)
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Variables: %d", len(values)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Environment: %s", cfg.Env))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Game port: %d", cfg.Port))
		if cfg.AdminPort == 0 {
			result.Errors = append(result.Errors, "✓ Admin port: disabled")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Admin port: %d", cfg.AdminPort))
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Max connections: %d", cfg.MaxConnections))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Room capacity: %d", cfg.RoomCapacity))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Auto join games: %t", cfg.AutoJoinGames))
	}

	return result
}

// configErrors splits a joined configuration error into one line per problem.
func configErrors(err error) []string {
	msg := err.Error()
	if errors.Is(err, config.ErrInvalidConfig) {
		msg = strings.TrimPrefix(msg, config.ErrInvalidConfig.Error()+": ")
	}

	var out []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Files validates each file and writes a concise report to w. It reports
// whether every file is valid.
func Files(w io.Writer, files []string) bool {
	allValid := true
	for _, file := range files {
		result := EnvFile(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All env files are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some env files have errors")
	}
	return allValid
}
