package config

import (
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel names the environment variable selecting the log level.
const EnvLogLevel = "TRACKER_MCP_LOG_LEVEL"

// ParseLogLevel maps debug, info, warn and error to slog levels.
// Anything else, including the empty string, is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogLevelFromEnv reads TRACKER_MCP_LOG_LEVEL.
func LogLevelFromEnv() slog.Level {
	return ParseLogLevel(os.Getenv(EnvLogLevel))
}
