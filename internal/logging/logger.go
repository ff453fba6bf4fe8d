package logging

import (
	"log/slog"
	"os"
	"strings"
)

const serviceName = "locksmith-search"

// NewLogger returns a JSON slog.Logger at the given level with the service
// name attached, so lines from the API and the ingest consumer stay
// distinguishable in an aggregated stream.
func NewLogger(level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With(slog.String("service", serviceName))
}

// ParseLevel maps a config string to a slog level, defaulting to info on
// anything unrecognized.
func ParseLevel(s string) slog.Level {
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
