package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs a JSON slog handler as the default logger. The level is
// controlled by the LOG_LEVEL env var (debug/info/warn/error).
func Init() {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
