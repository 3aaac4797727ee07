package app

import (
	"io"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/lexipack/internal/config"
)

// NewLogger returns a logger for cfg and sets it as the default logger.
// debug forces the debug level.
func NewLogger(cfg config.LogConfig, debug bool, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	options := &slog.HandlerOptions{
		Level:     level,
		AddSource: !strings.EqualFold(cfg.Format, "json"),
	}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
