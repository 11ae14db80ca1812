package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/vango-dev/routeagent/internal/config"
)

// newLogger builds the slog logger selected by the log section. The config
// has been validated, so unknown values cannot reach here.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "routectl")
}
