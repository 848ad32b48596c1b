package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own slog.Logger so parallel App instances never
// share handler state. Unrecognized levels fall back to info rather than
// failing startup; the CLI has already validated its input by the time this
// runs, so the fallback only matters for programmatic callers.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
