package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger for server binaries.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewText returns a human-oriented text logger for CLI use.
func NewText() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
