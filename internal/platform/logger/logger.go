package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Components receive it by
// injection; there is no global logger state.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
