package telemetry

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger creates a colored slog logger writing to w.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// InitSlog replaces the default logger with a tint logger on stderr.
func InitSlog(verbose bool) {
	slog.SetDefault(NewLogger(os.Stderr, verbose))
}
