// Package obslog is the structured-logging setup shared by ox-service and
// ox-ctl: a log/slog.Logger backed by lmittmann/tint for colorized TTY
// output, falling back to tint's plain (non-color) mode when stderr isn't
// a terminal. The teacher's own tooling (cmd/debug-capacity) logs through
// the stdlib log package's Fatalf/Printf; this runtime is two long-lived
// daemons instead of a one-shot CLI, so it carries the slog-based
// structured logger the rest of the example pack reaches for instead
// (see e.g. the IPC config types that thread a *slog.Logger through).
package obslog

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level mirrors the flag-parsed --log-level strings cmd/ox-service and
// cmd/ox-ctl accept: debug, info, warn, error.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger writing to w (normally os.Stderr), tagged
// with component (e.g. "ox-service", "ox-ctl"). Color is enabled
// automatically when w is a terminal.
func New(w io.Writer, component string, level Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level.slogLevel(),
		NoColor:    noColor,
		TimeFormat: "15:04:05.000",
	})
	return slog.New(handler).With("component", component)
}

// Default is a convenience wrapper for New(os.Stderr, component, LevelInfo).
func Default(component string) *slog.Logger {
	return New(os.Stderr, component, LevelInfo)
}
