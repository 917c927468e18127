// Package runlog sets up logging for one invocation: a console handler on
// stderr plus a timestamped log file per run capturing every decision at
// debug level.
package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Setup creates the per-run log file under logDir and returns a logger
// fanning out to console and file, a close function, and the log file
// path. Console verbosity follows debug; the file always gets debug.
func Setup(logDir string, debug bool) (*slog.Logger, func() error, string, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("creating log directory: %w", err)
	}

	name := fmt.Sprintf("gemkeys_%s.log", time.Now().UTC().Format("2006-01-02T15-04-05"))
	path := filepath.Join(logDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("creating run log file: %w", err)
	}

	consoleLevel := slog.LevelInfo
	if debug {
		consoleLevel = slog.LevelDebug
	}
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel})
	file := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(fanout{console, file})
	return logger, f.Close, path, nil
}

// fanout delegates every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
