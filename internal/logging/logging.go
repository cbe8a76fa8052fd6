// Package logging configures the process-wide slog logger: a debug-level
// file log plus a quieter console log, both fed from the same records.
package logging

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"xenith/internal/config"
)

// Setup installs the default slog logger and returns it together with a
// closer for the log file. An empty cfg.File logs to the console only.
func Setup(cfg config.Log, console io.Writer) (*slog.Logger, io.Closer, error) {
	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: ParseLevel(cfg.ConsoleLevel)}),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closer = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}))
	}

	logger := slog.New(NewTee(handlers...))
	slog.SetDefault(logger)
	return logger, closer, nil
}

// StdLogger adapts logger to the *log.Logger shape expected by GORM and net/http.
func StdLogger(logger *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), level)
}

// ParseLevel converts a level name to slog.Level. Unknown names map to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Tee forwards each record to every handler that accepts its level.
type Tee struct {
	handlers []slog.Handler
}

func NewTee(handlers ...slog.Handler) *Tee {
	return &Tee{handlers: handlers}
}

func (t *Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *Tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &Tee{handlers: next}
}

func (t *Tee) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &Tee{handlers: next}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
