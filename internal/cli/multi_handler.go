package cli

import (
	"context"
	"errors"
	"log/slog"
)

// MultiLevelHandler fans records out to several handlers, each keeping its own level.
// setupLogging uses it to keep stderr at the configured level while the log file gets everything.
type MultiLevelHandler struct {
	handlers []slog.Handler
}

// NewMultiLevelHandler creates a handler distributing records to handlers
func NewMultiLevelHandler(handlers ...slog.Handler) *MultiLevelHandler {
	return &MultiLevelHandler{handlers: handlers}
}

// Enabled is true when any wrapped handler accepts level
func (h *MultiLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes record to every handler that accepts its level. A failing handler
// does not stop the others.
func (h *MultiLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a handler whose children all carry attrs
func (h *MultiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

// WithGroup returns a handler whose children all open group name
func (h *MultiLevelHandler) WithGroup(name string) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *MultiLevelHandler) each(wrap func(slog.Handler) slog.Handler) *MultiLevelHandler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = wrap(handler)
	}
	return NewMultiLevelHandler(handlers...)
}
