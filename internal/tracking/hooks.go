package tracking

import (
	"context"
	"log/slog"
)

// Sink receives history events
type Sink interface {
	Record(ctx context.Context, event Event) (int64, error)
}

// SlogSink logs events instead of storing them; used when history is disabled at debug level
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink; a nil logger means the default logger
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Record logs event at debug level
func (s *SlogSink) Record(ctx context.Context, event Event) (int64, error) {
	s.logger.DebugContext(ctx, "history event",
		"path", event.Path,
		"operation", event.Operation,
		"outcome", event.Outcome,
		"error_kind", event.ErrorKind,
		"anomalies", len(event.Anomalies))
	return 0, nil
}

// NopSink discards events
type NopSink struct{}

// Record does nothing
func (NopSink) Record(context.Context, Event) (int64, error) { return 0, nil }
