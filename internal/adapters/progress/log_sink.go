package progress

import (
	"context"
	"log/slog"

	"github.com/trebuchet-org/payrail/internal/usecase"
)

// LogSink forwards progress to the logger. It is used when stdout carries JSON
// and nothing may be drawn on the terminal.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a progress sink that logs at debug level
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With("component", "progress")}
}

func (s *LogSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Stage == usecase.StageDone {
		return
	}
	attrs := []any{"stage", event.Stage}
	if event.Total > 0 {
		attrs = append(attrs, "current", event.Current, "total", event.Total)
	}
	s.log.DebugContext(ctx, event.Message, attrs...)
}

func (s *LogSink) Info(message string) {
	s.log.Info(message)
}

func (s *LogSink) Error(message string) {
	s.log.Error(message)
}

var _ usecase.ProgressSink = (*LogSink)(nil)
