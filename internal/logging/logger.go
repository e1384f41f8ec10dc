package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"litindex/internal/corpus"
)

// Logger wraps slog.Logger and satisfies the pipeline's stage logger.
type Logger struct {
	*slog.Logger
}

// New builds a text or JSON logger writing to w (stderr when nil).
func New(w io.Writer, level, format string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Noop discards everything.
func Noop() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Log records one pipeline event. detail is omitted when empty.
func (l *Logger) Log(level, stage, message, detail string) {
	if l == nil || l.Logger == nil {
		return
	}
	attrs := []slog.Attr{slog.String("stage", stage)}
	if detail != "" {
		attrs = append(attrs, slog.String("detail", detail))
	}
	l.Logger.LogAttrs(context.Background(), ParseLevel(level), message, attrs...)
}

func (l *Logger) WithPartition(key corpus.PartitionKey) *Logger {
	return &Logger{Logger: l.Logger.With(
		slog.String("institution", key.Institution),
		slog.Int("year", key.Year),
		slog.String("field", key.Field),
	)}
}

func (l *Logger) WithRun(id string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("run_id", id))}
}
