package vocabmatch

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vocabmatch-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to w.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithImage adds an image index field to the logger.
func (l *Logger) WithImage(i int) *Logger {
	return &Logger{
		Logger: l.Logger.With("image", i),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogState logs a database lifecycle transition.
func (l *Logger) LogState(from, to State) {
	l.Debug("database state changed",
		"from", from.String(),
		"to", to.String(),
	)
}

// LogInsert logs the insertion of one image.
func (l *Logger) LogInsert(id, keys int, err error) {
	if err != nil {
		l.Error("adding vector failed",
			"id", id,
			"keys", keys,
			"error", err,
		)
	} else {
		l.Debug("adding vector",
			"id", id,
			"keys", keys,
		)
	}
}

// LogQuery logs one query of the candidate selection.
func (l *Logger) LogQuery(i, keys, pairs int, err error) {
	if err != nil {
		l.Error("query failed",
			"image", i,
			"keys", keys,
			"error", err,
		)
	} else {
		l.Debug("query completed",
			"image", i,
			"keys", keys,
			"pairs", pairs,
		)
	}
}

// LogSave logs persisting a tree or database.
func (l *Logger) LogSave(path string, err error) {
	if err != nil {
		l.Error("save failed",
			"path", path,
			"error", err,
		)
	} else {
		l.Info("saved",
			"path", path,
		)
	}
}
