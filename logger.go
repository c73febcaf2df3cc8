package graphgrove

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with graphgrove-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithUID adds a uid field to the logger.
func (l *Logger) WithUID(uid UID) *Logger {
	return &Logger{Logger: l.Logger.With("uid", uid)}
}

// WithLevel adds a tree-level field to the logger.
func (l *Logger) WithLevel(level int) *Logger {
	return &Logger{Logger: l.Logger.With("level", level)}
}

// LogInsert logs an insertion.
func (l *Logger) LogInsert(uid UID, level int, inserted bool, err error) {
	if err != nil {
		l.Error("insert failed", "uid", uid, "error", err)
		return
	}
	if !inserted {
		l.Debug("insert rejected duplicate", "uid", uid)
		return
	}
	l.Debug("insert completed", "uid", uid, "level", level)
}

// LogRootPromotion logs a root promotion during insertion.
func (l *Logger) LogRootPromotion(oldLevel, newLevel int) {
	l.Debug("root promoted", "old_level", oldLevel, "new_level", newLevel)
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(op string, k, resultsFound int, err error) {
	if err != nil {
		l.Error("query failed", "op", op, "k", k, "error", err)
		return
	}
	l.Debug("query completed", "op", op, "k", k, "results", resultsFound)
}

// LogSerialize logs a serialize/deserialize operation.
func (l *Logger) LogSerialize(op string, bytes int, err error) {
	if err != nil {
		l.Error("serialize failed", "op", op, "error", err)
		return
	}
	l.Info("serialize completed", "op", op, "bytes", bytes)
}

// LogMaintenance logs a maintenance sweep (calc_maxdist, check_covering).
func (l *Logger) LogMaintenance(op string, nodesVisited int, err error) {
	if err != nil {
		l.Error("maintenance failed", "op", op, "error", err)
		return
	}
	l.Debug("maintenance completed", "op", op, "nodes", nodesVisited)
}
