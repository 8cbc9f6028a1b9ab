package orchestrator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DebugLogger provides file-backed structured logging for orchestrator
// operations. Writes are serialized and synced so the log survives crashes.
// A logger without a file discards everything.
type DebugLogger struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// NewDebugLogger creates a logger writing to the specified path at the given
// level. If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func NewDebugLogger(logPath string, level slog.Level) (*DebugLogger, error) {
	if logPath == "" {
		return NopLogger(), nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &DebugLogger{file: f}
	l.logger = slog.New(slog.NewTextHandler(l, &slog.HandlerOptions{Level: level}))
	l.logger.Info("debug log started", "path", logPath)
	return l, nil
}

// NewDebugLoggerForProject creates a debug logger in the project's
// .maestro/logs directory. Returns a no-op logger if the file cannot be opened.
func NewDebugLoggerForProject(projectRoot string, level slog.Level) *DebugLogger {
	logPath := filepath.Join(projectRoot, ".maestro", "logs", "maestro.log")
	logger, err := NewDebugLogger(logPath, level)
	if err != nil {
		return NopLogger()
	}
	return logger
}

// NopLogger returns a no-op logger for testing or when logging is disabled.
func NopLogger() *DebugLogger {
	return &DebugLogger{logger: slog.New(slog.DiscardHandler)}
}

// Write implements io.Writer for the slog handler.
func (l *DebugLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.file.Write(p)
	if err == nil {
		err = l.file.Sync()
	}
	return n, err
}

// Logger returns the structured logger. Safe to call on a nil DebugLogger.
func (l *DebugLogger) Logger() *slog.Logger {
	if l == nil || l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

// Close closes the log file.
// Safe to call on nil logger or logger without file.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// ParseLevel maps a config string to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
