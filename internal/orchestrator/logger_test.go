package orchestrator

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDebugLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "maestro.log")
	l, err := NewDebugLogger(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewDebugLogger: %v", err)
	}
	l.Logger().Info("step completed", "step", "build")
	l.Logger().Debug("hidden")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "step=build") {
		t.Errorf("expected structured attribute in log, got:\n%s", content)
	}
	if strings.Contains(content, "hidden") {
		t.Error("debug line written at info level")
	}
}

func TestDebugLoggerNoop(t *testing.T) {
	l, err := NewDebugLogger("", slog.LevelDebug)
	if err != nil {
		t.Fatalf("NewDebugLogger: %v", err)
	}
	l.Logger().Info("discarded")
	if err := l.Close(); err != nil {
		t.Errorf("Close on no-op logger: %v", err)
	}

	var nilLogger *DebugLogger
	nilLogger.Logger().Info("safe")
	if err := nilLogger.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}
}

func TestDebugLoggerForProject(t *testing.T) {
	root := t.TempDir()
	l := NewDebugLoggerForProject(root, slog.LevelInfo)
	defer l.Close()

	if _, err := os.Stat(filepath.Join(root, ".maestro", "logs", "maestro.log")); err != nil {
		t.Errorf("expected project log file: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
