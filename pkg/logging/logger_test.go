package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEntryFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("server", &buf)

	logger.Infof("endpoint %s ready", "ws://127.0.0.1:37367/default")

	line := buf.String()
	if !strings.Contains(line, "[server]") {
		t.Errorf("Entry missing component tag: %q", line)
	}
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("Entry missing level tag: %q", line)
	}
	if !strings.Contains(line, "endpoint ws://127.0.0.1:37367/default ready") {
		t.Errorf("Entry missing formatted message: %q", line)
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New("engine", &buf)

	logger.Debugf("d")
	logger.Infof("i")
	logger.Warnf("w")
	logger.Errorf("e")

	out := buf.String()
	for _, level := range []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"} {
		if !strings.Contains(out, level) {
			t.Errorf("Expected %s entry in output:\n%s", level, out)
		}
	}
}

func TestSessionIDStable(t *testing.T) {
	a := New("a", &bytes.Buffer{})
	b := New("b", &bytes.Buffer{})

	if a.SessionID() == "" {
		t.Fatal("Session ID should not be empty")
	}
	if a.SessionID() != b.SessionID() {
		t.Error("All loggers in one process should share a session ID")
	}
	if GetSessionID() != a.SessionID() {
		t.Error("GetSessionID should match logger session IDs")
	}
}

func TestFileTee(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLogDir, dir)

	logger, err := NewLogger("server")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.LogPath() == "" {
		t.Fatal("Expected a log file path with BROWSERD_LOG_DIR set")
	}

	logger.Infof("tee check")

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "tee check") {
		t.Errorf("Log file missing entry: %q", string(data))
	}

	if filepath.Dir(logger.LogPath()) != dir {
		t.Errorf("Log file %q not under %q", logger.LogPath(), dir)
	}
}

func TestFileTeeFallback(t *testing.T) {
	// Point the log dir at a regular file so MkdirAll fails.
	bad := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(bad, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}
	t.Setenv(EnvLogDir, filepath.Join(bad, "logs"))

	logger, err := NewLogger("server")
	if err == nil {
		t.Error("Expected error when log directory cannot be created")
	}
	if logger == nil {
		t.Fatal("Fallback logger should still be usable")
	}
	if logger.LogPath() != "" {
		t.Errorf("Fallback logger should not report a file path, got %q", logger.LogPath())
	}
	logger.Infof("still works")
}

func TestCloseIdempotent(t *testing.T) {
	t.Setenv(EnvLogDir, t.TempDir())

	logger, err := NewLogger("server")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}
