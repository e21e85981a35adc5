// Package logging provides component-tagged logging for the browserd process.
//
// The operator-visible stream is stderr; stdout is reserved for the
// machine-greppable endpoint announce line. If BROWSERD_LOG_DIR is set,
// entries are additionally appended to a session-specific file in that
// directory so multiple components of one process share a log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EnvLogDir names the optional directory for per-session log files.
const EnvLogDir = "BROWSERD_LOG_DIR"

var (
	// Global session ID for the current process
	sessionID     string
	sessionIDOnce sync.Once
)

// getSessionID returns or creates the session ID for this process
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// Logger writes structured, component-tagged log entries.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	logPath   string
	mu        sync.Mutex
	closeOnce sync.Once
}

// New creates a logger for a component writing to the given stream.
// Used directly by tests; regular code goes through NewLogger.
func New(component string, out io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    log.New(out, "", 0), // timestamps are formatted by the entry
	}
}

// NewLogger creates a logger for a component. Entries go to stderr and,
// when BROWSERD_LOG_DIR is set, to <dir>/<session-id>-browserd.log as well.
// If the log file cannot be opened the logger falls back to stderr only and
// the error is returned for the caller to report.
func NewLogger(component string) (*Logger, error) {
	dir := os.Getenv(EnvLogDir)
	if dir == "" {
		return New(component, os.Stderr), nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return New(component, os.Stderr), fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(dir, fmt.Sprintf("%s-browserd.log", getSessionID()))

	// Append mode: multiple components of one process share the file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return New(component, os.Stderr), fmt.Errorf("failed to open log file: %w", err)
	}

	l := New(component, io.MultiWriter(os.Stderr, file))
	l.file = file
	l.logPath = logPath
	return l, nil
}

// formatEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) output(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Println(l.formatEntry(level, fmt.Sprintf(format, v...)))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.output("DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.output("INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.output("WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.output("ERROR", format, v...)
}

// SessionID returns the process-wide session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path of the log file, or empty when logging to stderr only
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file if one is open. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetSessionID returns the current process-wide session ID
func GetSessionID() string {
	return getSessionID()
}
