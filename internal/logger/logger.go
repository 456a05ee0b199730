// Package logger provides the leveled logger shared by every leetsession component.
//
// Lines are written as "<UTC timestamp> <LEVEL> <component>: <message>". The
// component prefix comes from Named; package-level functions log without one.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is the most verbose log level.
	LevelDebug Level = iota
	// LevelInfo is the default log level for general information.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages only.
	LevelError
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// sink is the shared destination of every Logger.
type sink struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	file   *os.File
	now    func() time.Time
}

var std = &sink{
	level:  LevelInfo,
	output: os.Stderr,
	now:    time.Now,
}

// Logger writes to the shared sink with an optional component prefix.
// The zero value logs without a prefix.
type Logger struct {
	component string
}

// Named returns a Logger whose lines are prefixed with component.
func Named(component string) *Logger {
	return &Logger{component: component}
}

// SetLevel sets the minimum level for all loggers.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.level
}

// SetOutput sets the primary writer. Tests use it to capture output.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.output = w
}

// SetLogFile appends every emitted line to the file at path as well as the
// primary output. A previously opened file is closed first.
func SetLogFile(path string) error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	std.file = f
	return nil
}

// Close closes the log file if one is open.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
	}
}

func (s *sink) write(level Level, component, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	timestamp := s.now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := fmt.Sprintf(format, args...)
	if component != "" {
		msg = component + ": " + msg
	}
	line := fmt.Sprintf("%s %s %s\n", timestamp, level.String(), msg)

	io.WriteString(s.output, line)
	if s.file != nil {
		io.WriteString(s.file, line)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	std.write(LevelDebug, l.component, format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	std.write(LevelInfo, l.component, format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	std.write(LevelWarn, l.component, format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	std.write(LevelError, l.component, format, args...)
}

// Debug logs at debug level without a component.
func Debug(format string, args ...interface{}) {
	std.write(LevelDebug, "", format, args...)
}

// Info logs at info level without a component.
func Info(format string, args ...interface{}) {
	std.write(LevelInfo, "", format, args...)
}

// Warn logs at warn level without a component.
func Warn(format string, args ...interface{}) {
	std.write(LevelWarn, "", format, args...)
}

// ParseLevel converts a string to a Level.
// Accepts: debug, info, warn, error (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: valid levels are debug, info, warn, error", s)
	}
}
