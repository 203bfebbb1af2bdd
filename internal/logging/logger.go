// Package logging provides the leveled key/value logger used across
// sheet-redact.
//
// Output goes to stderr through the standard library log package so stdout
// stays free for the MCP protocol and for report output. The minimum level is
// read from SHEET_REDACT_LOG_LEVEL (debug, info, warn, error; default info).
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// EnvLevel is the environment variable consulted by New.
const EnvLevel = "SHEET_REDACT_LOG_LEVEL"

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel converts a level name into a Level. Unknown names map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes leveled messages with trailing key=value pairs.
// A Logger is safe for concurrent use; the underlying log.Logger serializes writes.
type Logger struct {
	prefix string
	level  Level
	logger *log.Logger
}

// New creates a logger writing to stderr at the level from EnvLevel.
func New(prefix string) *Logger {
	return NewWithWriter(os.Stderr, prefix, ParseLevel(os.Getenv(EnvLevel)))
}

// NewWithWriter creates a logger writing to w at the given level.
func NewWithWriter(w io.Writer, prefix string, level Level) *Logger {
	p := ""
	if prefix != "" {
		p = fmt.Sprintf("[%s] ", prefix)
	}
	return &Logger{
		prefix: prefix,
		level:  level,
		logger: log.New(w, p, log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, "", LevelError+1)
}

// With returns a child logger whose prefix is extended with name.
func (l *Logger) With(name string) *Logger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "/" + name
	}
	return NewWithWriter(l.logger.Writer(), prefix, l.level)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

// Debug logs a debug message with key-value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelDebug, msg, keysAndValues...)
}

// Info logs an informational message with key-value pairs.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message with key-value pairs.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelError, msg, keysAndValues...)
}

func (l *Logger) logWithKV(level Level, msg string, keysAndValues ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, " %v=?", keysAndValues[i])
		}
	}
	// calldepth 3: logWithKV -> Info/Warn/... -> caller
	_ = l.logger.Output(3, fmt.Sprintf("[%s] %s%s", level, msg, b.String()))
}
