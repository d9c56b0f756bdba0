// Package logger provides leveled logging for pleskcert.
//
// The logger package outputs debug information to stderr, separate from
// the user-facing output that goes to stdout. API-RPC packets and panel
// utility invocations are traced here at debug level, so `--verbose` shows
// exactly what was sent to the panel without disturbing JSON output.
//
// Records are written by a zerolog logger through a console writer, which
// keeps the human-readable layout:
//
//	[LEVEL] YYYY-MM-DD HH:MM:SS message key=value ...
//	[DEBUG] 2026-02-03 10:30:45 API-RPC request packet=<?xml ...
//
// # Log Levels
//
// Four log levels are supported, in order of severity:
//   - Debug: Detailed information for debugging
//   - Info: General operational information
//   - Warn: Warning conditions that don't prevent operation
//   - Error: Error conditions that affect operation
//
// # Initialization
//
//	logger.Init(verbose)  // verbose=true enables Debug level
//
// By default (verbose=false), only Warn and Error messages are shown.
//
// # Usage
//
//	logger.Debug("Resolved endpoint %s", url)
//	logger.DebugFields("Certificate installed", map[string]interface{}{
//	    "domain": "example.com",
//	    "name":   "Lets Encrypt example.com",
//	})
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level represents a logging severity level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
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

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Logger handles leveled logging with thread-safe output.
type Logger struct {
	level  Level
	output io.Writer
	zl     zerolog.Logger
	mu     sync.Mutex
}

// Global logger instance.
var std = newLogger(os.Stderr, LevelWarn)

func newLogger(w io.Writer, level Level) *Logger {
	l := &Logger{level: level, output: w}
	l.rebuild()
	return l
}

// rebuild recreates the zerolog pipeline after output or level changes.
// Callers hold mu, except during construction.
func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{
		Out:        l.output,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
		FormatLevel: func(i interface{}) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
	l.zl = zerolog.New(cw).With().Timestamp().Logger().Level(l.level.zerolog())
}

// Init initializes the global logger with the specified verbosity.
// When verbose is true, Debug and Info levels are enabled.
// When verbose is false, only Warn and Error are shown.
func Init(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelWarn)
	}
}

// SetLevel sets the minimum log level for the global logger.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
	std.rebuild()
}

// SetOutput sets the output destination for the global logger.
// A nil writer restores the default, os.Stderr.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	std.output = w
	std.rebuild()
}

// GetLevel returns the current log level.
func GetLevel() Level {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.level
}

// log writes a formatted message at the specified level.
func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	l.zl.WithLevel(level.zerolog()).Msg(fmt.Sprintf(format, args...))
}

// logFields writes a message with structured key-value fields.
func (l *Logger) logFields(level Level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	ev := l.zl.WithLevel(level.zerolog())
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

// Debug logs a debug message.
// Only shown when verbose mode is enabled.
func Debug(format string, args ...interface{}) {
	std.log(LevelDebug, format, args...)
}

// Info logs an informational message.
// Only shown when verbose mode is enabled.
func Info(format string, args ...interface{}) {
	std.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
// Always shown regardless of verbose mode.
func Warn(format string, args ...interface{}) {
	std.log(LevelWarn, format, args...)
}

// Error logs an error message.
// Always shown regardless of verbose mode.
func Error(format string, args ...interface{}) {
	std.log(LevelError, format, args...)
}

// DebugFields logs a debug message with structured fields.
func DebugFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelDebug, msg, fields)
}

// InfoFields logs an informational message with structured fields.
func InfoFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelInfo, msg, fields)
}

// WarnFields logs a warning message with structured fields.
func WarnFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelWarn, msg, fields)
}

// ErrorFields logs an error message with structured fields.
func ErrorFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelError, msg, fields)
}

// LogError logs an error with additional context message.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	std.log(LevelError, "%s: %v", msg, err)
}
