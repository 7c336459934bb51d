// Package logger provides leveled printf-style logging on top of log/slog.
// Init selects the level and whether records are written as text or JSON.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly, it shouldn't generate any error-level logs.
	ErrorLevel
)

func (l Level) slog() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a config string to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var defaultLogger *slog.Logger

// Init initializes the default logger with the specified level and format.
// format is "json" or "text".
func Init(level string, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level).slog()}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(h)
}

// Slog returns the underlying logger, or nil before Init.
func Slog() *slog.Logger { return defaultLogger }

func logf(l slog.Level, format string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), l) {
		return
	}
	defaultLogger.Log(context.Background(), l, fmt.Sprintf(format, args...))
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) { logf(slog.LevelDebug, format, args...) }

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) { logf(slog.LevelInfo, format, args...) }

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) { logf(slog.LevelWarn, format, args...) }

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) { logf(slog.LevelError, format, args...) }

// Fatal logs a message at ErrorLevel and exits
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if defaultLogger != nil {
		defaultLogger.Error(msg, "fatal", true)
	} else {
		fmt.Fprintln(os.Stderr, "FATAL "+msg)
	}
	os.Exit(1)
}
