// Package common provides shared utilities for Surge
package common

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// Logger wraps phuslu's log.Logger to provide a consistent interface
type Logger struct {
	log.Logger
}

// parseLevel maps a config level string onto a log level, defaulting to info.
func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLogger creates a console logger writing to stderr with the specified level
func NewLogger(level string) *Logger {
	return &Logger{Logger: log.Logger{
		Level:      parseLevel(level),
		TimeFormat: time.RFC3339,
		Writer: &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: true,
		},
	}}
}

// NewLoggerWithOutput creates a JSON logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	return &Logger{Logger: log.Logger{
		Level:  parseLevel(level),
		Writer: &log.IOWriter{Writer: w},
	}}
}

// NewLoggerFromConfig builds the logger described by the logging config section.
// Format "json" writes structured lines to stderr, anything else uses the console writer.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	if strings.EqualFold(cfg.Format, "json") {
		return NewLoggerWithOutput(cfg.Level, os.Stderr)
	}
	return NewLogger(cfg.Level)
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() *Logger {
	return NewLogger("info")
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	return NewLoggerWithOutput("error", io.Discard)
}
