// Package codechat implements the CodeChat rendering service: a local
// daemon that turns editor buffers and on-disk documents into browser-
// rendered HTML, coordinated across any number of concurrent editor
// sessions.
package codechat

import (
	"log/slog"
	"os"
)

// Logger provides structured, leveled logging shared by every transport
// and worker in the service.
type Logger struct {
	slog *slog.Logger
}

// NewLogger creates a Logger that writes JSON to stderr.
func NewLogger() *Logger {
	return &Logger{
		slog: slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
}

// NewQuietLogger creates a Logger that only writes ERROR-level entries, for
// the `serve --quiet` flag.
func NewQuietLogger() *Logger {
	return &Logger{
		slog: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// With returns a new Logger with the given key-value pairs attached to
// every log entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// ReadyMarker is the literal line peer tooling scans stderr for once all
// three listeners (editor RPC, HTTP, WebSocket) are accepting connections.
// It is written directly with fmt.Fprintln rather than through a Logger,
// since tooling matches it as plain text, not a JSON log line.
const ReadyMarker = "The CodeChat Server is ready.\nCODECHAT_READY"
