// Package winddown provides default logging implementations.
package winddown

import (
	"log/slog"
	"os"
)

// LogLevel defines the supported log levels. Values map directly onto
// slog's levels so implementations backed by slog can convert cheaply.
type LogLevel int

const (
	LogLevelDebug LogLevel = LogLevel(slog.LevelDebug)
	LogLevelInfo  LogLevel = LogLevel(slog.LevelInfo)
	LogLevelWarn  LogLevel = LogLevel(slog.LevelWarn)
	LogLevelError LogLevel = LogLevel(slog.LevelError)
)

// Logger is the logging interface used throughout winddown.
// Args are alternating key-value pairs, as with slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level LogLevel)
}

// slogLogger implements Logger on top of log/slog.
type slogLogger struct {
	slogger  *slog.Logger
	levelVar *slog.LevelVar
}

// NewDefaultLogger returns a Logger writing JSON to os.Stderr at info
// level. The level can be changed at runtime via SetLevel.
func NewDefaultLogger() Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})
	return &slogLogger{
		slogger:  slog.New(handler),
		levelVar: levelVar,
	}
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

func (l *slogLogger) SetLevel(level LogLevel) {
	if l.levelVar != nil {
		l.levelVar.Set(slog.Level(level))
	}
}
