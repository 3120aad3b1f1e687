// Package logger is the structured JSON logger used by the API, the sweep
// and the CLI.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger is what services take; tests hand them Nop()
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	*slog.Logger
}

func (l slogLogger) With(args ...any) Logger {
	return slogLogger{l.Logger.With(args...)}
}

// New logs JSON to stdout
func New(level string) Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, w io.Writer) Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slogLogger{slog.New(h)}
}

// ParseLevel accepts slog level names in any case. Anything else is info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func Nop() Logger {
	return NewWithWriter("error", io.Discard)
}
