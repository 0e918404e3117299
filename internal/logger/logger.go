package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

type implLogger struct {
	logger *log.Logger
	json   *slog.Logger
	level  string
}

// New creates a new Logger instance writing text lines to stdout
func New(level string) Logger {
	return NewWithFormat(level, "text", os.Stdout)
}

// NewWithFormat creates a Logger; format "json" emits one JSON object per line
func NewWithFormat(level, format string, w io.Writer) Logger {
	l := &implLogger{level: strings.ToLower(level)}
	if strings.EqualFold(format, "json") {
		l.json = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		l.logger = log.New(w, "", log.LstdFlags)
	}
	return l
}

// Nop returns a Logger that discards everything
func Nop() Logger {
	return NewWithFormat("error", "text", io.Discard)
}

var levels = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

func (l *implLogger) shouldLog(level string) bool {
	currentLevel, ok := levels[l.level]
	if !ok {
		currentLevel = 1 // default to info
	}

	targetLevel, ok := levels[level]
	if !ok {
		return true
	}

	return targetLevel >= currentLevel
}

func (l *implLogger) write(ctx context.Context, level string, msg string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	text := fmt.Sprintf(msg, args...)
	session := sessionFrom(ctx)

	if l.json != nil {
		attrs := []any{}
		if session != "" {
			attrs = append(attrs, slog.String("session", session))
		}
		l.json.Log(ctx, slogLevel(level), text, attrs...)
		return
	}

	if session != "" {
		l.logger.Printf("[%s] [%s] %s", strings.ToUpper(level), session, text)
		return
	}
	l.logger.Printf("[%s] %s", strings.ToUpper(level), text)
}

func (l *implLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, "debug", msg, args...)
}

func (l *implLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, "info", msg, args...)
}

func (l *implLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, "warn", msg, args...)
}

func (l *implLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, "error", msg, args...)
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
