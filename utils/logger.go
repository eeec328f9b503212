package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// LoggerConfig selects the handler behind a Logger.
type LoggerConfig struct {
	Writer io.Writer
	Level  slog.Level
	JSON   bool
	Color  bool

	// Fluent, when set, receives a copy of every record at or above Level.
	Fluent    *fluent.Fluent
	FluentTag string
}

// Logger provides leveled, printf-style logging throughout the application.
// Records are structured underneath so fields added with With travel along.
type Logger struct {
	slog      *slog.Logger
	fluent    *fluent.Fluent
	fluentTag string
	level     slog.Level
	fields    map[string]any
}

// NewLogger creates a coloured Logger writing to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithConfig(LoggerConfig{Level: slog.LevelInfo, Color: true})
}

// NewLoggerWithConfig builds a Logger from cfg.
func NewLoggerWithConfig(cfg LoggerConfig) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	var handler slog.Handler
	switch {
	case cfg.JSON:
		handler = slog.NewJSONHandler(cfg.Writer, &slog.HandlerOptions{Level: cfg.Level})
	case cfg.Color:
		handler = tint.NewHandler(cfg.Writer, &tint.Options{
			Level:      cfg.Level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		handler = slog.NewTextHandler(cfg.Writer, &slog.HandlerOptions{Level: cfg.Level})
	}

	tag := cfg.FluentTag
	if tag == "" {
		tag = "dashboard"
	}

	return &Logger{
		slog:      slog.New(handler),
		fluent:    cfg.Fluent,
		fluentTag: tag,
		level:     cfg.Level,
		fields:    map[string]any{},
	}
}

// NewDiscardLogger returns a Logger that drops everything. Used in tests.
func NewDiscardLogger() *Logger {
	return NewLoggerWithConfig(LoggerConfig{Writer: io.Discard, Level: slog.LevelError + 4})
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying key=value on every record.
func (l *Logger) With(key string, value any) *Logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{
		slog:      l.slog.With(key, value),
		fluent:    l.fluent,
		fluentTag: l.fluentTag,
		level:     l.level,
		fields:    fields,
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.slog.Log(context.Background(), level, msg)
	l.forward(level, msg)
}

// forward posts the record to Fluent Bit. Delivery errors are dropped: the
// stdout handler already has the line.
func (l *Logger) forward(level slog.Level, msg string) {
	if l.fluent == nil {
		return
	}
	data := make(map[string]any, len(l.fields)+3)
	for k, v := range l.fields {
		data[k] = v
	}
	data["level"] = strings.ToLower(level.String())
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	_ = l.fluent.Post(l.fluentTag+"."+strings.ToLower(level.String()), data)
}
