// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package logging provides structured logging for the jobtap plugin,
// shell plugins, and CLI.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// Logger is the interface every component in this module logs through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new logger from the given configuration.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level: config.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	logger := slog.New(handler).With("component", config.Component)
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, sanitizeFields(args)...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, sanitizeFields(args)...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, sanitizeFields(args)...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, sanitizeFields(args)...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(sanitizeFields(args)...)}
}

// WithContext attaches the job ID carried in ctx (see pkg/jobcontext's
// WithJobID), if any, as a structured field.
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	if jobID, ok := ctx.Value(JobIDKey).(string); ok && jobID != "" {
		return l.With("jobid", jobID)
	}
	return l
}

// contextKey namespaces this package's context keys.
type contextKey int

// JobIDKey is the context key under which pkg/jobcontext.WithJobID stores
// the job ID, so any Logger.WithContext call picks it up without the two
// packages needing to import one another.
const JobIDKey contextKey = iota

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Format    Format
	Output    io.Writer
	Component string
}

// Format is the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultConfig returns sane defaults: text to stderr at info level, since
// jobtap and shell plugins must never write to stdout (reserved for their
// RPC/shell protocol).
func DefaultConfig() *Config {
	return &Config{
		Level:     slog.LevelInfo,
		Format:    FormatText,
		Output:    os.Stderr,
		Component: "cray-slingshot",
	}
}

// sanitizeLogValue strips control characters from string values so a
// hostile hostname or shell option cannot forge extra log lines.
func sanitizeLogValue(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, str)
}

func sanitizeFields(fields []any) []any {
	sanitized := make([]any, len(fields))
	for i, f := range fields {
		sanitized[i] = sanitizeLogValue(f)
	}
	return sanitized
}

// LogDuration logs the duration of a completed operation.
func LogDuration(logger Logger, start time.Time, operation string) {
	logger.Info("operation completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// LogError logs a failed operation along with its error Kind when err
// carries one (see pkg/errors.KindOf).
func LogError(logger Logger, err error, operation string, fields ...any) {
	if err == nil {
		return
	}
	baseFields := []any{"operation", operation, "error", err.Error()}
	if kind, ok := errors.KindOf(err); ok {
		baseFields = append(baseFields, "kind", string(kind))
	}
	logger.Error("operation failed", append(baseFields, fields...)...)
}

// NoOpLogger discards everything; used as a safe zero value.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...any)          {}
func (NoOpLogger) Info(msg string, args ...any)           {}
func (NoOpLogger) Warn(msg string, args ...any)           {}
func (NoOpLogger) Error(msg string, args ...any)          {}
func (NoOpLogger) With(args ...any) Logger                { return NoOpLogger{} }
func (NoOpLogger) WithContext(ctx context.Context) Logger { return NoOpLogger{} }

// Default is the package-level logger used where a caller does not wire
// its own.
var Default = NewLogger(DefaultConfig())
