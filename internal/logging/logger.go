// Package logging defines the structured-logging interface used across
// pinmail. Implementations wrap slog and zerolog.
package logging

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "pin accepted", "user_id", id)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds a Logger writing to w.
//
// format is one of "text", "json" (both slog) or "zerolog"; level is one of
// "debug", "info", "warn", "error".
func New(format, level string, w io.Writer) (Logger, error) {
	if strings.EqualFold(format, "zerolog") {
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || level == "" {
			lvl = zerolog.InfoLevel
		}
		return NewZerologLogger(zerolog.New(w).Level(lvl).With().Timestamp().Logger()), nil
	}
	l, err := NewSlog(format, level, w)
	if err != nil {
		return nil, err
	}
	return l, nil
}
