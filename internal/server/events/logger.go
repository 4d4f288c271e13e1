package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dmitrijs2005/pinmail/internal/logging"
)

// loggerAdapter routes watermill logs to a logging.Logger. Trace is logged
// at debug level.
type loggerAdapter struct {
	log logging.Logger
}

func NewLoggerAdapter(l logging.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{log: l}
}

func args(fields watermill.LogFields) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(context.Background(), msg, append(args(fields), "err", err)...)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(context.Background(), msg, args(fields)...)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(context.Background(), msg, args(fields)...)
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(context.Background(), msg, args(fields)...)
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{log: a.log.With(args(fields)...)}
}
