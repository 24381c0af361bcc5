// Package sinks provides execlog.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/execlog"
)

// ZapSink mirrors the execution log into the service's structured logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wires a zap logger to the sink interface.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

// Append logs each entry using structured fields.
func (s *ZapSink) Append(_ context.Context, batch []execlog.Entry) error {
	for _, e := range batch {
		fields := []zap.Field{
			zap.Time("ts", e.TS),
			zap.String("action", e.Action),
			zap.String("message", e.Message),
		}
		switch e.Level {
		case execlog.LevelError:
			s.logger.Error("execution log", fields...)
		case execlog.LevelWarn:
			s.logger.Warn("execution log", fields...)
		default:
			s.logger.Info("execution log", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *ZapSink) Close(context.Context) error { return nil }
