package service

import (
	"context"
	"log/slog"
)

type Event string

const (
	EventSuccessfulPayment               Event = "successfulPayment"
	EventSuccessfulSubscriptionExecution Event = "successfulSubscriptionExecution"
	EventSubscriptionCancelled           Event = "subscriptionCancelled"
	EventSubscriptionAborted             Event = "subscriptionAborted"
)

// EventSink receives fire-and-forget notifications (Discord notifier,
// analytics). Emission is best-effort; implementations must not fail the
// calling operation.
type EventSink interface {
	Emit(ctx context.Context, event Event, attrs ...slog.Attr)
}

// LogSink writes events to the structured log. The default sink; external
// notifiers wrap or replace it in main.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, event Event, attrs ...slog.Attr) {
	s.log.LogAttrs(ctx, slog.LevelInfo, string(event), attrs...)
}
