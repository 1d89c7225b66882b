package events

import (
	"context"

	"go.uber.org/zap"
)

// EventCounter records that an event happened.
type EventCounter interface {
	RecordEvent(eventType string)
}

// SubscribeAudit logs every auth event and, when counter is set, counts it.
func SubscribeAudit(d Dispatcher, logger *zap.Logger, counter EventCounter) {
	handler := func(_ context.Context, event Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Time("at", event.Timestamp),
		}
		if event.Username != "" {
			fields = append(fields, zap.String("username", event.Username))
		}
		if event.UserID != nil {
			fields = append(fields, zap.Int64("user_id", *event.UserID))
		}
		if event.Payload != nil {
			fields = append(fields, zap.Any("payload", event.Payload))
		}

		if event.Type == EventLoginFailed {
			logger.Warn("auth event", fields...)
		} else {
			logger.Info("auth event", fields...)
		}
		if counter != nil {
			counter.RecordEvent(string(event.Type))
		}
		return nil
	}

	for _, eventType := range AuthEventTypes {
		d.Subscribe(eventType, handler)
	}
}
