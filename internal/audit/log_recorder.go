package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogRecorder writes events to a zap logger. Used when no database is configured.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log.Named("audit")}
}

func (r *LogRecorder) Record(_ context.Context, event *Event) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.String("actor_type", string(event.ActorType)),
		zap.String("status", string(event.Status)),
		zap.String("ip", event.IPAddress),
		zap.String("request_id", event.RequestID),
		zap.Time("at", event.CreatedAt),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.String()))
	}
	if event.ResourceID != nil {
		fields = append(fields, zap.String("resource_id", event.ResourceID.String()))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	if event.ErrorMessage != "" {
		fields = append(fields, zap.String("error", event.ErrorMessage))
	}
	r.log.Info("audit", fields...)
	return nil
}
