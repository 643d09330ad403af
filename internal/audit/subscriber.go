package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/events"
)

// Subscriber turns mutation events into audit entries.
type Subscriber struct {
	recorder *Recorder
	logger   *zap.Logger
}

// NewSubscriber creates the subscriber.
func NewSubscriber(recorder *Recorder, logger *zap.Logger) *Subscriber {
	return &Subscriber{recorder: recorder, logger: logger}
}

// RegisterHandlers subscribes to every mutation event.
func (s *Subscriber) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.MutationEvents {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *Subscriber) handle(ctx context.Context, event events.Event) error {
	entry, err := s.recorder.Record(ctx, domain.AuditEntry{
		Action:     domain.AuditAction(event.Type),
		ActorID:    event.ActorID,
		TargetID:   event.TargetID,
		TargetType: event.TargetType,
		Metadata:   event.Payload,
		Timestamp:  event.Timestamp,
	})
	if err != nil {
		s.logger.Error("audit record failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	s.logger.Debug("audit recorded", zap.String("audit_id", entry.ID), zap.String("action", string(entry.Action)))
	return nil
}
