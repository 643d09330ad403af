package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/mission-service/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as the
// audit action recorded for the event.
type EventType string

const (
	EventUserCreated           EventType = EventType(domain.AuditUserCreated)
	EventUserUpdated           EventType = EventType(domain.AuditUserUpdated)
	EventUserDeleted           EventType = EventType(domain.AuditUserDeleted)
	EventDepartmentCreated     EventType = EventType(domain.AuditDepartmentCreated)
	EventDepartmentUpdated     EventType = EventType(domain.AuditDepartmentUpdated)
	EventDepartmentDeleted     EventType = EventType(domain.AuditDepartmentDeleted)
	EventDepartmentHeadChanged EventType = EventType(domain.AuditDepartmentHeadChanged)
)

// MutationEvents lists every event emitted after a committed write.
var MutationEvents = []EventType{
	EventUserCreated,
	EventUserUpdated,
	EventUserDeleted,
	EventDepartmentCreated,
	EventDepartmentUpdated,
	EventDepartmentDeleted,
	EventDepartmentHeadChanged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	ActorID    string         `json:"actor_id"`
	TargetID   string         `json:"target_id"`
	TargetType string         `json:"target_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// NewEvent builds an event stamped with a fresh id and the current time.
func NewEvent(eventType EventType, actorID, targetType, targetID string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		TargetID:   targetID,
		TargetType: targetType,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}
