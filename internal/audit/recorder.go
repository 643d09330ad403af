package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/mission-service/internal/domain"
)

// ErrMalformedEntry is returned for entries missing required fields.
var ErrMalformedEntry = errors.New("audit entry requires action, actor and target")

// Sink persists well-formed audit entries.
type Sink interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
}

// Recorder produces well-formed audit entries and hands them to a Sink.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// NewRecorder constructs a recorder writing to sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

// Record validates entry, stamps id and timestamp and appends it.
func (r *Recorder) Record(ctx context.Context, entry domain.AuditEntry) (*domain.AuditEntry, error) {
	if entry.Action == "" || strings.TrimSpace(entry.ActorID) == "" || strings.TrimSpace(entry.TargetID) == "" {
		return nil, ErrMalformedEntry
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC()
	}
	if err := r.sink.Append(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// RecordAuth records a login or logout performed by actorID on itself.
func (r *Recorder) RecordAuth(ctx context.Context, action domain.AuditAction, actorID string, meta domain.ClientMeta) (*domain.AuditEntry, error) {
	return r.Record(ctx, domain.AuditEntry{
		Action:     action,
		ActorID:    actorID,
		TargetID:   actorID,
		TargetType: "user",
		IPAddress:  optional(meta.IPAddress),
		UserAgent:  optional(meta.UserAgent),
	})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
