package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/domain"
)

// MultiSink appends to a primary sink and mirrors to best-effort
// secondaries. Only primary failures are returned.
type MultiSink struct {
	primary     Sink
	secondaries []Sink
	logger      *zap.Logger
}

// NewMultiSink builds a fan-out sink.
func NewMultiSink(logger *zap.Logger, primary Sink, secondaries ...Sink) *MultiSink {
	return &MultiSink{primary: primary, secondaries: secondaries, logger: logger}
}

// Append writes entry to every sink.
func (m *MultiSink) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if err := m.primary.Append(ctx, entry); err != nil {
		return err
	}
	for _, sink := range m.secondaries {
		if err := sink.Append(ctx, entry); err != nil {
			m.logger.Warn("audit mirror failed", zap.String("audit_id", entry.ID), zap.Error(err))
		}
	}
	return nil
}

// RedisStreamSink mirrors entries onto a Redis stream.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamSink builds a sink for stream, trimmed to roughly maxLen.
func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Append adds entry to the stream.
func (s *RedisStreamSink) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	values, err := streamValues(entry)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

func streamValues(entry *domain.AuditEntry) (map[string]any, error) {
	values := map[string]any{
		"id":          entry.ID,
		"action":      string(entry.Action),
		"actor_id":    entry.ActorID,
		"target_id":   entry.TargetID,
		"target_type": entry.TargetType,
		"timestamp":   entry.Timestamp.Format(time.RFC3339Nano),
	}
	if entry.IPAddress != nil {
		values["ip_address"] = *entry.IPAddress
	}
	if entry.UserAgent != nil {
		values["user_agent"] = *entry.UserAgent
	}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return nil, err
		}
		values["metadata"] = string(raw)
	}
	return values, nil
}
