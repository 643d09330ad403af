package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	var calls []string
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserCreated, "admin", "user", "u1", nil))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()

	reached := false
	d.Subscribe(EventDepartmentDeleted, func(context.Context, Event) error {
		panic("sink exploded")
	})
	d.Subscribe(EventDepartmentDeleted, func(context.Context, Event) error {
		reached = true
		return nil
	})

	var err error
	require.NotPanics(t, func() {
		err = d.Publish(context.Background(), NewEvent(EventDepartmentDeleted, "admin", "department", "d1", nil))
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), string(EventDepartmentDeleted))
	assert.Contains(t, err.Error(), "sink exploded")
	assert.True(t, reached)
}

func TestNewEventStampsIdentity(t *testing.T) {
	e := NewEvent(EventDepartmentCreated, "admin", "department", "d1", map[string]any{"code": "OPS"})

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "d1", e.TargetID)
	assert.Equal(t, "OPS", e.Payload["code"])
}
