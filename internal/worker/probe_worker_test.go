package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/mission-service/internal/observability"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProbeReportsUnhealthyDependencies(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := observability.NewMetrics()
	metrics.RecordRequest("/api/users", "GET", 200, 0)
	metrics.RecordError("/api/users", "GET", "FORBIDDEN")

	w := NewProbeWorker("", map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, metrics, zap.New(core))

	failed := w.Probe(context.Background())
	assert.Equal(t, []string{"redis"}, failed)

	warnings := logs.FilterMessage("dependency unhealthy").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "redis", warnings[0].ContextMap()["dependency"])

	summary := logs.FilterMessage("service metrics").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(1), summary[0].ContextMap()["requests"])
	assert.Equal(t, int64(1), summary[0].ContextMap()["errors"])
}

func TestStartWithEmptyScheduleIsDisabled(t *testing.T) {
	w := NewProbeWorker("", nil, nil, nil)
	require.NoError(t, w.Start())
	w.Stop()
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	w := NewProbeWorker("every now and then", nil, nil, nil)
	assert.Error(t, w.Start())
}
