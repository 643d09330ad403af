package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/observability"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeWorker periodically pings backing services and logs request
// metrics so degraded dependencies show up without an external probe.
type ProbeWorker struct {
	cron         *cron.Cron
	schedule     string
	timeout      time.Duration
	dependencies map[string]Pinger
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewProbeWorker builds a worker running on a cron schedule such as
// "@every 1m".
func NewProbeWorker(schedule string, dependencies map[string]Pinger, metrics *observability.Metrics, logger *zap.Logger) *ProbeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProbeWorker{
		cron:         cron.New(),
		schedule:     schedule,
		timeout:      5 * time.Second,
		dependencies: dependencies,
		metrics:      metrics,
		logger:       logger,
	}
}

// Start registers the probe and starts the scheduler. An empty schedule
// disables the worker.
func (w *ProbeWorker) Start() error {
	if w.schedule == "" {
		return nil
	}
	if _, err := w.cron.AddFunc(w.schedule, w.RunOnce); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("probe worker started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running probe to finish.
func (w *ProbeWorker) Stop() {
	<-w.cron.Stop().Done()
}

// RunOnce is the scheduled job.
func (w *ProbeWorker) RunOnce() {
	w.Probe(context.Background())
}

// Probe pings every dependency and logs the metrics snapshot. It returns
// the names of dependencies that failed.
func (w *ProbeWorker) Probe(ctx context.Context) []string {
	var failed []string
	for name, dep := range w.dependencies {
		pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := dep.Ping(pingCtx)
		cancel()
		if err != nil {
			failed = append(failed, name)
			w.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
	}

	snapshot := w.metrics.Snapshot()
	var requests, errs int64
	for _, n := range snapshot.Requests {
		requests += n
	}
	for _, n := range snapshot.Errors {
		errs += n
	}
	w.logger.Info("service metrics",
		zap.Int64("requests", requests),
		zap.Int64("errors", errs),
		zap.Strings("unhealthy", failed),
	)
	return failed
}
