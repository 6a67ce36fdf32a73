package jobpool

import (
	"context"
	"errors"
	"time"

	"github.com/vnykmshr/jobpool/pkg/metrics"
)

// MetricsPool wraps a Pool with Prometheus metrics collection.
type MetricsPool struct {
	*Pool
	registry *metrics.Registry
}

// NewWithMetrics creates a pool whose submissions and job executions are
// recorded in the registry described by metricsConfig. The pool name is the
// pool_name label.
func NewWithMetrics(config Config, metricsConfig metrics.Config) (*MetricsPool, error) {
	pool, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}

	mp := &MetricsPool{
		Pool:     pool,
		registry: metricsConfig.Resolve(),
	}
	mp.updateMetrics()

	return mp, nil
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	if mp.registry == nil {
		return
	}

	mp.registry.PoolWorkers.WithLabelValues(mp.name).Set(float64(mp.Size()))
	mp.registry.PoolBusyWorkers.WithLabelValues(mp.name).Set(float64(mp.Busy()))
	mp.registry.PoolQueuedJobs.WithLabelValues(mp.name).Set(float64(mp.QueueLen()))
}

// Submit adds a job to the pool for execution.
func (mp *MetricsPool) Submit(job Job) error {
	return mp.SubmitWithContext(context.Background(), job)
}

// SubmitWithContext submits a job, bounding the wait for queue space by ctx.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, job Job) error {
	if job == nil || mp.registry == nil {
		return mp.Pool.SubmitWithContext(ctx, job)
	}
	return mp.record(mp.Pool.SubmitWithContext(ctx, mp.instrument(job)))
}

// TrySubmit submits a job without blocking.
func (mp *MetricsPool) TrySubmit(job Job) error {
	if job == nil || mp.registry == nil {
		return mp.Pool.TrySubmit(job)
	}
	return mp.record(mp.Pool.TrySubmit(mp.instrument(job)))
}

func (mp *MetricsPool) record(err error) error {
	switch {
	case err == nil:
		mp.registry.JobsSubmitted.WithLabelValues(mp.name).Inc()
	case errors.Is(err, ErrPoolShuttingDown):
		mp.registry.JobsRejected.WithLabelValues(mp.name).Inc()
	}
	mp.updateMetrics()

	return err
}

// instrument wraps job so that queue wait, duration and outcome are
// recorded. A panic is observed and re-raised for the worker to recover; a
// job that neither returns nor panics called runtime.Goexit.
func (mp *MetricsPool) instrument(job Job) Job {
	accepted := time.Now()

	return func() {
		start := time.Now()
		mp.registry.JobQueueWait.WithLabelValues(mp.name).Observe(start.Sub(accepted).Seconds())

		returned := false
		defer func() {
			mp.registry.JobDuration.WithLabelValues(mp.name).Observe(time.Since(start).Seconds())

			r := recover()
			switch {
			case r != nil:
				mp.registry.JobsPanicked.WithLabelValues(mp.name).Inc()
			case returned:
				mp.registry.JobsCompleted.WithLabelValues(mp.name).Inc()
			default:
				mp.registry.JobsAborted.WithLabelValues(mp.name).Inc()
			}
			mp.updateMetrics()

			if r != nil {
				panic(r)
			}
		}()

		job()
		returned = true
	}
}

// Shutdown drains the pool and refreshes the state gauges.
func (mp *MetricsPool) Shutdown() {
	mp.Pool.Shutdown()
	mp.updateMetrics()
}

// ShutdownWithContext drains the pool, bounded by ctx, and refreshes the
// state gauges.
func (mp *MetricsPool) ShutdownWithContext(ctx context.Context) error {
	err := mp.Pool.ShutdownWithContext(ctx)
	mp.updateMetrics()
	return err
}

// Close implements io.Closer.
func (mp *MetricsPool) Close() error {
	mp.Shutdown()
	return nil
}

// MetricsEnabled reports whether the pool records metrics.
func (mp *MetricsPool) MetricsEnabled() bool {
	return mp.registry != nil
}
