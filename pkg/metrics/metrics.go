// Package metrics provides Prometheus instrumentation for jobpool components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobpool"

// Registry holds all metric instances for jobpool components.
type Registry struct {
	// Pool Metrics
	JobsSubmitted   *prometheus.CounterVec
	JobsRejected    *prometheus.CounterVec
	JobsCompleted   *prometheus.CounterVec
	JobsPanicked    *prometheus.CounterVec
	JobsAborted     *prometheus.CounterVec
	JobQueueWait    *prometheus.HistogramVec
	JobDuration     *prometheus.HistogramVec
	PoolWorkers     *prometheus.GaugeVec
	PoolBusyWorkers *prometheus.GaugeVec
	PoolQueuedJobs  *prometheus.GaugeVec

	// Schedule Metrics
	ScheduleRuns           *prometheus.CounterVec
	ScheduleSubmitFailures *prometheus.CounterVec
	ScheduleEntries        *prometheus.GaugeVec
}

// DefaultRegistry is the registry used when a component is instrumented
// without an explicit Prometheus registerer.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = ForRegisterer(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		JobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "jobs_submitted_total",
				Help:      "Total number of jobs accepted for execution",
			},
			[]string{"pool_name"},
		),

		JobsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "jobs_rejected_total",
				Help:      "Total number of jobs rejected because the pool was shutting down",
			},
			[]string{"pool_name"},
		),

		JobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "jobs_completed_total",
				Help:      "Total number of jobs that returned normally",
			},
			[]string{"pool_name"},
		),

		JobsPanicked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "jobs_panicked_total",
				Help:      "Total number of jobs whose panic was recovered by a worker",
			},
			[]string{"pool_name"},
		),

		JobsAborted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "jobs_aborted_total",
				Help:      "Total number of jobs that exited their goroutine without returning",
			},
			[]string{"pool_name"},
		),

		JobQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "job_queue_wait_seconds",
				Help:      "Time between job acceptance and the start of its execution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "job_duration_seconds",
				Help:      "Time spent executing jobs",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		PoolWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "workers",
				Help:      "Number of workers owned by the pool",
			},
			[]string{"pool_name"},
		),

		PoolBusyWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "busy_workers",
				Help:      "Number of workers currently executing a job",
			},
			[]string{"pool_name"},
		),

		PoolQueuedJobs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "queued_jobs",
				Help:      "Number of accepted jobs waiting for a worker",
			},
			[]string{"pool_name"},
		),

		ScheduleRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "runs_total",
				Help:      "Total number of schedule ticks that submitted a job",
			},
			[]string{"entry_name"},
		),

		ScheduleSubmitFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "submit_failures_total",
				Help:      "Total number of schedule ticks whose job was rejected by the pool",
			},
			[]string{"entry_name"},
		),

		ScheduleEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "schedule",
				Name:      "entries",
				Help:      "Number of registered schedule entries",
			},
			[]string{"scheduler_name"},
		),
	}
}
