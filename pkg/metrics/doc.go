// Package metrics provides Prometheus instrumentation for jobpool components.
//
// # Overview
//
// The metrics package instruments:
//   - Pools (accepted, rejected, completed and panicked jobs; queue wait and
//     execution time; worker, busy worker and queued job gauges)
//   - Schedules (ticks, rejected submissions, registered entries)
//
// # Quick Start
//
//	pool, err := jobpool.NewWithMetrics(jobpool.Config{Size: 4, Name: "mailer"}, metrics.DefaultConfig())
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":9090", nil))
//
// # Custom Registry
//
// A dedicated Prometheus registry keeps instrumented components isolated,
// which is what the tests do:
//
//	reg := prometheus.NewRegistry()
//	pool, err := jobpool.NewWithMetrics(cfg, metrics.Config{Enabled: true, Registry: reg})
//
// # Available Metrics
//
//   - jobpool_pool_jobs_submitted_total
//   - jobpool_pool_jobs_rejected_total
//   - jobpool_pool_jobs_completed_total
//   - jobpool_pool_jobs_panicked_total
//   - jobpool_pool_job_queue_wait_seconds
//   - jobpool_pool_job_duration_seconds
//   - jobpool_pool_workers
//   - jobpool_pool_busy_workers
//   - jobpool_pool_queued_jobs
//   - jobpool_schedule_runs_total
//   - jobpool_schedule_submit_failures_total
//   - jobpool_schedule_entries
package metrics
