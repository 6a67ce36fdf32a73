/*
Package jobpool is a bounded worker pool for Go programs.

A fixed number of worker goroutines take jobs from a shared FIFO queue and run
each one exactly once. A job that panics is recovered, logged and counted; its
worker moves on to the next job. Shutdown stops intake and returns only after
every job that was accepted before it has run.

Packages:
  - pkg/jobpool: Pool, Job and the metrics decorator
  - pkg/jobpool/schedule: cron-driven submission into a pool
  - pkg/metrics: Prometheus collectors shared by both
  - pkg/common/errors, pkg/common/validation: sentinel and validation errors

The cmd/jobpool command drives a pool from the command line.

Example usage:

	import "github.com/vnykmshr/jobpool/pkg/jobpool"

	pool, err := jobpool.New(4)
	if err != nil {
		return err
	}
	defer pool.Shutdown()

	if err := pool.Submit(func() { process(item) }); err != nil {
		// jobpool.ErrPoolShuttingDown
	}
*/
package jobpool
