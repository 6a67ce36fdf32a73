/*
Package jobpool provides a fixed-size worker pool that runs fire-and-forget jobs.

A pool owns a fixed number of worker goroutines fed by one shared FIFO queue.
Every accepted job runs exactly once on exactly one worker. A job that panics
is recovered, logged and counted; the worker that ran it carries on with the
next job. Shutdown drains every job accepted before it began and returns only
after all workers have terminated.

Basic usage:

	pool, err := jobpool.New(4)
	if err != nil {
		return err
	}
	defer pool.Shutdown()

	err = pool.Submit(func() {
		// Do work
	})
	if errors.Is(err, jobpool.ErrPoolShuttingDown) {
		// The job was not queued; it is still ours to deal with.
	}

Jobs:

A Job is a func(). It has no arguments and no result, so anything a job needs
is captured by the closure and anything it produces is a side effect. Submit
returning nil means "accepted for execution", never "executed successfully".

Failure isolation:

Panics are converted into *PanicError values. Payloads that carry text (a
string, an error, a fmt.Stringer) are logged with their message, anything else
with its dynamic type. Config.PanicHandler observes each failure:

	pool, err := jobpool.NewWithConfig(jobpool.Config{
		Size: 8,
		PanicHandler: func(perr *jobpool.PanicError) {
			alerts.Notify(perr.Error())
		},
	})

Queues:

The queue is unbounded by default and Submit never blocks. Config.QueueSize
bounds it; Submit then waits for room, SubmitWithContext bounds the wait and
TrySubmit fails fast with an error matching errors.ErrCapacityExceeded.

Shutdown:

	pool.Shutdown()              // wait for the drain
	err := pool.ShutdownWithContext(ctx) // or give up waiting when ctx ends
	<-pool.Done()                // closed once every worker has terminated

After Shutdown has begun, Submit fails with ErrPoolShuttingDown. Jobs are not
cancelled and there is no per-job timeout; a job that never returns holds its
worker and therefore Shutdown forever. Calling Shutdown from inside a job
deadlocks.

Metrics:

NewWithMetrics returns a *MetricsPool that records accepted, rejected,
completed and panicked jobs together with queue wait and execution time in a
Prometheus registry. See package metrics.

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
Jobs submitted by one goroutine are started in submission order; there is no
ordering between jobs from different goroutines, and with more than one
worker start order says nothing about completion order.
*/
package jobpool
