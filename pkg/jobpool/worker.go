package jobpool

import (
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// WorkerState is the lifecycle state of a single worker.
type WorkerState int32

const (
	// StateWaiting means the worker is blocked on the queue.
	StateWaiting WorkerState = iota
	// StateExecuting means the worker is running a job.
	StateExecuting
	// StateTerminated means the queue was closed and drained; it is final.
	StateTerminated
)

func (s WorkerState) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateExecuting:
		return "EXECUTING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// worker represents a single worker in the pool.
type worker struct {
	id    int
	pool  *Pool
	log   zerolog.Logger
	state atomic.Int32
}

func newWorker(id int, pool *Pool) *worker {
	return &worker{
		id:   id,
		pool: pool,
		log:  pool.log.With().Int("worker", id).Logger(),
	}
}

func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// run starts a worker and keeps it serving until the queue is closed and
// every queued job has been handed out.
func (w *worker) run() {
	w.log.Info().Msg("worker started")
	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}

	w.loop()
}

// loop pops and executes jobs. A job that calls runtime.Goexit unwinds the
// goroutine past execute; the deferred call then continues the loop on a
// fresh goroutine so the pool keeps its size and the queue still drains.
func (w *worker) loop() {
	drained := false
	defer func() {
		if !drained {
			go w.loop()
			return
		}
		w.finish()
	}()

	for {
		job, ok := w.pool.queue.Pop()
		if !ok {
			break
		}
		w.execute(job)
	}
	drained = true
}

func (w *worker) finish() {
	w.state.Store(int32(StateTerminated))
	if w.pool.config.OnWorkerStop != nil {
		w.pool.config.OnWorkerStop(w.id)
	}
	w.log.Info().Msg("worker terminated")
	w.pool.workerWg.Done()
}

// execute runs one job. A panic is recovered here and never unwinds past
// the worker loop. A job that neither returns nor panics called
// runtime.Goexit; it is counted as aborted.
func (w *worker) execute(job Job) {
	w.state.Store(int32(StateExecuting))
	w.pool.busy.Add(1)
	w.log.Debug().Msg("worker received a job")

	returned := false
	defer func() {
		r := recover()
		switch {
		case r != nil:
			w.pool.panicked.Add(1)
			w.reportPanic(&PanicError{
				WorkerID: w.id,
				Value:    r,
				Stack:    debug.Stack(),
			})
		case returned:
			w.pool.completed.Add(1)
		default:
			w.pool.aborted.Add(1)
			w.log.Error().Msg("job exited its goroutine without returning")
		}

		w.pool.busy.Add(-1)
		w.state.Store(int32(StateWaiting))
	}()

	job()
	returned = true
}

func (w *worker) reportPanic(perr *PanicError) {
	if perr.Textual() {
		w.log.Error().
			Str("panic", perr.Message()).
			Bytes("stack", perr.Stack).
			Msg("job panicked")
	} else {
		w.log.Error().
			Str("panic_type", typeName(perr.Value)).
			Interface("panic_value", perr.Value).
			Bytes("stack", perr.Stack).
			Msg("job panicked with a non-textual payload")
	}

	handler := w.pool.config.PanicHandler
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("panic handler panicked")
		}
	}()
	handler(perr)
}
