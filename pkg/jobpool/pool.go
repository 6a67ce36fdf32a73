package jobpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/jobpool/internal/queue"
	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
	"github.com/vnykmshr/jobpool/pkg/common/validation"
)

const module = "jobpool"

// ErrPoolShuttingDown is returned by Submit once Shutdown has begun. The
// rejected job was neither queued nor executed.
var ErrPoolShuttingDown = fmt.Errorf("pool shutting down: %w", jperrors.ErrClosed)

// Job is a unit of work. It takes no arguments and returns nothing; its only
// observable result is its side effects.
type Job func()

// Submitter accepts jobs for background execution.
type Submitter interface {
	Submit(job Job) error
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	// Submitted counts jobs accepted by Submit.
	Submitted int64

	// Rejected counts jobs refused because the pool was shutting down.
	Rejected int64

	// Completed counts jobs that returned normally.
	Completed int64

	// Panicked counts jobs whose panic was recovered by a worker.
	Panicked int64

	// Aborted counts jobs that called runtime.Goexit. Their worker goroutine
	// is replaced.
	Aborted int64
}

// Config holds configuration options for creating a pool.
type Config struct {
	// Size is the number of workers. Must be greater than 0.
	Size int

	// QueueSize bounds the number of queued jobs. 0 means unbounded, in
	// which case Submit never blocks.
	QueueSize int

	// Name identifies the pool in logs and metrics. A random UUID is used
	// when empty.
	Name string

	// Logger receives lifecycle and failure events. Nil disables logging.
	Logger *zerolog.Logger

	// OnWorkerStart is called from the worker goroutine before it takes
	// its first job.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called from the worker goroutine after it observed
	// the closed and drained queue.
	OnWorkerStop func(workerID int)

	// PanicHandler is called for every recovered job panic, after it has
	// been logged. A panicking handler is itself recovered.
	PanicHandler func(err *PanicError)
}

// Validate checks the configuration. A pool without workers would accept
// jobs it can never run, so Size 0 is rejected.
func (c Config) Validate() error {
	if err := validation.ValidatePositive(module, "size", c.Size); err != nil {
		return err
	}
	return validation.ValidateNonNegative(module, "queue_size", c.QueueSize)
}

// Pool runs jobs on a fixed set of worker goroutines fed by a shared queue.
type Pool struct {
	config Config
	name   string
	log    zerolog.Logger

	queue    *queue.Queue[Job]
	workers  []*worker
	workerWg sync.WaitGroup

	shutdownOnce sync.Once
	shuttingDown atomic.Bool
	done         chan struct{}

	busy      atomic.Int64
	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	aborted   atomic.Int64
}

// New creates a pool with size workers and an unbounded queue.
func New(size int) (*Pool, error) {
	return NewWithConfig(Config{Size: size})
}

// MustNew is like New but panics on an invalid size.
func MustNew(size int) *Pool {
	p, err := New(size)
	if err != nil {
		panic(err)
	}
	return p
}

// NewWithConfig creates a pool and starts all of its workers.
func NewWithConfig(config Config) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	name := config.Name
	if name == "" {
		name = uuid.New().String()
	}

	log := zerolog.Nop()
	if config.Logger != nil {
		log = *config.Logger
	}

	p := &Pool{
		config: config,
		name:   name,
		log:    log.With().Str("pool", name).Logger(),
		queue:  queue.New[Job](config.QueueSize),
		done:   make(chan struct{}),
	}

	p.workers = make([]*worker, config.Size)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
	}
	p.workerWg.Add(len(p.workers))
	for _, w := range p.workers {
		go w.run()
	}

	p.log.Info().
		Int("workers", config.Size).
		Int("queue_size", config.QueueSize).
		Msg("pool started")

	return p, nil
}

// Submit queues job for execution by exactly one worker. With a bounded
// queue it blocks until there is room. It fails with ErrPoolShuttingDown once
// Shutdown has begun; the caller keeps the job in that case.
//
// A nil error means the job was accepted, not that it ran successfully.
func (p *Pool) Submit(job Job) error {
	return p.SubmitWithContext(context.Background(), job)
}

// SubmitWithContext is Submit with a bound on how long it may wait for queue
// space. The context does not reach the job itself.
func (p *Pool) SubmitWithContext(ctx context.Context, job Job) error {
	if job == nil {
		return jperrors.NewValidationError(module, "job", nil, "cannot be nil")
	}
	if p.shuttingDown.Load() {
		p.rejected.Add(1)
		return ErrPoolShuttingDown
	}

	return p.accept(p.queue.Push(ctx, job))
}

// TrySubmit is Submit without blocking. On a full bounded queue it returns an
// error matching errors.ErrCapacityExceeded.
func (p *Pool) TrySubmit(job Job) error {
	if job == nil {
		return jperrors.NewValidationError(module, "job", nil, "cannot be nil")
	}
	if p.shuttingDown.Load() {
		p.rejected.Add(1)
		return ErrPoolShuttingDown
	}

	return p.accept(p.queue.TryPush(job))
}

func (p *Pool) accept(err error) error {
	switch {
	case err == nil:
		p.submitted.Add(1)
		return nil
	case jperrors.IsClosed(err):
		p.rejected.Add(1)
		return ErrPoolShuttingDown
	default:
		return err
	}
}

// Shutdown stops accepting jobs, lets the workers drain every job that was
// already accepted and waits for all of them to terminate. Later calls wait
// for the same completion. Calling Shutdown from inside a job deadlocks.
func (p *Pool) Shutdown() {
	p.beginShutdown()
	<-p.done
}

// ShutdownWithContext is Shutdown with a bound on the wait. If ctx ends first
// its error is returned, also matching errors.ErrTimeout when the deadline
// passed; the drain keeps going in the background and Done reports when it
// is finished.
func (p *Pool) ShutdownWithContext(ctx context.Context) error {
	p.beginShutdown()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("waiting for %d workers: %w: %w", p.config.Size, jperrors.ErrTimeout, ctx.Err())
		}
		return fmt.Errorf("waiting for %d workers: %w", p.config.Size, ctx.Err())
	}
}

// Close implements io.Closer. It always returns nil.
func (p *Pool) Close() error {
	p.Shutdown()
	return nil
}

// Done returns a channel that is closed once every worker has terminated.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

func (p *Pool) beginShutdown() {
	p.shutdownOnce.Do(func() {
		p.shuttingDown.Store(true)
		p.log.Info().Int("queued", p.queue.Len()).Msg("pool shutting down")

		p.queue.Close()

		go func() {
			p.workerWg.Wait()
			stats := p.Stats()
			p.log.Info().
				Int64("completed", stats.Completed).
				Int64("panicked", stats.Panicked).
				Int64("aborted", stats.Aborted).
				Msg("all workers terminated")
			close(p.done)
		}()
	})
}

// Name returns the pool name used in logs and metrics.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// QueueLen returns the number of accepted jobs no worker has picked up yet.
func (p *Pool) QueueLen() int {
	return p.queue.Len()
}

// Busy returns the number of workers currently executing a job.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Aborted:   p.aborted.Load(),
	}
}

// WorkerStates returns the state of every worker, indexed by worker id.
func (p *Pool) WorkerStates() []WorkerState {
	states := make([]WorkerState, len(p.workers))
	for i, w := range p.workers {
		states[i] = w.State()
	}
	return states
}
