// Package queue implements the multi-producer, multi-consumer FIFO that hands
// jobs from submitters to pool workers.
//
// A Queue is unbounded when created with capacity 0 and applies blocking
// backpressure otherwise. Closing a Queue rejects further pushes while leaving
// already queued items poppable, so consumers drain it before observing the
// closed state.
package queue

import (
	"context"
	"fmt"
	"sync"

	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
)

// ErrClosed is returned when pushing to a closed queue.
var ErrClosed = fmt.Errorf("queue closed: %w", jperrors.ErrClosed)

// ErrFull is returned by TryPush when a bounded queue has no free slot.
var ErrFull = fmt.Errorf("queue full: %w", jperrors.ErrCapacityExceeded)

const initialBuffer = 16

// Queue is a mutex-guarded ring buffer. The lock is held only for the
// enqueue or dequeue step itself.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buffer   []T
	head     int
	count    int
	capacity int
	closed   bool
}

// New creates a queue. A capacity of 0 or less means unbounded.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}

	size := initialBuffer
	if capacity > 0 && capacity < size {
		size = capacity
	}

	q := &Queue[T]{
		buffer:   make([]T, size),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q
}

// Push appends value, blocking while a bounded queue is full. It returns
// ErrClosed if the queue is or becomes closed, or ctx.Err() if ctx ends first.
func (q *Queue[T]) Push(ctx context.Context, value T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stop func() bool
	for !q.closed && q.fullLocked() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stop == nil {
			stop = context.AfterFunc(ctx, func() {
				q.mu.Lock()
				q.notFull.Broadcast()
				q.mu.Unlock()
			})
			defer stop()
		}
		q.notFull.Wait()
	}

	if q.closed {
		return ErrClosed
	}

	q.addLocked(value)
	q.notEmpty.Signal()

	return nil
}

// TryPush appends value without blocking.
func (q *Queue[T]) TryPush(value T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.fullLocked() {
		return ErrFull
	}

	q.addLocked(value)
	q.notEmpty.Signal()

	return nil
}

// Pop removes the oldest item, blocking until one is available. The boolean
// is false once the queue is closed and empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if q.count == 0 {
		var zero T
		return zero, false
	}

	value := q.removeLocked()
	q.notFull.Signal()

	return value, true
}

// Close stops the queue from accepting items and wakes every waiter.
// It reports whether this call performed the close.
func (q *Queue[T]) Close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.closed = true

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()

	return true
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the configured capacity; 0 means unbounded.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

func (q *Queue[T]) fullLocked() bool {
	return q.capacity > 0 && q.count >= q.capacity
}

func (q *Queue[T]) addLocked(value T) {
	if q.count == len(q.buffer) {
		q.growLocked()
	}
	q.buffer[(q.head+q.count)%len(q.buffer)] = value
	q.count++
}

func (q *Queue[T]) removeLocked() T {
	var zero T
	value := q.buffer[q.head]
	q.buffer[q.head] = zero // release the reference for the GC
	q.head = (q.head + 1) % len(q.buffer)
	q.count--
	return value
}

func (q *Queue[T]) growLocked() {
	size := len(q.buffer) * 2
	if q.capacity > 0 && size > q.capacity {
		size = q.capacity
	}

	buffer := make([]T, size)
	for i := 0; i < q.count; i++ {
		buffer[i] = q.buffer[(q.head+i)%len(q.buffer)]
	}
	q.buffer = buffer
	q.head = 0
}
