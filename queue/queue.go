package queue

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned by Enqueue once the queue has been closed.
	ErrClosed = errors.New("queue: closed")
	// ErrFull is returned by Enqueue when a bounded queue is at capacity.
	ErrFull = errors.New("queue: full")
)

// Queue is a goroutine-safe FIFO queue with an end-of-stream marker.
// Enqueue never blocks. Dequeue blocks until an item is available or the
// queue is closed and drained, in which case it returns io.EOF.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	closed   bool
	capacity int
	// ready holds a token while items are pending or the queue is closed.
	ready chan struct{}
}

// New creates an unbounded Queue.
func New[T any]() *Queue[T] {
	return NewBounded[T](0)
}

// NewBounded creates a Queue that rejects Enqueue with ErrFull once it holds
// capacity items. A capacity <= 0 means unbounded.
func NewBounded[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		items:    []T{},
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Enqueue adds an element to the end of the queue.
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return ErrFull
	}
	q.items = append(q.items, item)
	q.signal()
	return nil
}

// Close marks the end of the stream. Items enqueued before Close are still
// delivered; every dequeue after them reports io.EOF. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.signal()
}

// Dequeue removes and returns the front element, blocking while the queue is
// empty and open.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		item, ok, err := q.TryDequeue()
		if ok || err != nil {
			return item, err
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryDequeue removes and returns the front element without blocking.
// The boolean is false when the queue is momentarily empty; io.EOF is
// returned once the queue is closed and drained.
func (q *Queue[T]) TryDequeue() (T, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		if q.closed {
			q.signal()
			return zero, false, io.EOF
		}
		return zero, false, nil
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return item, true, nil
}

// Peek returns the front element without removing it from the queue.
// The boolean indicates whether an element was found (false if the queue is empty).
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty returns true if the queue is empty.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// signal leaves a wake-up token for a blocked Dequeue. Caller holds q.mu.
func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
