// Package queue defines the contract for enqueuing and consuming intake
// checks.
//
// Implementations may use channels or more advanced structures. The
// service starts with an in-memory bounded queue; a full queue surfaces
// as backpressure to the intake endpoint, never as a dropped check.
package queue

import (
	"context"
	"sync"

	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 100000
	defaultBufferSize    = 100000
)

// Check represents the payload type flowing through the queue.
type Check = model.IntakeCheck

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a check to the queue.
	// Returns false if the queue is full and the check was not enqueued.
	Enqueue(ctx context.Context, c Check) bool

	// Dequeue returns a channel that will receive checks as they become
	// available. The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Check

	// Len returns the current number of queued checks.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new checks can be enqueued and the dequeue
	// channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	checks     chan Check
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	// Buffer never exceeds capacity, Enqueue enforces the cap anyway.
	if q.bufferSize > q.capacity {
		q.bufferSize = q.capacity
	}
	q.checks = make(chan Check, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a check to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Check) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.checks) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.checks <- c:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.checks)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive checks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Check {
	// Wrap the channel to track dequeue metrics.
	dequeueChan := make(chan Check)
	go func() {
		defer close(dequeueChan)
		for check := range q.checks {
			select {
			case dequeueChan <- check:
				metrics.RecordQueueDequeue()
				currentSize := len(q.checks)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued checks.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.checks)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.checks)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
