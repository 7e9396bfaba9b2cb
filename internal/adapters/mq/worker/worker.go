// Package worker runs the asynchronous automated-screening pipeline:
// workers pull intake checks off the queue, test the audio metadata
// against the configured bounds, and append a system screening record
// for anything out of bounds.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/screening"
	"github.com/wikimedia-contest/jury/pkg/logger"
	"github.com/wikimedia-contest/jury/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Check abstracts what workers read off the queue.
type Check = model.IntakeCheck

// Recorder accepts the system screening records workers produce.
type Recorder interface {
	RecordSystemScreening(ctx context.Context, submissionID string, flags []string) error
}

// Queue defines how workers receive intake checks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Check
}

// Worker processes intake checks until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing intake checks.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	limits   screening.AudioLimits
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, limits screening.AudioLimits, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		limits:   limits,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	checkChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case check, ok := <-checkChan:
			if !ok {
				return
			}

			// Append failures are logged and the loop keeps going; a
			// lost system check never blocks human screening.
			if err := w.processCheck(ctx, check); err != nil {
				w.logger.Error(ctx, "error processing intake check", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processCheck handles a single intake check.
func (w *InMemoryWorker) processCheck(ctx context.Context, check Check) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	flags := screening.CheckAudio(check.Audio, w.limits)
	if len(flags) == 0 {
		return nil
	}

	metrics.RecordIntakeCheckFlagged()
	w.logger.Info(ctx, "intake check flagged submission",
		logger.String("submission_id", check.SubmissionID),
		logger.Int("flag_count", len(flags)),
	)

	if err := w.recorder.RecordSystemScreening(ctx, check.SubmissionID, flags); err != nil {
		metrics.RecordIntakeCheckError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("recording system screening for %s: %w", check.SubmissionID, err)
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	recorder Recorder

	// Shutdown control
	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, recorder Recorder, limits screening.AudioLimits) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		recorder: recorder,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			recorder,
			limits,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop stops all workers, waiting briefly for each.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.shutdown:
		default:
			close(worker.shutdown)
		}
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown drains the queue and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the queue first so workers drain the remaining checks.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerActiveCount(0)
	return nil
}
