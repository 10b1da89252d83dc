// Package async holds the background execution primitives: a bounded worker
// queue, a deadline-enforcing task runner and a ticker-driven scheduler.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"
)

// Handler processes one queued item.
type Handler[T any] func(ctx context.Context, item T) error

// Queue feeds items to a fixed pool of workers. Handler errors are logged.
type Queue[T any] struct {
	name    string
	handle  Handler[T]
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan T
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*queueOptions)

type queueOptions struct {
	workers int
	size    int
	timeout time.Duration
}

func WithWorkers(n int) Option {
	return func(o *queueOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(o *queueOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(o *queueOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewQueue starts the workers immediately.
func NewQueue[T any](name string, handle Handler[T], logger *slog.Logger, opts ...Option) *Queue[T] {
	if logger == nil {
		logger = slog.Default()
	}
	o := queueOptions{workers: 2, size: 256, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	q := &Queue[T]{
		name:    name,
		handle:  handle,
		logger:  logger,
		workers: o.workers,
		timeout: o.timeout,
		ch:      make(chan T, o.size),
	}
	q.start()
	return q
}

func (q *Queue[T]) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "queue", q.name, "worker_id", workerID)

				for item := range q.ch {
					q.process(workerID, item)
				}

				q.logger.Debug("worker stopped", "queue", q.name, "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue[T]) process(workerID int, item T) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue handler panicked", "queue", q.name, "worker_id", workerID, "panic", r)
		}
	}()
	if err := q.handle(ctx, item); err != nil {
		q.logger.Error("queue item failed", "queue", q.name, "worker_id", workerID, "error", err)
	}
}

// Enqueue hands item to the workers, blocking while the queue is full.
// It reports false once the queue is shutting down.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "queue", q.name)
		return false
	}
	select {
	case q.ch <- item:
		return true
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "queue", q.name)
	select {
	case q.ch <- item:
		return true
	case <-ctx.Done():
		q.logger.Warn("enqueue abandoned", "queue", q.name, "error", ctx.Err())
		return false
	}
}

// Shutdown stops accepting items and waits for the workers to drain.
func (q *Queue[T]) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context", "queue", q.name)
	case <-done:
		q.logger.Info("queue drained, shutdown complete", "queue", q.name)
	}
}
