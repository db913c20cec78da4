package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-extract/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to run through the pipeline.
type Job struct {
	Path        string
	HashHex     string
	SubmittedAt time.Time
}

// Handler processes a single job. Its context carries the per-job timeout.
type Handler func(ctx context.Context, job Job) error

// Queue is a bounded worker pool. Enqueue blocks when the buffer is full.
type Queue struct {
	handle  Handler
	logger  *slog.Logger
	metrics *metrics.Metrics
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithMetrics records queue depth, active workers and job results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

func NewQueue(handle Handler, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		handle:  handle,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *Queue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("worker started", "worker_id", workerID)

	for job := range q.ch {
		q.metrics.SetQueueDepth(len(q.ch))
		q.metrics.JobStarted()
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.run(ctx, job)
		cancel()
		q.metrics.JobFinished(err)

		if err != nil {
			q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
		} else {
			q.logger.Info("processed file successfully",
				"worker_id", workerID,
				"path", job.Path,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}

	q.logger.Debug("worker stopped", "worker_id", workerID)
}

// run keeps a panicking handler from taking its worker down.
func (q *Queue) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("handler panic")
			q.logger.Error("handler panicked", "path", job.Path, "panic", r)
		}
	}()
	return q.handle(ctx, job)
}

// Enqueue adds a job, waiting for buffer space until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
		q.metrics.SetQueueDepth(len(q.ch))
		q.logger.Debug("queued file for processing", "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		q.metrics.SetQueueDepth(len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued jobs to drain or ctx to end.
func (q *Queue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
