// Package async runs receipt files through the processor on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/core"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one receipt file waiting for a worker.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

// FileProcessor is satisfied by *core.Processor.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (core.Result, error)
}

type ProcessorQueue struct {
	proc    FileProcessor
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

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *ProcessorQueue) { q.metrics = m }
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Info("queue.worker.started", "worker_id", workerID)

	for job := range q.ch {
		q.metrics.QueueDepth(len(q.ch))
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if job.TraceID != "" {
			ctx = common.WithRequestID(ctx, job.TraceID)
		}
		q.logger.Debug("queue.job.start", "worker_id", workerID, "path", job.Path, "status", constants.JobStatusRunning)
		res, err := q.proc.ProcessFile(ctx, job.Path)
		cancel()

		if err != nil {
			q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID,
				"status", constants.JobStatusFailed, "error", err)
			continue
		}
		status := constants.JobStatusParsed
		if res.Recorded {
			status = constants.JobStatusRecorded
		}
		q.logger.Info("queue.job.ok",
			"worker_id", workerID,
			"path", job.Path,
			"trace_id", job.TraceID,
			"status", status,
			"output", res.OutputPath,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}

	q.logger.Info("queue.worker.stopped", "worker_id", workerID)
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.enqueue.backpressure", "path", job.Path, "depth", len(q.ch))
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.metrics.QueueDepth(len(q.ch))
	q.logger.Debug("queue.enqueue.ok", "path", job.Path, "trace_id", job.TraceID, "status", constants.JobStatusQueued)
	return nil
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
