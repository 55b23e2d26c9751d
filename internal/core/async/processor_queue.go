package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// JobRunner drives one ingestion job to a terminal stage or a retry point.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uuid.UUID) error
}

type ProcessorQueue struct {
	runner  JobRunner
	logger  *zap.Logger
	workers int
	timeout time.Duration

	ch   chan async.Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

var _ async.Queue = (*ProcessorQueue)(nil)

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
			q.ch = make(chan async.Job, n)
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

func NewProcessorQueue(runner JobRunner, log *zap.Logger, opts ...Option) *ProcessorQueue {
	q := &ProcessorQueue{
		runner:  runner,
		logger:  logger.OrNop(log),
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan async.Job, 256),
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
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", zap.Int("worker_id", workerID))

				for job := range q.ch {
					runJob(q.runner, q.logger, q.timeout, workerID, job)
				}

				q.logger.Debug("queue.worker.stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

// runJob runs one job under its own timeout, detached from the enqueuer.
func runJob(runner JobRunner, log *zap.Logger, timeout time.Duration, workerID int, job async.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = common.WithJobID(ctx, job.JobID.String())

	fields := []zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.JobID.String()),
		zap.Duration("queued_for", time.Since(job.SubmittedAt)),
	}
	if job.TraceID != "" {
		fields = append(fields, zap.String("trace_id", job.TraceID))
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	if err := runner.RunJob(ctx, job.JobID); err != nil {
		log.Error("queue.job.failed", append(fields, zap.Error(err))...)
		return
	}
	log.Info("queue.job.done", fields...)
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", zap.String("job_id", job.JobID.String()))
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", zap.String("job_id", job.JobID.String()))
		return nil
	default:
	}
	q.logger.Warn("queue.full.backpressure", zap.String("job_id", job.JobID.String()))
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

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
		q.logger.Info("queue.shutdown.drained")
	}
}

// JobRunnerFunc adapts a function to JobRunner.
type JobRunnerFunc func(ctx context.Context, jobID uuid.UUID) error

func (f JobRunnerFunc) RunJob(ctx context.Context, jobID uuid.UUID) error { return f(ctx, jobID) }
