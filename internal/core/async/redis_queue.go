package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// RedisQueue is a FIFO list queue (RPUSH / BLPOP) shared by every process
// pointed at the same key. Each process runs its own workers.
type RedisQueue struct {
	rdb     redis.UniversalClient
	key     string
	runner  JobRunner
	logger  *zap.Logger
	workers int
	timeout time.Duration
	poll    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

var _ async.Queue = (*RedisQueue)(nil)

type RedisOption func(*RedisQueue)

func WithRedisWorkers(n int) RedisOption {
	return func(q *RedisQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithRedisProcessTimeout(d time.Duration) RedisOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithPollInterval bounds each BLPOP so workers notice shutdown. Redis
// blocks in whole seconds.
func WithPollInterval(d time.Duration) RedisOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.poll = d
		}
	}
}

func NewRedisQueue(rdb redis.UniversalClient, key string, runner JobRunner, log *zap.Logger, opts ...RedisOption) *RedisQueue {
	q := &RedisQueue{
		rdb:     rdb,
		key:     key,
		runner:  runner,
		logger:  logger.OrNop(log),
		workers: 4,
		timeout: 5 * time.Minute,
		poll:    time.Second,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Start launches the consuming workers. Only the first call has an effect.
func (q *RedisQueue) Start() {
	q.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		q.cancel = cancel
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.consume(ctx, i+1)
		}
	})
}

func (q *RedisQueue) consume(ctx context.Context, workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.redis.worker.started", zap.Int("worker_id", workerID))
	for {
		if ctx.Err() != nil {
			q.logger.Debug("queue.redis.worker.stopped", zap.Int("worker_id", workerID))
			return
		}
		res, err := q.rdb.BLPop(ctx, q.poll, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Warn("queue.redis.pop_failed", zap.Int("worker_id", workerID), zap.Error(err))
			select {
			case <-time.After(q.poll):
			case <-ctx.Done():
			}
			continue
		}

		var job async.Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			q.logger.Error("queue.redis.bad_payload", zap.String("payload", res[1]), zap.Error(err))
			continue
		}
		runJob(q.runner, q.logger, q.timeout, workerID, job)
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job async.Job) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.JobID, err)
	}
	q.logger.Debug("queue.redis.enqueued", zap.String("job_id", job.JobID.String()))
	return nil
}

// Shutdown stops taking new work and waits for in-flight jobs.
func (q *RedisQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
