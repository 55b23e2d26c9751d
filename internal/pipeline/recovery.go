package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// StaleLister finds non-terminal jobs nobody has touched since before.
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}

// Sweeper pushes abandoned jobs back onto the queue. A job is abandoned when
// its row has not changed for StaleAfter, which is longer than any single
// RunJob may hold it; the job lock makes a duplicate delivery harmless.
type Sweeper struct {
	jobs       StaleLister
	queue      async.Queue
	staleAfter time.Duration
	interval   time.Duration
	log        *zap.Logger
}

func NewSweeper(jobs StaleLister, queue async.Queue, staleAfter, interval time.Duration, log *zap.Logger) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if interval <= 0 {
		interval = staleAfter / 2
	}
	return &Sweeper{jobs: jobs, queue: queue, staleAfter: staleAfter, interval: interval, log: logger.OrNop(log)}
}

// Requeue enqueues every non-terminal job last updated before the cutoff and
// returns how many were pushed.
func (s *Sweeper) Requeue(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.jobs.ListStale(ctx, before, 0)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, async.Job{JobID: id, SubmittedAt: time.Now().UTC()}); err != nil {
			s.log.Warn("pipeline.recovery.enqueue_failed", zap.String("job_id", id.String()), zap.Error(err))
			continue
		}
		pushed++
	}
	if pushed > 0 {
		s.log.Info("pipeline.recovery.requeued", zap.Int("jobs", pushed), zap.Time("before", before))
	}
	return pushed, nil
}

// Run sweeps every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Requeue(ctx, time.Now().Add(-s.staleAfter)); err != nil && ctx.Err() == nil {
				s.log.Warn("pipeline.recovery.sweep_failed", zap.Error(err))
			}
		}
	}
}
