package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
)

func (o *Orchestrator) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.InitialBackoff
	b.MaxInterval = o.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.cfg.MaxAttempts-1)), ctx)
}

// withRetry runs step up to MaxAttempts times. Retryable failures are
// counted on the job row; terminal kinds and stage conflicts stop at once.
// It returns the last step error, or ctx's error when the job was
// interrupted while waiting.
func (o *Orchestrator) withRetry(ctx context.Context, job *entity.IngestionJob, step stageFunc) error {
	attempt := 0
	op := func() error {
		attempt++
		err := step(ctx, job)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, repository.ErrStageConflict) || !common.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if rerr := o.Jobs.RecordAttempt(ctx, job.ID, job.Stage); rerr != nil {
			return backoff.Permanent(rerr)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		o.log.Warn("pipeline.stage.retry",
			zap.String("job_id", job.ID.String()),
			zap.String("stage", string(job.Stage)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.cfg.MaxAttempts),
			zap.String("error_kind", string(common.KindOf(err))),
			zap.Duration("backoff", next),
			zap.Error(err))
	}
	return backoff.RetryNotify(op, o.newBackOff(ctx), notify)
}
