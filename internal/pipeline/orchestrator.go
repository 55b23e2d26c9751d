// Package pipeline drives ingestion jobs from an uploaded resume to a scored,
// stage-assigned candidate. Every stage commits its output together with the
// stage advance, so a job interrupted anywhere resumes from the last
// committed stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/core/lock"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/extract"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
	"github.com/joseph-ayodele/hiring-pipeline/internal/storage"
)

// ErrJobBusy is returned when another worker owns the job.
var ErrJobBusy = fmt.Errorf("%w: job is being processed by another worker", common.ErrConflict)

// StageAssigner places a completed candidate in the vacancy's first stage.
type StageAssigner interface {
	AssignInitial(ctx context.Context, candidateID uuid.UUID) (*entity.StageMove, error)
}

// Deps are the collaborators of the orchestrator. Embedder may be nil.
type Deps struct {
	Tx         repository.Transactor
	Jobs       repository.IngestionJobRepository
	Candidates repository.CandidateRepository
	Vacancies  repository.VacancyRepository
	Store      storage.ObjectStore
	Extractor  extract.TextExtractor
	Profiles   llm.ProfileExtractor
	Scorer     llm.MatchScorer
	Embedder   llm.Embedder
	Tracker    StageAssigner
	Locker     lock.Locker
	Cache      *BlobCache
}

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// LockTTL must exceed the time a single RunJob may take.
	LockTTL time.Duration
}

type Orchestrator struct {
	Deps
	cfg Config
	log *zap.Logger
}

type stageFunc func(ctx context.Context, job *entity.IngestionJob) error

func New(deps Deps, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = 15 * cfg.InitialBackoff
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Cache == nil {
		deps.Cache = NewBlobCache("")
	}
	return &Orchestrator{Deps: deps, cfg: cfg, log: logger.OrNop(log)}
}

// RunJob drives the job until it completes or fails. A job that is already
// COMPLETED or FAILED is left untouched. When ctx's deadline passes the job
// fails with the retryable kind of its stage so it can be rerun; any other
// cancellation leaves it at its current stage for the next RunJob.
func (o *Orchestrator) RunJob(ctx context.Context, jobID uuid.UUID) error {
	lease, err := o.Locker.Acquire(ctx, lock.JobKey(jobID.String()), o.cfg.LockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		o.log.Info("pipeline.job.busy", zap.String("job_id", jobID.String()))
		return ErrJobBusy
	}
	if err != nil {
		return fmt.Errorf("acquire job lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			o.log.Warn("pipeline.job.unlock_failed", zap.String("job_id", jobID.String()), zap.Error(err))
		}
	}()

	start := time.Now()
	for {
		job, err := o.Jobs.Get(ctx, jobID)
		if err != nil {
			if expired(ctx) {
				return o.expire(ctx, jobID, err)
			}
			return err
		}
		log := o.log.With(zap.String("job_id", job.ID.String()), zap.String("stage", string(job.Stage)))

		if job.Stage.Terminal() {
			log.Debug("pipeline.job.terminal", zap.Duration("elapsed", time.Since(start)))
			return nil
		}
		if job.CancelRequested {
			cancelled := common.KindError(constants.ErrKindCancelled, "cancelled by request", nil)
			return o.fail(ctx, job, cancelled)
		}

		step, retry := o.stage(job.Stage)
		if step == nil {
			return o.fail(ctx, job, common.KindError(constants.ErrKindInternal, fmt.Sprintf("unknown stage %q", job.Stage), nil))
		}

		stageStart := time.Now()
		log.Debug("pipeline.stage.start")
		if retry {
			err = o.withRetry(ctx, job, step)
		} else {
			err = step(ctx, job)
		}
		switch {
		case err == nil:
			log.Info("pipeline.stage.ok", zap.Duration("elapsed", time.Since(stageStart)))
		case errors.Is(err, repository.ErrStageConflict):
			log.Warn("pipeline.stage.conflict", zap.Error(err))
			return err
		case expired(ctx):
			return o.fail(ctx, job, deadlineCause(job.Stage, err))
		case ctx.Err() != nil:
			log.Warn("pipeline.job.interrupted", zap.Error(err))
			return err
		default:
			return o.fail(ctx, job, err)
		}
	}
}

func (o *Orchestrator) stage(s constants.JobStage) (stageFunc, bool) {
	switch s {
	case constants.JobStagePending:
		return o.start, false
	case constants.JobStageDownloading:
		return o.download, true
	case constants.JobStageExtractingText:
		return o.extractText, true
	case constants.JobStageExtractingProfile:
		return o.extractProfile, true
	case constants.JobStageScoring:
		return o.score, true
	}
	return nil, false
}

// fail persists the classified failure and returns it.
func (o *Orchestrator) fail(ctx context.Context, job *entity.IngestionJob, cause error) error {
	kind := common.KindOf(cause)
	msg := cause.Error()
	if err := o.Jobs.Fail(context.WithoutCancel(ctx), job.ID, job.Stage, kind, msg); err != nil {
		o.log.Error("pipeline.job.fail_persist_failed", zap.String("job_id", job.ID.String()), zap.Error(err))
		return errors.Join(cause, err)
	}
	o.log.Warn("pipeline.job.failed",
		zap.String("job_id", job.ID.String()),
		zap.String("stage", string(job.Stage)),
		zap.String("error_kind", string(kind)),
		zap.String("error", logger.TruncateForLog(msg, 300)))
	return cause
}

func expired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// deadlineCause classifies a job that ran out of time. A retryable kind seen
// on the last try is kept; otherwise the stage decides.
func deadlineCause(stage constants.JobStage, err error) error {
	kind := common.KindOf(err)
	if !kind.Retryable() {
		switch stage {
		case constants.JobStageExtractingProfile, constants.JobStageScoring:
			kind = constants.ErrKindInferenceUnavailable
		default:
			kind = constants.ErrKindStorageUnavailable
		}
	}
	return common.KindError(kind, fmt.Sprintf("job deadline exceeded during %s", stage), err)
}

// expire fails a job whose deadline passed before its row could be read.
func (o *Orchestrator) expire(ctx context.Context, jobID uuid.UUID, cause error) error {
	job, err := o.Jobs.Get(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return errors.Join(cause, err)
	}
	if job.Stage.Terminal() {
		return cause
	}
	return o.fail(ctx, job, deadlineCause(job.Stage, cause))
}

// Rerun resets a FAILED job to PENDING on the same row. Jobs in any other
// stage are rejected.
func (o *Orchestrator) Rerun(ctx context.Context, jobID uuid.UUID) error {
	err := o.Jobs.ResetFailed(ctx, jobID)
	if errors.Is(err, repository.ErrStageConflict) {
		job, gerr := o.Jobs.Get(ctx, jobID)
		if gerr != nil {
			return gerr
		}
		return fmt.Errorf("%w: job %s is %s, only FAILED jobs can be rerun", common.ErrInvalidInput, jobID, job.Stage)
	}
	return err
}

// Cancel flags the job; the flag is honoured before the next stage starts.
// It reports false when the job was already terminal.
func (o *Orchestrator) Cancel(ctx context.Context, jobID uuid.UUID) (bool, error) {
	if _, err := o.Jobs.Get(ctx, jobID); err != nil {
		return false, err
	}
	return o.Jobs.RequestCancel(ctx, jobID)
}
