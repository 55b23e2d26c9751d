// Package ingest is the job intake used by the transport layer: it records
// ingestion jobs and hands them to the work queue. It never runs a stage.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
	"github.com/joseph-ayodele/hiring-pipeline/internal/storage"
)

// MaxResumeBytes bounds a single upload.
const MaxResumeBytes = 20 << 20

// JobController is the part of the orchestrator intake drives directly.
type JobController interface {
	Rerun(ctx context.Context, jobID uuid.UUID) error
	Cancel(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// Deps are the collaborators of the intake service.
type Deps struct {
	Tx         repository.Transactor
	Vacancies  repository.VacancyRepository
	Candidates repository.CandidateRepository
	Jobs       repository.IngestionJobRepository
	Store      storage.ObjectStore
	Queue      async.Queue
	Control    JobController
	PresignTTL time.Duration
}

// Service handles ingestion business logic.
type Service struct {
	Deps
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(deps Deps, log *zap.Logger) *Service {
	if deps.PresignTTL <= 0 {
		deps.PresignTTL = 15 * time.Minute
	}
	return &Service{
		Deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger.OrNop(log),
	}
}

// EnqueueRequest describes a resume already stored under BlobKey.
type EnqueueRequest struct {
	CandidateID string `validate:"required,uuid"`
	VacancyID   string `validate:"required,uuid"`
	BlobKey     string `validate:"required,max=1024"`
	MediaType   string `validate:"required"`
}

// EnqueueResult reports the job driving the candidate's resume. Deduplicated
// is set when an active job already existed and no new job was created.
type EnqueueResult struct {
	JobID        uuid.UUID
	Deduplicated bool
}

// JobStatus is the externally visible state of a job.
type JobStatus struct {
	JobID        uuid.UUID
	CandidateID  uuid.UUID
	Stage        constants.JobStage
	ErrorKind    constants.ErrorKind
	ErrorMessage string
	Attempts     int
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

func (s *Service) checkRequest(req any) error {
	if err := s.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", common.ErrInvalidInput, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return nil
}

// EnqueueIngestionJob records a PENDING job and pushes it onto the queue. A
// candidate with a job still in flight gets that job back instead.
func (s *Service) EnqueueIngestionJob(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if err := s.checkRequest(req); err != nil {
		return EnqueueResult{}, err
	}
	if !storage.ValidKey(req.BlobKey) {
		return EnqueueResult{}, fmt.Errorf("%w: invalid blob key %q", common.ErrInvalidInput, req.BlobKey)
	}
	candidateID := uuid.MustParse(req.CandidateID)
	vacancyID := uuid.MustParse(req.VacancyID)
	mediaType := constants.NormalizeMediaType(req.MediaType)

	var (
		res EnqueueResult
		job *entity.IngestionJob
	)
	err := s.Tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.Vacancies.Exists(ctx, vacancyID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: vacancy %s", common.ErrNotFound, vacancyID)
		}
		if err := s.lockCandidate(ctx, candidateID, vacancyID); err != nil {
			return err
		}
		active, err := s.Jobs.FindActiveForCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		if active != nil {
			res = EnqueueResult{JobID: active.ID, Deduplicated: true}
			return nil
		}
		if err := s.Candidates.Ensure(ctx, candidateID, vacancyID, req.BlobKey); err != nil {
			return err
		}
		job = &entity.IngestionJob{
			CandidateID:   candidateID,
			VacancyID:     vacancyID,
			SourceBlobKey: req.BlobKey,
			MediaType:     mediaType,
		}
		if err := s.Jobs.Create(ctx, job); err != nil {
			return err
		}
		res = EnqueueResult{JobID: job.ID}
		return nil
	})
	if err != nil {
		s.log.Warn("ingest.enqueue.rejected",
			zap.String("candidate_id", req.CandidateID),
			zap.String("vacancy_id", req.VacancyID),
			zap.Error(err))
		return EnqueueResult{}, err
	}
	if res.Deduplicated {
		s.log.Info("ingest.enqueue.deduplicated",
			zap.String("candidate_id", candidateID.String()),
			zap.String("job_id", res.JobID.String()))
		return res, nil
	}

	// The job row is durable; a failed push is picked up by the recovery sweep.
	if err := s.push(ctx, job.ID); err != nil {
		s.log.Error("ingest.enqueue.push_failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	s.log.Info("ingest.enqueue.ok",
		zap.String("job_id", job.ID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.String("media_type", mediaType))
	return res, nil
}

// lockCandidate holds the candidate row for the rest of the transaction,
// creating it first when missing, so submissions for one candidate take turns
// at the active job check.
func (s *Service) lockCandidate(ctx context.Context, candidateID, vacancyID uuid.UUID) error {
	owner, err := s.Candidates.LockForUpdate(ctx, candidateID)
	if common.IsNotFound(err) {
		if err := s.Candidates.Ensure(ctx, candidateID, vacancyID, ""); err != nil {
			return err
		}
		owner, err = s.Candidates.LockForUpdate(ctx, candidateID)
	}
	if err != nil {
		return err
	}
	if owner != vacancyID {
		return fmt.Errorf("%w: candidate %s belongs to vacancy %s", common.ErrInvalidInput, candidateID, owner)
	}
	return nil
}

func (s *Service) push(ctx context.Context, jobID uuid.UUID) error {
	trace := common.RequestIDFromContext(ctx)
	if trace == "" {
		trace = uuid.NewString()
	}
	return s.Queue.Enqueue(ctx, async.Job{
		JobID:       jobID,
		SubmittedAt: time.Now().UTC(),
		TraceID:     trace,
	})
}

// UploadRequest carries resume bytes straight from a client.
type UploadRequest struct {
	CandidateID string `validate:"omitempty,uuid"`
	VacancyID   string `validate:"required,uuid"`
	Filename    string `validate:"max=255"`
	MediaType   string
	Data        []byte `validate:"required"`
}

// UploadResult is returned once the blob is stored and the job enqueued.
type UploadResult struct {
	EnqueueResult
	CandidateID uuid.UUID
	BlobKey     string
	MediaType   string
}

// UploadResume stores the file under a fresh key and enqueues its job. A
// missing candidate id creates a new candidate.
func (s *Service) UploadResume(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if err := s.checkRequest(req); err != nil {
		return UploadResult{}, err
	}
	if len(req.Data) > MaxResumeBytes {
		return UploadResult{}, fmt.Errorf("%w: resume exceeds %d bytes", common.ErrInvalidInput, MaxResumeBytes)
	}
	candidateID := uuid.New()
	if req.CandidateID != "" {
		candidateID = uuid.MustParse(req.CandidateID)
	}

	mediaType := ResolveUploadMediaType(req.Data, req.MediaType, req.Filename)
	key := storage.ResumeKey(candidateID, constants.ExtForMediaType(mediaType))
	if err := s.Store.Put(ctx, key, req.Data, mediaType); err != nil {
		s.log.Error("ingest.upload.store_failed", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return UploadResult{}, err
	}
	s.log.Info("ingest.upload.stored",
		zap.String("candidate_id", candidateID.String()),
		zap.String("blob_key", key),
		zap.String("media_type", mediaType),
		zap.Int("bytes", len(req.Data)))

	res, err := s.EnqueueIngestionJob(ctx, EnqueueRequest{
		CandidateID: candidateID.String(),
		VacancyID:   req.VacancyID,
		BlobKey:     key,
		MediaType:   mediaType,
	})
	if err != nil || res.Deduplicated {
		if derr := s.Store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("ingest.upload.cleanup_failed", zap.String("blob_key", key), zap.Error(derr))
		}
	}
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{EnqueueResult: res, CandidateID: candidateID, BlobKey: key, MediaType: mediaType}, nil
}

func (s *Service) GetJobStatus(ctx context.Context, jobID uuid.UUID) (JobStatus, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return JobStatus{}, err
	}
	st := JobStatus{
		JobID:       job.ID,
		CandidateID: job.CandidateID,
		Stage:       job.Stage,
		ErrorKind:   job.ErrorKind,
		Attempts:    job.Attempts,
		UpdatedAt:   job.UpdatedAt,
		FinishedAt:  job.FinishedAt,
	}
	if job.ErrorMessage != nil {
		st.ErrorMessage = *job.ErrorMessage
	}
	return st, nil
}

// RerunJob resets a FAILED job and queues it again.
func (s *Service) RerunJob(ctx context.Context, jobID uuid.UUID) error {
	if err := s.Control.Rerun(ctx, jobID); err != nil {
		return err
	}
	if err := s.push(ctx, jobID); err != nil {
		s.log.Error("ingest.rerun.push_failed", zap.String("job_id", jobID.String()), zap.Error(err))
		return err
	}
	s.log.Info("ingest.rerun.ok", zap.String("job_id", jobID.String()))
	return nil
}

// CancelJob requests cancellation; it reports false for finished jobs.
func (s *Service) CancelJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	ok, err := s.Control.Cancel(ctx, jobID)
	if err != nil {
		return false, err
	}
	s.log.Info("ingest.cancel.requested", zap.String("job_id", jobID.String()), zap.Bool("flagged", ok))
	return ok, nil
}

// ResumeURL presigns a download link for the job's source blob.
func (s *Service) ResumeURL(ctx context.Context, jobID uuid.UUID, ttl time.Duration) (string, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = s.PresignTTL
	}
	return s.Store.PresignedGetURL(ctx, job.SourceBlobKey, ttl)
}
