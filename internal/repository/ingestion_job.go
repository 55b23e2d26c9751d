package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
)

// ErrStageConflict is returned when a conditional stage update finds the job
// in a different stage than expected.
var ErrStageConflict = fmt.Errorf("%w: job stage changed concurrently", common.ErrConflict)

type IngestionJobRepository interface {
	Create(ctx context.Context, job *entity.IngestionJob) error
	Get(ctx context.Context, id uuid.UUID) (*entity.IngestionJob, error)
	FindActiveForCandidate(ctx context.Context, candidateID uuid.UUID) (*entity.IngestionJob, error)
	// ListActive returns non-terminal job ids, oldest first.
	ListActive(ctx context.Context, limit int) ([]uuid.UUID, error)
	// ListStale returns non-terminal job ids whose row has not changed since
	// before, oldest first.
	ListStale(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
	// Advance moves the job from one stage to the next, optionally storing the
	// extracted text in the same statement. attempts resets to 0.
	Advance(ctx context.Context, id uuid.UUID, from, to constants.JobStage, rawText *string) error
	RecordAttempt(ctx context.Context, id uuid.UUID, stage constants.JobStage) error
	Fail(ctx context.Context, id uuid.UUID, from constants.JobStage, kind constants.ErrorKind, message string) error
	ResetFailed(ctx context.Context, id uuid.UUID) error
	RequestCancel(ctx context.Context, id uuid.UUID) (bool, error)
	CountByStage(ctx context.Context) (map[constants.JobStage]int, error)
}

type ingestionJobRepo struct {
	db  *DB
	log *zap.Logger
}

func NewIngestionJobRepository(db *DB, log *zap.Logger) IngestionJobRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &ingestionJobRepo{db: db, log: log}
}

var jobColumns = []string{
	"id", "candidate_id", "vacancy_id", "source_blob_key", "media_type", "stage",
	"raw_text", "error_kind", "error_message", "attempts", "cancel_requested",
	"created_at", "updated_at", "finished_at",
}

func scanJob(rows *entsql.Rows) (*entity.IngestionJob, error) {
	var (
		j            entity.IngestionJob
		stage        string
		rawText      stdsql.NullString
		errorKind    stdsql.NullString
		errorMessage stdsql.NullString
		finishedAt   stdsql.NullTime
	)
	if err := rows.Scan(
		&j.ID, &j.CandidateID, &j.VacancyID, &j.SourceBlobKey, &j.MediaType, &stage,
		&rawText, &errorKind, &errorMessage, &j.Attempts, &j.CancelRequested,
		&j.CreatedAt, &j.UpdatedAt, &finishedAt,
	); err != nil {
		return nil, err
	}
	j.Stage = constants.JobStage(stage)
	j.RawText = strPtr(rawText)
	j.ErrorKind = constants.ErrorKind(errorKind.String)
	j.ErrorMessage = strPtr(errorMessage)
	j.FinishedAt = timePtr(finishedAt)
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return &j, nil
}

func (r *ingestionJobRepo) Create(ctx context.Context, job *entity.IngestionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Stage == "" {
		job.Stage = constants.JobStagePending
	}
	ts := now()
	job.CreatedAt, job.UpdatedAt = ts, ts

	q := r.db.builder().Insert("ingestion_jobs").
		Columns("id", "candidate_id", "vacancy_id", "source_blob_key", "media_type", "stage", "attempts", "cancel_requested", "created_at", "updated_at").
		Values(job.ID, job.CandidateID, job.VacancyID, job.SourceBlobKey, job.MediaType, string(job.Stage), 0, false, ts, ts)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.log.Error("repository.job.create_failed", zap.String("candidate_id", job.CandidateID.String()), zap.Error(err))
		return fmt.Errorf("%w: create ingestion job: %v", common.ErrDatabase, err)
	}
	r.log.Info("repository.job.created",
		zap.String("job_id", job.ID.String()),
		zap.String("candidate_id", job.CandidateID.String()),
		zap.String("media_type", job.MediaType))
	return nil
}

func (r *ingestionJobRepo) selectOne(ctx context.Context, q *entsql.Selector) (*entity.IngestionJob, error) {
	var job *entity.IngestionJob
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		j, err := scanJob(rows)
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query ingestion job: %v", common.ErrDatabase, err)
	}
	return job, nil
}

func (r *ingestionJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.IngestionJob, error) {
	q := r.db.builder().Select(jobColumns...).
		From(entsql.Table("ingestion_jobs")).
		Where(entsql.EQ("id", id))
	job, err := r.selectOne(ctx, q)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: ingestion job %s", common.ErrNotFound, id)
	}
	return job, nil
}

// FindActiveForCandidate returns the newest non-terminal job of a candidate, or nil.
func (r *ingestionJobRepo) FindActiveForCandidate(ctx context.Context, candidateID uuid.UUID) (*entity.IngestionJob, error) {
	q := r.db.builder().Select(jobColumns...).
		From(entsql.Table("ingestion_jobs")).
		Where(entsql.And(
			entsql.EQ("candidate_id", candidateID),
			entsql.NotIn("stage", string(constants.JobStageCompleted), string(constants.JobStageFailed)),
		)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1)
	return r.selectOne(ctx, q)
}

func (r *ingestionJobRepo) ListActive(ctx context.Context, limit int) ([]uuid.UUID, error) {
	q := r.db.builder().Select("id").
		From(entsql.Table("ingestion_jobs")).
		Where(entsql.NotIn("stage", string(constants.JobStageCompleted), string(constants.JobStageFailed))).
		OrderBy("created_at")
	if limit > 0 {
		q.Limit(limit)
	}
	var ids []uuid.UUID
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list active jobs: %v", common.ErrDatabase, err)
	}
	return ids, nil
}

// ListStale compares timestamps after scanning; SQLite keeps them as text.
func (r *ingestionJobRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	q := r.db.builder().Select("id", "updated_at").
		From(entsql.Table("ingestion_jobs")).
		Where(entsql.NotIn("stage", string(constants.JobStageCompleted), string(constants.JobStageFailed))).
		OrderBy("updated_at")
	var ids []uuid.UUID
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		var (
			id      uuid.UUID
			updated time.Time
		)
		if err := rows.Scan(&id, &updated); err != nil {
			return err
		}
		if updated.Before(before) && (limit <= 0 || len(ids) < limit) {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list stale jobs: %v", common.ErrDatabase, err)
	}
	return ids, nil
}

func (r *ingestionJobRepo) Advance(ctx context.Context, id uuid.UUID, from, to constants.JobStage, rawText *string) error {
	if to.Rank() <= from.Rank() || to == constants.JobStageFailed {
		return fmt.Errorf("%w: cannot advance %s to %s", common.ErrInvalidInput, from, to)
	}
	ts := now()
	q := r.db.builder().Update("ingestion_jobs").
		Set("stage", string(to)).
		Set("attempts", 0).
		Set("updated_at", ts).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("stage", string(from))))
	if rawText != nil {
		q.Set("raw_text", *rawText)
	}
	if to == constants.JobStageCompleted {
		q.Set("finished_at", ts)
	}
	n, err := r.db.exec(ctx, q)
	if err != nil {
		r.log.Error("repository.job.advance_failed", zap.String("job_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: advance job: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return ErrStageConflict
	}
	r.log.Debug("repository.job.advanced",
		zap.String("job_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func (r *ingestionJobRepo) RecordAttempt(ctx context.Context, id uuid.UUID, stage constants.JobStage) error {
	q := r.db.builder().Update("ingestion_jobs").
		Add("attempts", 1).
		Set("updated_at", now()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("stage", string(stage))))
	n, err := r.db.exec(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: record attempt: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return ErrStageConflict
	}
	return nil
}

func (r *ingestionJobRepo) Fail(ctx context.Context, id uuid.UUID, from constants.JobStage, kind constants.ErrorKind, message string) error {
	ts := now()
	q := r.db.builder().Update("ingestion_jobs").
		Set("stage", string(constants.JobStageFailed)).
		Set("error_kind", string(kind)).
		Set("error_message", message).
		Set("updated_at", ts).
		Set("finished_at", ts).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("stage", string(from))))
	n, err := r.db.exec(ctx, q)
	if err != nil {
		r.log.Error("repository.job.fail_failed", zap.String("job_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: fail job: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return ErrStageConflict
	}
	r.log.Warn("repository.job.failed",
		zap.String("job_id", id.String()),
		zap.String("stage", string(from)),
		zap.String("error_kind", string(kind)))
	return nil
}

// ResetFailed puts a FAILED job back to PENDING on the same row.
func (r *ingestionJobRepo) ResetFailed(ctx context.Context, id uuid.UUID) error {
	q := r.db.builder().Update("ingestion_jobs").
		Set("stage", string(constants.JobStagePending)).
		Set("attempts", 0).
		Set("cancel_requested", false).
		SetNull("error_kind").
		SetNull("error_message").
		SetNull("finished_at").
		Set("updated_at", now()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("stage", string(constants.JobStageFailed))))
	n, err := r.db.exec(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: reset job: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return ErrStageConflict
	}
	r.log.Info("repository.job.reset", zap.String("job_id", id.String()))
	return nil
}

// RequestCancel flags a non-terminal job; it reports whether a row was flagged.
func (r *ingestionJobRepo) RequestCancel(ctx context.Context, id uuid.UUID) (bool, error) {
	q := r.db.builder().Update("ingestion_jobs").
		Set("cancel_requested", true).
		Set("updated_at", now()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.NotIn("stage", string(constants.JobStageCompleted), string(constants.JobStageFailed)),
		))
	n, err := r.db.exec(ctx, q)
	if err != nil {
		return false, fmt.Errorf("%w: cancel job: %v", common.ErrDatabase, err)
	}
	return n > 0, nil
}

func (r *ingestionJobRepo) CountByStage(ctx context.Context) (map[constants.JobStage]int, error) {
	q := r.db.builder().Select("stage", "COUNT(*)").
		From(entsql.Table("ingestion_jobs")).
		GroupBy("stage")
	out := make(map[constants.JobStage]int, len(constants.JobStages))
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		var (
			stage string
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return err
		}
		out[constants.JobStage(stage)] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: count jobs: %v", common.ErrDatabase, err)
	}
	return out, nil
}
