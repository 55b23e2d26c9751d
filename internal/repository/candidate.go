package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
)

// ErrSimilarityUnsupported is returned by Similar on databases without pgvector.
var ErrSimilarityUnsupported = fmt.Errorf("%w: similarity search requires postgres with pgvector", common.ErrUnsupported)

type CandidateRepository interface {
	// Ensure creates the candidate row when missing and records the resume key.
	// An existing candidate attached to another vacancy is rejected. A row
	// inserted concurrently by another transaction wins.
	Ensure(ctx context.Context, id, vacancyID uuid.UUID, resumeBlobKey string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Candidate, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p entity.ProfileUpdate) error
	UpdateScore(ctx context.Context, id uuid.UUID, s entity.ScoreUpdate) error
	// LockForUpdate returns the candidate's vacancy, row-locking it on Postgres
	// when called inside a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	Similar(ctx context.Context, id uuid.UUID, limit int) ([]entity.SimilarCandidate, error)
	ListForVacancy(ctx context.Context, vacancyID uuid.UUID) ([]entity.Candidate, error)
	// ListRanked returns a vacancy's scored candidates at or above minScore,
	// best match first.
	ListRanked(ctx context.Context, vacancyID uuid.UUID, minScore float64, limit int) ([]entity.Candidate, error)
}

type candidateRepo struct {
	db  *DB
	log *zap.Logger
}

func NewCandidateRepository(db *DB, log *zap.Logger) CandidateRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &candidateRepo{db: db, log: log}
}

var candidateColumns = []string{
	"id", "vacancy_id", "resume_blob_key", "full_name", "email", "phone", "location",
	"skills", "experience_years", "education", "work_experience", "ai_summary",
	"strengths", "weaknesses", "match_score", "created_at", "updated_at",
}

func candidateSelect(b *entsql.DialectBuilder) *entsql.Selector {
	return b.Select(candidateColumns...).
		AppendSelectExprAs(entsql.Expr("CASE WHEN embedding IS NULL THEN 0 ELSE 1 END"), "has_embedding").
		From(entsql.Table("candidates"))
}

func scanCandidate(rows *entsql.Rows) (*entity.Candidate, error) {
	var (
		c                                entity.Candidate
		blobKey, name, email, phone, loc stdsql.NullString
		summary                          stdsql.NullString
		years, score                     stdsql.NullFloat64
		hasEmbedding                     int
	)
	if err := rows.Scan(
		&c.ID, &c.VacancyID, &blobKey, &name, &email, &phone, &loc,
		jsonColumn{&c.Skills}, &years, jsonColumn{&c.Education}, jsonColumn{&c.WorkExperience}, &summary,
		jsonColumn{&c.Strengths}, jsonColumn{&c.Weaknesses}, &score, &c.CreatedAt, &c.UpdatedAt,
		&hasEmbedding,
	); err != nil {
		return nil, err
	}
	c.ResumeBlobKey = strPtr(blobKey)
	c.FullName = strPtr(name)
	c.Email = strPtr(email)
	c.Phone = strPtr(phone)
	c.Location = strPtr(loc)
	c.AISummary = strPtr(summary)
	c.ExperienceYears = floatPtr(years)
	c.MatchScore = floatPtr(score)
	c.HasEmbedding = hasEmbedding == 1
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (r *candidateRepo) Ensure(ctx context.Context, id, vacancyID uuid.UUID, resumeBlobKey string) error {
	existing, err := r.Get(ctx, id)
	switch {
	case err == nil:
		if existing.VacancyID != vacancyID {
			return fmt.Errorf("%w: candidate %s belongs to vacancy %s", common.ErrInvalidInput, id, existing.VacancyID)
		}
		q := r.db.builder().Update("candidates").
			Set("resume_blob_key", nullable(resumeBlobKey)).
			Set("updated_at", now()).
			Where(entsql.EQ("id", id))
		if _, err := r.db.exec(ctx, q); err != nil {
			return fmt.Errorf("%w: update candidate: %v", common.ErrDatabase, err)
		}
		return nil
	case common.IsNotFound(err):
	default:
		return err
	}

	ts := now()
	q := r.db.builder().Insert("candidates").
		Columns("id", "vacancy_id", "resume_blob_key", "skills", "education", "work_experience", "strengths", "weaknesses", "created_at", "updated_at").
		Values(id, vacancyID, nullable(resumeBlobKey), "[]", "[]", "[]", "[]", "[]", ts, ts).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := r.db.exec(ctx, q); err != nil {
		r.log.Error("repository.candidate.create_failed", zap.String("candidate_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: create candidate: %v", common.ErrDatabase, err)
	}
	r.log.Info("repository.candidate.created",
		zap.String("candidate_id", id.String()),
		zap.String("vacancy_id", vacancyID.String()))
	return nil
}

func (r *candidateRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Candidate, error) {
	var out *entity.Candidate
	q := candidateSelect(r.db.builder()).Where(entsql.EQ("id", id))
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		c, err := scanCandidate(rows)
		out = c
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query candidate: %v", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: candidate %s", common.ErrNotFound, id)
	}
	return out, nil
}

func (r *candidateRepo) UpdateProfile(ctx context.Context, id uuid.UUID, p entity.ProfileUpdate) error {
	skills, err := jsonValue(p.Skills)
	if err != nil {
		return err
	}
	edu, err := jsonValue(p.Education)
	if err != nil {
		return err
	}
	work, err := jsonValue(p.WorkExperience)
	if err != nil {
		return err
	}
	q := r.db.builder().Update("candidates").
		Set("full_name", nullable(p.FullName)).
		Set("email", nullable(p.Email)).
		Set("phone", nullable(p.Phone)).
		Set("location", nullable(p.Location)).
		Set("skills", skills).
		Set("education", edu).
		Set("work_experience", work).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	if p.ExperienceYears != nil {
		q.Set("experience_years", *p.ExperienceYears)
	} else {
		q.SetNull("experience_years")
	}
	n, err := r.db.exec(ctx, q)
	if err != nil {
		r.log.Error("repository.candidate.profile_failed", zap.String("candidate_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: update profile: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: candidate %s", common.ErrNotFound, id)
	}
	return nil
}

// UpdateScore writes score and summary in a single statement.
func (r *candidateRepo) UpdateScore(ctx context.Context, id uuid.UUID, s entity.ScoreUpdate) error {
	if s.Summary == "" {
		return fmt.Errorf("%w: score requires a summary", common.ErrInvalidInput)
	}
	if s.MatchScore < 0 || s.MatchScore > 100 {
		return fmt.Errorf("%w: match score %.2f out of range", common.ErrInvalidInput, s.MatchScore)
	}
	strengths, err := jsonValue(s.Strengths)
	if err != nil {
		return err
	}
	weaknesses, err := jsonValue(s.Weaknesses)
	if err != nil {
		return err
	}
	q := r.db.builder().Update("candidates").
		Set("match_score", s.MatchScore).
		Set("ai_summary", s.Summary).
		Set("strengths", strengths).
		Set("weaknesses", weaknesses).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	if len(s.Embedding) > 0 {
		q.Set("embedding", pgvector.NewVector(s.Embedding))
	}
	n, err := r.db.exec(ctx, q)
	if err != nil {
		r.log.Error("repository.candidate.score_failed", zap.String("candidate_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: update score: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: candidate %s", common.ErrNotFound, id)
	}
	return nil
}

func (r *candidateRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	q := r.db.builder().Select("vacancy_id").
		From(entsql.Table("candidates")).
		Where(entsql.EQ("id", id))
	// SQLite serializes writers at the database level and has no row locks.
	if r.db.Dialect() == dialect.Postgres && inTx(ctx) {
		q.ForUpdate()
	}
	var (
		vacancyID uuid.UUID
		found     bool
	)
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&vacancyID)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: lock candidate: %v", common.ErrDatabase, err)
	}
	if !found {
		return uuid.Nil, fmt.Errorf("%w: candidate %s", common.ErrNotFound, id)
	}
	return vacancyID, nil
}

const similarQuery = `SELECT c.id, c.full_name, c.match_score, c.embedding <=> src.embedding AS distance
FROM candidates c, candidates src
WHERE src.id = $1 AND src.embedding IS NOT NULL
  AND c.id <> src.id AND c.vacancy_id = src.vacancy_id AND c.embedding IS NOT NULL
ORDER BY distance
LIMIT $2`

// Similar ranks candidates of the same vacancy by cosine distance between
// resume embeddings.
func (r *candidateRepo) Similar(ctx context.Context, id uuid.UUID, limit int) ([]entity.SimilarCandidate, error) {
	if r.db.Dialect() != dialect.Postgres {
		return nil, ErrSimilarityUnsupported
	}
	if limit <= 0 {
		limit = 10
	}
	var rows entsql.Rows
	if err := r.db.conn(ctx).Query(ctx, similarQuery, []any{id, limit}, &rows); err != nil {
		return nil, fmt.Errorf("%w: similar candidates: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	var out []entity.SimilarCandidate
	for rows.Next() {
		var (
			s     entity.SimilarCandidate
			name  stdsql.NullString
			score stdsql.NullFloat64
		)
		if err := rows.Scan(&s.CandidateID, &name, &score, &s.Distance); err != nil {
			return nil, err
		}
		s.FullName = name.String
		s.MatchScore = floatPtr(score)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *candidateRepo) ListForVacancy(ctx context.Context, vacancyID uuid.UUID) ([]entity.Candidate, error) {
	q := candidateSelect(r.db.builder()).
		Where(entsql.EQ("vacancy_id", vacancyID)).
		OrderBy("created_at")
	var out []entity.Candidate
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		c, err := scanCandidate(rows)
		if err != nil {
			return err
		}
		out = append(out, *c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *candidateRepo) ListRanked(ctx context.Context, vacancyID uuid.UUID, minScore float64, limit int) ([]entity.Candidate, error) {
	q := candidateSelect(r.db.builder()).
		Where(entsql.And(
			entsql.EQ("vacancy_id", vacancyID),
			entsql.NotNull("match_score"),
			entsql.GTE("match_score", minScore),
		)).
		OrderBy(entsql.Desc("match_score"), "created_at", "id")
	if limit > 0 {
		q.Limit(limit)
	}
	out := []entity.Candidate{}
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		c, err := scanCandidate(rows)
		if err != nil {
			return err
		}
		out = append(out, *c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: rank candidates: %v", common.ErrDatabase, err)
	}
	return out, nil
}
