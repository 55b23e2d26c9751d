package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
)

type StageRepository interface {
	CreateStage(ctx context.Context, s *entity.PipelineStageDef) error
	ListStages(ctx context.Context, vacancyID uuid.UUID) ([]entity.PipelineStageDef, error)
	GetStage(ctx context.Context, id uuid.UUID) (*entity.PipelineStageDef, error)
	// GetAssignment returns nil when the candidate has no current stage.
	GetAssignment(ctx context.Context, candidateID uuid.UUID) (*entity.StageAssignment, error)
	UpsertAssignment(ctx context.Context, candidateID, stageID uuid.UUID) error
	// AppendMove stores m with the candidate's next sequence number.
	AppendMove(ctx context.Context, m *entity.StageMove) error
	History(ctx context.Context, candidateID uuid.UUID) ([]entity.StageMove, error)
	Board(ctx context.Context, vacancyID uuid.UUID) ([]entity.BoardRow, error)
}

type stageRepo struct {
	db  *DB
	log *zap.Logger
}

func NewStageRepository(db *DB, log *zap.Logger) StageRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &stageRepo{db: db, log: log}
}

var stageColumns = []string{"id", "vacancy_id", "name", "slug", "position", "color_hint"}

func scanStage(rows *entsql.Rows) (entity.PipelineStageDef, error) {
	var s entity.PipelineStageDef
	err := rows.Scan(&s.ID, &s.VacancyID, &s.Name, &s.Slug, &s.Order, &s.ColorHint)
	return s, err
}

func (r *stageRepo) CreateStage(ctx context.Context, s *entity.PipelineStageDef) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	q := r.db.builder().Insert("pipeline_stages").
		Columns(stageColumns...).
		Values(s.ID, s.VacancyID, s.Name, s.Slug, s.Order, s.ColorHint)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.log.Error("repository.stage.create_failed",
			zap.String("vacancy_id", s.VacancyID.String()),
			zap.Int("order", s.Order),
			zap.Error(err))
		return fmt.Errorf("%w: create stage: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *stageRepo) ListStages(ctx context.Context, vacancyID uuid.UUID) ([]entity.PipelineStageDef, error) {
	q := r.db.builder().Select(stageColumns...).
		From(entsql.Table("pipeline_stages")).
		Where(entsql.EQ("vacancy_id", vacancyID)).
		OrderBy("position", "id")
	var out []entity.PipelineStageDef
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		s, err := scanStage(rows)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list stages: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *stageRepo) GetStage(ctx context.Context, id uuid.UUID) (*entity.PipelineStageDef, error) {
	q := r.db.builder().Select(stageColumns...).
		From(entsql.Table("pipeline_stages")).
		Where(entsql.EQ("id", id))
	var out *entity.PipelineStageDef
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		s, err := scanStage(rows)
		out = &s
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query stage: %v", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: stage %s", common.ErrNotFound, id)
	}
	return out, nil
}

func (r *stageRepo) GetAssignment(ctx context.Context, candidateID uuid.UUID) (*entity.StageAssignment, error) {
	q := r.db.builder().Select("candidate_id", "stage_id", "updated_at").
		From(entsql.Table("stage_assignments")).
		Where(entsql.EQ("candidate_id", candidateID))
	var out *entity.StageAssignment
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		var a entity.StageAssignment
		if err := rows.Scan(&a.CandidateID, &a.StageID, &a.UpdatedAt); err != nil {
			return err
		}
		a.UpdatedAt = a.UpdatedAt.UTC()
		out = &a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query assignment: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *stageRepo) UpsertAssignment(ctx context.Context, candidateID, stageID uuid.UUID) error {
	q := r.db.builder().Insert("stage_assignments").
		Columns("candidate_id", "stage_id", "updated_at").
		Values(candidateID, stageID, now()).
		OnConflict(
			entsql.ConflictColumns("candidate_id"),
			entsql.ResolveWithNewValues(),
		)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.log.Error("repository.assignment.upsert_failed", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return fmt.Errorf("%w: upsert assignment: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *stageRepo) nextSeq(ctx context.Context, candidateID uuid.UUID) (int, error) {
	q := r.db.builder().Select("COALESCE(MAX(seq), 0)").
		From(entsql.Table("stage_moves")).
		Where(entsql.EQ("candidate_id", candidateID))
	var seq int
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		return rows.Scan(&seq)
	})
	return seq + 1, err
}

func (r *stageRepo) AppendMove(ctx context.Context, m *entity.StageMove) error {
	seq, err := r.nextSeq(ctx, m.CandidateID)
	if err != nil {
		return fmt.Errorf("%w: next move seq: %v", common.ErrDatabase, err)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Seq = seq
	m.CreatedAt = now()
	var from any
	if m.FromStageID != nil {
		from = *m.FromStageID
	}
	q := r.db.builder().Insert("stage_moves").
		Columns("id", "candidate_id", "from_stage_id", "to_stage_id", "moved_by", "note", "seq", "created_at").
		Values(m.ID, m.CandidateID, from, m.ToStageID, m.MovedBy, m.Note, m.Seq, m.CreatedAt)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.log.Error("repository.move.append_failed", zap.String("candidate_id", m.CandidateID.String()), zap.Error(err))
		return fmt.Errorf("%w: append move: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *stageRepo) History(ctx context.Context, candidateID uuid.UUID) ([]entity.StageMove, error) {
	q := r.db.builder().
		Select("id", "candidate_id", "from_stage_id", "to_stage_id", "moved_by", "note", "seq", "created_at").
		From(entsql.Table("stage_moves")).
		Where(entsql.EQ("candidate_id", candidateID)).
		OrderBy("seq")
	var out []entity.StageMove
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		var (
			m    entity.StageMove
			from uuid.NullUUID
		)
		if err := rows.Scan(&m.ID, &m.CandidateID, &from, &m.ToStageID, &m.MovedBy, &m.Note, &m.Seq, &m.CreatedAt); err != nil {
			return err
		}
		if from.Valid {
			id := from.UUID
			m.FromStageID = &id
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: move history: %v", common.ErrDatabase, err)
	}
	return out, nil
}

// Board lists every candidate of a vacancy joined with its current stage.
func (r *stageRepo) Board(ctx context.Context, vacancyID uuid.UUID) ([]entity.BoardRow, error) {
	candidates, err := NewCandidateRepository(r.db, r.log).ListForVacancy(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	stages, err := r.ListStages(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]entity.PipelineStageDef, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}

	rows := make([]entity.BoardRow, 0, len(candidates))
	for _, c := range candidates {
		row := entity.BoardRow{Candidate: c}
		a, err := r.GetAssignment(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			if s, ok := byID[a.StageID]; ok {
				order := s.Order
				row.StageName = s.Name
				row.StageOrder = &order
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
