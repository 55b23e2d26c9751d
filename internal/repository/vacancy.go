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

type VacancyRepository interface {
	Create(ctx context.Context, v *entity.Vacancy) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Vacancy, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type vacancyRepo struct {
	db  *DB
	log *zap.Logger
}

func NewVacancyRepository(db *DB, log *zap.Logger) VacancyRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &vacancyRepo{db: db, log: log}
}

func (r *vacancyRepo) Create(ctx context.Context, v *entity.Vacancy) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	skills, err := jsonValue(v.RequiredSkills)
	if err != nil {
		return err
	}
	v.CreatedAt = now()
	q := r.db.builder().Insert("vacancies").
		Columns("id", "title", "description", "requirements", "required_skills", "created_at").
		Values(v.ID, v.Title, v.Description, v.Requirements, skills, v.CreatedAt)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.log.Error("repository.vacancy.create_failed", zap.String("title", v.Title), zap.Error(err))
		return fmt.Errorf("%w: create vacancy: %v", common.ErrDatabase, err)
	}
	r.log.Info("repository.vacancy.created", zap.String("vacancy_id", v.ID.String()), zap.String("title", v.Title))
	return nil
}

func (r *vacancyRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Vacancy, error) {
	q := r.db.builder().
		Select("id", "title", "description", "requirements", "required_skills", "created_at").
		From(entsql.Table("vacancies")).
		Where(entsql.EQ("id", id))
	var out *entity.Vacancy
	err := r.db.query(ctx, q, func(rows *entsql.Rows) error {
		var v entity.Vacancy
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.Requirements, jsonColumn{&v.RequiredSkills}, &v.CreatedAt); err != nil {
			return err
		}
		v.CreatedAt = v.CreatedAt.UTC()
		out = &v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query vacancy: %v", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: vacancy %s", common.ErrNotFound, id)
	}
	return out, nil
}

func (r *vacancyRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := r.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case common.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
