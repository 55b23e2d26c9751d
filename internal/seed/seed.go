// Package seed loads vacancies and their stage definitions from YAML for
// local environments and demos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
)

type File struct {
	Vacancies []Vacancy `yaml:"vacancies" validate:"required,min=1,dive"`
}

type Vacancy struct {
	// ID is optional. With an ID the vacancy is skipped when it already exists.
	ID             string   `yaml:"id" validate:"omitempty,uuid"`
	Title          string   `yaml:"title" validate:"required"`
	Description    string   `yaml:"description"`
	Requirements   string   `yaml:"requirements"`
	RequiredSkills []string `yaml:"required_skills"`
	Stages         []Stage  `yaml:"stages" validate:"required,min=1,dive"`
}

type Stage struct {
	Name      string `yaml:"name" validate:"required"`
	Slug      string `yaml:"slug"`
	ColorHint string `yaml:"color_hint"`
}

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty seed file", common.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: decode seed file: %v", common.ErrInvalidInput, err)
	}
	if err := common.ValidateStruct(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

type Loader struct {
	tx        repository.Transactor
	vacancies repository.VacancyRepository
	stages    repository.StageRepository
	log       *zap.Logger
}

func NewLoader(tx repository.Transactor, vacancies repository.VacancyRepository, stages repository.StageRepository, log *zap.Logger) *Loader {
	return &Loader{tx: tx, vacancies: vacancies, stages: stages, log: logger.OrNop(log)}
}

// Apply writes each vacancy and its stages in one transaction per vacancy.
// Stage order follows the document. It returns the ids of created vacancies.
func (l *Loader) Apply(ctx context.Context, f *File) ([]uuid.UUID, error) {
	var created []uuid.UUID
	for _, sv := range f.Vacancies {
		v := entity.Vacancy{
			Title:          sv.Title,
			Description:    sv.Description,
			Requirements:   sv.Requirements,
			RequiredSkills: sv.RequiredSkills,
		}
		if sv.ID != "" {
			v.ID = uuid.MustParse(sv.ID)
			exists, err := l.vacancies.Exists(ctx, v.ID)
			if err != nil {
				return created, err
			}
			if exists {
				l.log.Info("seed.vacancy.exists", zap.String("vacancy_id", v.ID.String()), zap.String("title", v.Title))
				continue
			}
		}

		err := l.tx.InTx(ctx, func(ctx context.Context) error {
			if err := l.vacancies.Create(ctx, &v); err != nil {
				return err
			}
			for i, st := range sv.Stages {
				def := entity.PipelineStageDef{
					VacancyID: v.ID,
					Name:      st.Name,
					Slug:      st.Slug,
					Order:     i + 1,
					ColorHint: st.ColorHint,
				}
				if def.Slug == "" {
					def.Slug = Slugify(st.Name)
				}
				if err := l.stages.CreateStage(ctx, &def); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return created, fmt.Errorf("seed vacancy %q: %w", sv.Title, err)
		}
		l.log.Info("seed.vacancy.created",
			zap.String("vacancy_id", v.ID.String()),
			zap.String("title", v.Title),
			zap.Int("stages", len(sv.Stages)))
		created = append(created, v.ID)
	}
	return created, nil
}

// Slugify lowercases name and joins its words with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
