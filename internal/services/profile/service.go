// Package profile serves read access to extracted candidate profiles.
package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
)

const (
	DefaultSimilarLimit = 10
	MaxSimilarLimit     = 50

	DefaultMatchLimit = 50
	MaxMatchLimit     = 200
)

// Service handles candidate profile reads.
type Service struct {
	candidates repository.CandidateRepository
	vacancies  repository.VacancyRepository
	logger     *zap.Logger
}

// NewService creates a new profile service.
func NewService(candidates repository.CandidateRepository, vacancies repository.VacancyRepository, log *zap.Logger) *Service {
	return &Service{candidates: candidates, vacancies: vacancies, logger: logger.OrNop(log)}
}

// Matches is a vacancy's ranked candidate list.
type Matches struct {
	Vacancy    *entity.Vacancy
	Candidates []entity.Candidate
}

func (s *Service) GetProfile(ctx context.Context, candidateID uuid.UUID) (*entity.Candidate, error) {
	return s.candidates.Get(ctx, candidateID)
}

// SimilarCandidates ranks other candidates of the same vacancy by resume
// embedding distance. A candidate without an embedding has no neighbours.
func (s *Service) SimilarCandidates(ctx context.Context, candidateID uuid.UUID, limit int) ([]entity.SimilarCandidate, error) {
	switch {
	case limit <= 0:
		limit = DefaultSimilarLimit
	case limit > MaxSimilarLimit:
		limit = MaxSimilarLimit
	}
	c, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !c.HasEmbedding {
		s.logger.Debug("profile.similar.no_embedding", zap.String("candidate_id", candidateID.String()))
		return []entity.SimilarCandidate{}, nil
	}
	out, err := s.candidates.Similar(ctx, candidateID, limit)
	if err != nil {
		s.logger.Warn("profile.similar.failed", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("profile.similar.ok", zap.String("candidate_id", candidateID.String()), zap.Int("matches", len(out)))
	return out, nil
}

// ListMatches ranks a vacancy's scored candidates by match score.
func (s *Service) ListMatches(ctx context.Context, vacancyID uuid.UUID, minScore float64, limit int) (*Matches, error) {
	if minScore < 0 || minScore > 100 {
		return nil, fmt.Errorf("%w: min_score %v outside 0..100", common.ErrInvalidInput, minScore)
	}
	switch {
	case limit <= 0:
		limit = DefaultMatchLimit
	case limit > MaxMatchLimit:
		limit = MaxMatchLimit
	}
	v, err := s.vacancies.Get(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	ranked, err := s.candidates.ListRanked(ctx, vacancyID, minScore, limit)
	if err != nil {
		s.logger.Warn("profile.matches.failed", zap.String("vacancy_id", vacancyID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("profile.matches.ok", zap.String("vacancy_id", vacancyID.String()), zap.Int("matches", len(ranked)))
	return &Matches{Vacancy: v, Candidates: ranked}, nil
}
