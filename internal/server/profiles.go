package server

import (
	"context"

	"go.uber.org/zap"

	hiringv1 "github.com/joseph-ayodele/hiring-pipeline/api/hiring/v1"
	"github.com/joseph-ayodele/hiring-pipeline/internal/export"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/profile"
	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

type CandidateServer struct {
	svc    *profile.Service
	export *export.Service
	logger *zap.Logger
}

func NewCandidateServer(svc *profile.Service, exp *export.Service, logger *zap.Logger) *CandidateServer {
	return &CandidateServer{svc: svc, export: exp, logger: logger}
}

func (s *CandidateServer) GetCandidate(ctx context.Context, req *hiringv1.CandidateRequest) (*hiringv1.CandidateResponse, error) {
	id, err := utils.ParseUUID("candidate_id", req.CandidateId)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &hiringv1.CandidateResponse{Candidate: utils.ToPBCandidate(c)}, nil
}

func (s *CandidateServer) SimilarCandidates(ctx context.Context, req *hiringv1.SimilarCandidatesRequest) (*hiringv1.SimilarCandidatesResponse, error) {
	id, err := utils.ParseUUID("candidate_id", req.CandidateId)
	if err != nil {
		return nil, err
	}
	matches, err := s.svc.SimilarCandidates(ctx, id, int(req.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]*hiringv1.SimilarCandidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, utils.ToPBSimilar(m))
	}
	return &hiringv1.SimilarCandidatesResponse{Matches: out}, nil
}

func (s *CandidateServer) ListMatches(ctx context.Context, req *hiringv1.ListMatchesRequest) (*hiringv1.ListMatchesResponse, error) {
	vacancyID, err := utils.ParseUUID("vacancy_id", req.VacancyId)
	if err != nil {
		return nil, err
	}
	m, err := s.svc.ListMatches(ctx, vacancyID, req.MinScore, int(req.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]*hiringv1.Match, 0, len(m.Candidates))
	for _, c := range m.Candidates {
		out = append(out, utils.ToPBMatch(c))
	}
	return &hiringv1.ListMatchesResponse{VacancyId: vacancyID.String(), VacancyTitle: m.Vacancy.Title, Matches: out}, nil
}
