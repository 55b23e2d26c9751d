package server

import (
	"context"

	"go.uber.org/zap"

	hiringv1 "github.com/joseph-ayodele/hiring-pipeline/api/hiring/v1"
	"github.com/joseph-ayodele/hiring-pipeline/internal/tracker"
	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

type StageServer struct {
	tracker *tracker.Tracker
	logger  *zap.Logger
}

func NewStageServer(t *tracker.Tracker, logger *zap.Logger) *StageServer {
	return &StageServer{tracker: t, logger: logger}
}

func (s *StageServer) ListStages(ctx context.Context, req *hiringv1.VacancyRequest) (*hiringv1.ListStagesResponse, error) {
	vacancyID, err := utils.ParseUUID("vacancy_id", req.VacancyId)
	if err != nil {
		return nil, err
	}
	stages, err := s.tracker.ListStages(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	out := make([]*hiringv1.Stage, 0, len(stages))
	for i := range stages {
		out = append(out, utils.ToPBStage(&stages[i]))
	}
	return &hiringv1.ListStagesResponse{Stages: out}, nil
}

// MoveCandidate is the recruiter action; moved_by is required.
func (s *StageServer) MoveCandidate(ctx context.Context, req *hiringv1.MoveCandidateRequest) (*hiringv1.MoveCandidateResponse, error) {
	candidateID, err := utils.ParseUUID("candidate_id", req.CandidateId)
	if err != nil {
		return nil, err
	}
	stageID, err := utils.ParseUUID("to_stage_id", req.ToStageId)
	if err != nil {
		return nil, err
	}
	m, err := s.tracker.MoveCandidate(ctx, candidateID, stageID, req.MovedBy, req.Note)
	if err != nil {
		return nil, err
	}
	s.logger.Info("server.stage.moved",
		zap.String("candidate_id", candidateID.String()),
		zap.String("to_stage_id", stageID.String()),
		zap.String("moved_by", req.MovedBy))
	return &hiringv1.MoveCandidateResponse{Move: utils.ToPBStageMove(m)}, nil
}

func (s *StageServer) GetCurrentStage(ctx context.Context, req *hiringv1.CandidateRequest) (*hiringv1.CurrentStageResponse, error) {
	candidateID, err := utils.ParseUUID("candidate_id", req.CandidateId)
	if err != nil {
		return nil, err
	}
	st, err := s.tracker.GetCurrentStage(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return &hiringv1.CurrentStageResponse{Stage: utils.ToPBStage(st)}, nil
}

func (s *StageServer) GetMoveHistory(ctx context.Context, req *hiringv1.CandidateRequest) (*hiringv1.MoveHistoryResponse, error) {
	candidateID, err := utils.ParseUUID("candidate_id", req.CandidateId)
	if err != nil {
		return nil, err
	}
	moves, err := s.tracker.GetMoveHistory(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	out := make([]*hiringv1.StageMove, 0, len(moves))
	for _, m := range moves {
		out = append(out, utils.ToPBStageMove(m))
	}
	return &hiringv1.MoveHistoryResponse{Moves: out}, nil
}
