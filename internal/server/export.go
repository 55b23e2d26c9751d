package server

import (
	"context"

	"go.uber.org/zap"

	hiringv1 "github.com/joseph-ayodele/hiring-pipeline/api/hiring/v1"
	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

// ExportBoard returns the vacancy board as XLSX bytes.
func (s *CandidateServer) ExportBoard(ctx context.Context, req *hiringv1.VacancyRequest) (*hiringv1.ExportBoardResponse, error) {
	vacancyID, err := utils.ParseUUID("vacancy_id", req.VacancyId)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.export.ExportBoardXLSX(ctx, vacancyID)
	if err != nil {
		s.logger.Error("export.xlsx.failed", zap.String("vacancy_id", vacancyID.String()), zap.Error(err))
		return nil, err
	}
	return &hiringv1.ExportBoardResponse{Xlsx: xlsx}, nil
}
