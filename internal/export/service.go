// Package export renders a vacancy's hiring board as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

const sheet = "Board"

// BoardSource lists the candidates of a vacancy with their current stage.
type BoardSource interface {
	Board(ctx context.Context, vacancyID uuid.UUID) ([]entity.BoardRow, error)
}

type VacancyChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service is a small façade over repositories that produces XLSX bytes.
type Service struct {
	board     BoardSource
	vacancies VacancyChecker
	logger    *zap.Logger
}

func NewService(board BoardSource, vacancies VacancyChecker, log *zap.Logger) *Service {
	return &Service{board: board, vacancies: vacancies, logger: logger.OrNop(log)}
}

var headers = []string{
	"Candidate",
	"Email",
	"Stage",
	"Match Score",
	"Summary",
	"Skills",
}

// ExportBoardXLSX returns one row per candidate of the vacancy, ordered by
// stage position (unassigned last) and then by score, highest first.
func (s *Service) ExportBoardXLSX(ctx context.Context, vacancyID uuid.UUID) ([]byte, error) {
	start := time.Now()
	ok, err := s.vacancies.Exists(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: vacancy %s", common.ErrNotFound, vacancyID)
	}

	rows, err := s.board.Board(ctx, vacancyID)
	if err != nil {
		return nil, fmt.Errorf("query board: %w", err)
	}
	SortBoard(rows)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		c := r.Candidate
		write(1, deref(c.FullName))
		write(2, deref(c.Email))
		write(3, r.StageName)
		if c.MatchScore != nil {
			write(4, *c.MatchScore)
		}
		write(5, truncate(deref(c.AISummary), 300))
		write(6, strings.Join(c.Skills, ", "))
	}

	_ = f.SetColWidth(sheet, "A", "A", 26) // name
	_ = f.SetColWidth(sheet, "B", "B", 30) // email
	_ = f.SetColWidth(sheet, "C", "C", 18) // stage
	_ = f.SetColWidth(sheet, "D", "D", 12) // score
	_ = f.SetColWidth(sheet, "E", "E", 60) // summary
	_ = f.SetColWidth(sheet, "F", "F", 48) // skills

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		zap.String("vacancy_id", vacancyID.String()),
		zap.Int("rows", len(rows)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return buf.Bytes(), nil
}

// SortBoard orders rows by stage position, unassigned candidates last, then
// by match score descending with unscored candidates last.
func SortBoard(rows []entity.BoardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if oa, ob := orderKey(a.StageOrder), orderKey(b.StageOrder); oa != ob {
			return oa < ob
		}
		sa, sb := a.Candidate.MatchScore, b.Candidate.MatchScore
		switch {
		case sa == nil && sb == nil:
			return false
		case sa == nil:
			return false
		case sb == nil:
			return true
		}
		return *sa > *sb
	})
}

func orderKey(o *int) int {
	if o == nil {
		return int(^uint(0) >> 1)
	}
	return *o
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
