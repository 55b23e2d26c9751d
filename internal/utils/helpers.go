package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	hiringv1 "github.com/joseph-ayodele/hiring-pipeline/api/hiring/v1"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
)

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ParseUUID parses a request id; failures wrap common.ErrInvalidInput.
func ParseUUID(field, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", common.ErrInvalidInput, field)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", common.ErrInvalidInput, field)
	}
	return id, nil
}

func ToPBStage(s *entity.PipelineStageDef) *hiringv1.Stage {
	if s == nil {
		return nil
	}
	return &hiringv1.Stage{
		Id:        s.ID.String(),
		VacancyId: s.VacancyID.String(),
		Name:      s.Name,
		Slug:      s.Slug,
		Order:     int32(s.Order),
		ColorHint: s.ColorHint,
	}
}

func ToPBStageMove(m entity.StageMove) *hiringv1.StageMove {
	out := &hiringv1.StageMove{
		Id:          m.ID.String(),
		CandidateId: m.CandidateID.String(),
		ToStageId:   m.ToStageID.String(),
		MovedBy:     m.MovedBy,
		Note:        m.Note,
		Seq:         int32(m.Seq),
		CreatedAt:   formatTime(m.CreatedAt),
	}
	if m.FromStageID != nil {
		out.FromStageId = m.FromStageID.String()
	}
	return out
}

func ToPBCandidate(c *entity.Candidate) *hiringv1.Candidate {
	out := &hiringv1.Candidate{
		Id:              c.ID.String(),
		VacancyId:       c.VacancyID.String(),
		FullName:        strOrEmpty(c.FullName),
		Email:           strOrEmpty(c.Email),
		Phone:           strOrEmpty(c.Phone),
		Location:        strOrEmpty(c.Location),
		Skills:          nonNil(c.Skills),
		ExperienceYears: c.ExperienceYears,
		Education:       make([]*hiringv1.Education, 0, len(c.Education)),
		WorkExperience:  make([]*hiringv1.WorkExperience, 0, len(c.WorkExperience)),
		AiSummary:       strOrEmpty(c.AISummary),
		Strengths:       nonNil(c.Strengths),
		Weaknesses:      nonNil(c.Weaknesses),
		MatchScore:      c.MatchScore,
		HasEmbedding:    c.HasEmbedding,
		CreatedAt:       formatTime(c.CreatedAt),
		UpdatedAt:       formatTime(c.UpdatedAt),
	}
	for _, e := range c.Education {
		out.Education = append(out.Education, &hiringv1.Education{Degree: e.Degree, Institution: e.Institution, Year: e.Year})
	}
	for _, w := range c.WorkExperience {
		out.WorkExperience = append(out.WorkExperience, &hiringv1.WorkExperience{
			Company:          w.Company,
			Position:         w.Position,
			Duration:         w.Duration,
			Responsibilities: w.Responsibilities,
		})
	}
	return out
}

func ToPBSimilar(s entity.SimilarCandidate) *hiringv1.SimilarCandidate {
	return &hiringv1.SimilarCandidate{
		CandidateId: s.CandidateID.String(),
		FullName:    s.FullName,
		MatchScore:  s.MatchScore,
		Distance:    s.Distance,
	}
}

// ToPBMatch expects a scored candidate.
func ToPBMatch(c entity.Candidate) *hiringv1.Match {
	out := &hiringv1.Match{
		CandidateId:     c.ID.String(),
		FullName:        strOrEmpty(c.FullName),
		Skills:          nonNil(c.Skills),
		ExperienceYears: c.ExperienceYears,
		AiSummary:       strOrEmpty(c.AISummary),
	}
	if c.MatchScore != nil {
		out.MatchScore = *c.MatchScore
	}
	return out
}

func ToPBJobStatus(j ingest.JobStatus) *hiringv1.JobStatus {
	out := &hiringv1.JobStatus{
		JobId:        j.JobID.String(),
		CandidateId:  j.CandidateID.String(),
		Stage:        string(j.Stage),
		ErrorKind:    string(j.ErrorKind),
		ErrorMessage: j.ErrorMessage,
		Attempts:     int32(j.Attempts),
		UpdatedAt:    formatTime(j.UpdatedAt),
	}
	if j.FinishedAt != nil {
		out.FinishedAt = formatTime(*j.FinishedAt)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
