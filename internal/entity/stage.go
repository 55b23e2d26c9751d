package entity

import (
	"time"

	"github.com/google/uuid"
)

// PipelineStageDef is one ordered step of a vacancy's hiring funnel.
type PipelineStageDef struct {
	ID        uuid.UUID `json:"id"`
	VacancyID uuid.UUID `json:"vacancy_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Order     int       `json:"order"`
	ColorHint string    `json:"color_hint,omitempty"`
}

// StageAssignment is the current stage pointer of a candidate.
type StageAssignment struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	StageID     uuid.UUID `json:"stage_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StageMove is an append-only audit entry written on every assignment change.
type StageMove struct {
	ID          uuid.UUID  `json:"id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	FromStageID *uuid.UUID `json:"from_stage_id,omitempty"`
	ToStageID   uuid.UUID  `json:"to_stage_id"`
	MovedBy     string     `json:"moved_by"`
	Note        string     `json:"note,omitempty"`
	Seq         int        `json:"seq"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BoardRow is one candidate line of a vacancy board export.
type BoardRow struct {
	Candidate  Candidate
	StageName  string
	StageOrder *int
}
