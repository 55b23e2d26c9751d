package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
)

// IngestionJob is one pipeline run converting an uploaded resume into a
// scored candidate profile.
type IngestionJob struct {
	ID              uuid.UUID           `json:"id"`
	CandidateID     uuid.UUID           `json:"candidate_id"`
	VacancyID       uuid.UUID           `json:"vacancy_id"`
	SourceBlobKey   string              `json:"source_blob_key"`
	MediaType       string              `json:"media_type"`
	Stage           constants.JobStage  `json:"stage"`
	RawText         *string             `json:"raw_text,omitempty"`
	ErrorKind       constants.ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage    *string             `json:"error_message,omitempty"`
	Attempts        int                 `json:"attempts"`
	CancelRequested bool                `json:"cancel_requested"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	FinishedAt      *time.Time          `json:"finished_at,omitempty"`
}
