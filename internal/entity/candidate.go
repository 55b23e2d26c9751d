package entity

import (
	"time"

	"github.com/google/uuid"
)

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year,omitempty"`
}

type WorkExperience struct {
	Company          string `json:"company"`
	Position         string `json:"position"`
	Duration         string `json:"duration,omitempty"`
	Responsibilities string `json:"responsibilities,omitempty"`
}

// Candidate carries the profile fields owned by the candidate record.
// AI-derived fields are written only by the pipeline.
type Candidate struct {
	ID              uuid.UUID        `json:"id"`
	VacancyID       uuid.UUID        `json:"vacancy_id"`
	ResumeBlobKey   *string          `json:"resume_blob_key,omitempty"`
	FullName        *string          `json:"full_name,omitempty"`
	Email           *string          `json:"email,omitempty"`
	Phone           *string          `json:"phone,omitempty"`
	Location        *string          `json:"location,omitempty"`
	Skills          []string         `json:"skills"`
	ExperienceYears *float64         `json:"experience_years,omitempty"`
	Education       []Education      `json:"education"`
	WorkExperience  []WorkExperience `json:"work_experience"`
	AISummary       *string          `json:"ai_summary,omitempty"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	MatchScore      *float64         `json:"match_score,omitempty"`
	HasEmbedding    bool             `json:"has_embedding"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ProfileUpdate is the set of fields written after profile extraction.
type ProfileUpdate struct {
	FullName        string
	Email           string
	Phone           string
	Location        string
	Skills          []string
	ExperienceYears *float64
	Education       []Education
	WorkExperience  []WorkExperience
}

// ScoreUpdate is written in one statement so a score never exists without
// its summary.
type ScoreUpdate struct {
	MatchScore float64
	Summary    string
	Strengths  []string
	Weaknesses []string
	Embedding  []float32 // optional
}

// SimilarCandidate is a nearest-neighbour hit over resume embeddings.
type SimilarCandidate struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	FullName    string    `json:"full_name"`
	MatchScore  *float64  `json:"match_score,omitempty"`
	Distance    float64   `json:"distance"`
}
