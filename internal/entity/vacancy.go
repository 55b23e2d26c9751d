package entity

import (
	"time"

	"github.com/google/uuid"
)

// Vacancy is read-only to the pipeline; recruiters own it.
type Vacancy struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Requirements   string    `json:"requirements,omitempty"`
	RequiredSkills []string  `json:"required_skills"`
	CreatedAt      time.Time `json:"created_at"`
}
