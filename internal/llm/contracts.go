package llm

import "context"

// Task selects the fixed response schema of an inference call.
type Task string

const (
	TaskExtractProfile Task = "extract_profile"
	TaskScoreMatch     Task = "score_match"
)

// Request is the provider-neutral inference request.
type Request struct {
	Task    Task
	Text    string
	Context map[string]any
}

// Inference is the capability implemented by model providers. Infer returns
// the raw JSON document produced for the task; callers validate it.
type Inference interface {
	Infer(ctx context.Context, req Request) ([]byte, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

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

// ProfileFields is the normalized shape of an extract_profile response.
type ProfileFields struct {
	FullName        string           `json:"full_name,omitempty"`
	Email           string           `json:"email,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	Location        string           `json:"location,omitempty"`
	Skills          []string         `json:"skills"`
	ExperienceYears *float64         `json:"experience_years,omitempty"`
	Education       []Education      `json:"education,omitempty"`
	WorkExperience  []WorkExperience `json:"work_experience,omitempty"`
	Summary         string           `json:"summary,omitempty"`
}

// MatchResult is the normalized shape of a score_match response.
type MatchResult struct {
	MatchScore float64  `json:"match_score"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

type VacancyContext struct {
	Title          string   `json:"vacancy_title,omitempty"`
	Requirements   string   `json:"requirements,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

func (v VacancyContext) asMap() map[string]any {
	return map[string]any{
		"vacancy_title":   v.Title,
		"requirements":    v.Requirements,
		"required_skills": v.RequiredSkills,
	}
}

type ProfileExtractor interface {
	ExtractProfile(ctx context.Context, text string) (ProfileFields, error)
}

type MatchScorer interface {
	ScoreMatch(ctx context.Context, text string, vacancy VacancyContext) (MatchResult, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
