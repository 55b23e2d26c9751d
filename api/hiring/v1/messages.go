package hiringv1

// Times are RFC3339 strings in UTC. Ids are UUID strings.

type EnqueueJobRequest struct {
	CandidateId string `json:"candidate_id"`
	VacancyId   string `json:"vacancy_id"`
	BlobKey     string `json:"blob_key"`
	MediaType   string `json:"media_type"`
}

type EnqueueJobResponse struct {
	JobId        string `json:"job_id"`
	Deduplicated bool   `json:"deduplicated"`
}

type UploadResumeRequest struct {
	CandidateId string `json:"candidate_id,omitempty"`
	VacancyId   string `json:"vacancy_id"`
	Filename    string `json:"filename,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	Content     []byte `json:"content"`
}

type UploadResumeResponse struct {
	JobId        string `json:"job_id"`
	CandidateId  string `json:"candidate_id"`
	BlobKey      string `json:"blob_key"`
	MediaType    string `json:"media_type"`
	Deduplicated bool   `json:"deduplicated"`
}

type JobRequest struct {
	JobId string `json:"job_id"`
}

type JobStatus struct {
	JobId        string `json:"job_id"`
	CandidateId  string `json:"candidate_id"`
	Stage        string `json:"stage"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Attempts     int32  `json:"attempts"`
	UpdatedAt    string `json:"updated_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

type RerunJobResponse struct {
	JobId string `json:"job_id"`
}

type CancelJobResponse struct {
	Flagged bool `json:"flagged"`
}

type ResumeURLRequest struct {
	JobId      string `json:"job_id"`
	TtlSeconds int64  `json:"ttl_seconds,omitempty"`
}

type ResumeURLResponse struct {
	Url string `json:"url"`
}

type VacancyRequest struct {
	VacancyId string `json:"vacancy_id"`
}

type CandidateRequest struct {
	CandidateId string `json:"candidate_id"`
}

type Stage struct {
	Id        string `json:"id"`
	VacancyId string `json:"vacancy_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Order     int32  `json:"order"`
	ColorHint string `json:"color_hint,omitempty"`
}

type ListStagesResponse struct {
	Stages []*Stage `json:"stages"`
}

type MoveCandidateRequest struct {
	CandidateId string `json:"candidate_id"`
	ToStageId   string `json:"to_stage_id"`
	MovedBy     string `json:"moved_by"`
	Note        string `json:"note,omitempty"`
}

type StageMove struct {
	Id          string `json:"id"`
	CandidateId string `json:"candidate_id"`
	FromStageId string `json:"from_stage_id,omitempty"`
	ToStageId   string `json:"to_stage_id"`
	MovedBy     string `json:"moved_by"`
	Note        string `json:"note,omitempty"`
	Seq         int32  `json:"seq"`
	CreatedAt   string `json:"created_at"`
}

type MoveCandidateResponse struct {
	Move *StageMove `json:"move"`
}

type CurrentStageResponse struct {
	// Stage is nil while the candidate is unassigned.
	Stage *Stage `json:"stage,omitempty"`
}

type MoveHistoryResponse struct {
	Moves []*StageMove `json:"moves"`
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

type Candidate struct {
	Id              string            `json:"id"`
	VacancyId       string            `json:"vacancy_id"`
	FullName        string            `json:"full_name,omitempty"`
	Email           string            `json:"email,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	Location        string            `json:"location,omitempty"`
	Skills          []string          `json:"skills"`
	ExperienceYears *float64          `json:"experience_years,omitempty"`
	Education       []*Education      `json:"education"`
	WorkExperience  []*WorkExperience `json:"work_experience"`
	AiSummary       string            `json:"ai_summary,omitempty"`
	Strengths       []string          `json:"strengths"`
	Weaknesses      []string          `json:"weaknesses"`
	MatchScore      *float64          `json:"match_score,omitempty"`
	HasEmbedding    bool              `json:"has_embedding"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

type CandidateResponse struct {
	Candidate *Candidate `json:"candidate"`
}

type SimilarCandidatesRequest struct {
	CandidateId string `json:"candidate_id"`
	Limit       int32  `json:"limit,omitempty"`
}

type SimilarCandidate struct {
	CandidateId string   `json:"candidate_id"`
	FullName    string   `json:"full_name,omitempty"`
	MatchScore  *float64 `json:"match_score,omitempty"`
	Distance    float64  `json:"distance"`
}

type SimilarCandidatesResponse struct {
	Matches []*SimilarCandidate `json:"matches"`
}

type ListMatchesRequest struct {
	VacancyId string  `json:"vacancy_id"`
	MinScore  float64 `json:"min_score,omitempty"`
	Limit     int32   `json:"limit,omitempty"`
}

type Match struct {
	CandidateId     string   `json:"candidate_id"`
	FullName        string   `json:"full_name,omitempty"`
	MatchScore      float64  `json:"match_score"`
	Skills          []string `json:"skills"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`
	AiSummary       string   `json:"ai_summary,omitempty"`
}

type ListMatchesResponse struct {
	VacancyId    string   `json:"vacancy_id"`
	VacancyTitle string   `json:"vacancy_title"`
	Matches      []*Match `json:"matches"`
}

type ExportBoardResponse struct {
	Xlsx []byte `json:"xlsx"`
}
