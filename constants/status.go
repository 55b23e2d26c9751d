package constants

// JobStage is the canonical stage for rows in ingestion_jobs.
type JobStage string

// Stable values (store these exact strings in DB).
const (
	JobStagePending           JobStage = "PENDING"
	JobStageDownloading       JobStage = "DOWNLOADING"
	JobStageExtractingText    JobStage = "EXTRACTING_TEXT"
	JobStageExtractingProfile JobStage = "EXTRACTING_PROFILE"
	JobStageScoring           JobStage = "SCORING"
	JobStageCompleted         JobStage = "COMPLETED" // terminal
	JobStageFailed            JobStage = "FAILED"    // terminal
)

// JobStages lists the forward progression. FAILED sits outside it.
var JobStages = []JobStage{
	JobStagePending,
	JobStageDownloading,
	JobStageExtractingText,
	JobStageExtractingProfile,
	JobStageScoring,
	JobStageCompleted,
}

// Rank returns the position of s in the forward progression.
// FAILED ranks after every other stage; unknown values rank -1.
func (s JobStage) Rank() int {
	if s == JobStageFailed {
		return len(JobStages)
	}
	for i, st := range JobStages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s, or "" when s is terminal or unknown.
func (s JobStage) Next() JobStage {
	r := s.Rank()
	if r < 0 || r >= len(JobStages)-1 {
		return ""
	}
	return JobStages[r+1]
}

func (s JobStage) Terminal() bool {
	return s == JobStageCompleted || s == JobStageFailed
}

func (s JobStage) Valid() bool { return s.Rank() >= 0 }

// SystemActor is recorded as moved_by for moves made by the pipeline itself.
const SystemActor = "system"
