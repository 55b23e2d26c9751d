package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
)

func TestParseUUID(t *testing.T) {
	id := uuid.New()
	got, err := ParseUUID("job_id", " "+id.String()+" ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("job_id", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "job_id is required")

	_, err = ParseUUID("job_id", "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestToPBCandidate_EmptyCollections(t *testing.T) {
	c := &entity.Candidate{ID: uuid.New(), VacancyID: uuid.New()}
	pb := ToPBCandidate(c)
	assert.NotNil(t, pb.Skills)
	assert.NotNil(t, pb.Education)
	assert.Empty(t, pb.FullName)
	assert.Nil(t, pb.MatchScore)
	assert.Empty(t, pb.CreatedAt)
}

func TestToPBStageMove(t *testing.T) {
	from := uuid.New()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	m := entity.StageMove{ID: uuid.New(), CandidateID: uuid.New(), FromStageID: &from, ToStageID: uuid.New(), MovedBy: "recruiter", Seq: 2, CreatedAt: ts}

	pb := ToPBStageMove(m)
	assert.Equal(t, from.String(), pb.FromStageId)
	assert.Equal(t, int32(2), pb.Seq)
	assert.Equal(t, "2026-03-01T09:00:00Z", pb.CreatedAt)

	m.FromStageID = nil
	assert.Empty(t, ToPBStageMove(m).FromStageId)
}

func TestToPBJobStatus(t *testing.T) {
	msg := "provider down"
	done := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j := ingest.JobStatus{
		JobID: uuid.New(), CandidateID: uuid.New(), Stage: constants.JobStageFailed,
		ErrorKind: constants.ErrKindInferenceUnavailable, ErrorMessage: msg, Attempts: 3, FinishedAt: &done,
	}
	pb := ToPBJobStatus(j)
	assert.Equal(t, "FAILED", pb.Stage)
	assert.Equal(t, "INFERENCE_UNAVAILABLE", pb.ErrorKind)
	assert.Equal(t, msg, pb.ErrorMessage)
	assert.Equal(t, int32(3), pb.Attempts)
	assert.Equal(t, "2026-01-02T03:04:05Z", pb.FinishedAt)
}
