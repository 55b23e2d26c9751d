package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
	"github.com/joseph-ayodele/hiring-pipeline/internal/storage"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func (q *recordingQueue) ids() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uuid.UUID, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.JobID)
	}
	return out
}

// repoControl stands in for the orchestrator's rerun and cancel.
type repoControl struct {
	jobs repository.IngestionJobRepository
}

func (c repoControl) Rerun(ctx context.Context, id uuid.UUID) error {
	return c.jobs.ResetFailed(ctx, id)
}

func (c repoControl) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.jobs.RequestCancel(ctx, id)
}

type env struct {
	svc       *Service
	jobs      repository.IngestionJobRepository
	cands     repository.CandidateRepository
	vacancies repository.VacancyRepository
	store     *storage.MemoryStore
	queue     *recordingQueue
	vacancy   uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: repository.SQLiteDSN(filepath.Join(t.TempDir(), "ingest.db"))}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	vacancies := repository.NewVacancyRepository(db, nil)
	v := &entity.Vacancy{Title: "Data Engineer", RequiredSkills: []string{"sql"}}
	require.NoError(t, vacancies.Create(ctx, v))

	e := &env{
		jobs:      repository.NewIngestionJobRepository(db, nil),
		cands:     repository.NewCandidateRepository(db, nil),
		vacancies: vacancies,
		store:     storage.NewMemoryStore(),
		queue:     &recordingQueue{},
		vacancy:   v.ID,
	}
	e.svc = NewService(Deps{
		Tx:         db,
		Vacancies:  vacancies,
		Candidates: e.cands,
		Jobs:       e.jobs,
		Store:      e.store,
		Queue:      e.queue,
		Control:    repoControl{jobs: e.jobs},
	}, nil)
	return e
}

func (e *env) request(candidateID uuid.UUID) EnqueueRequest {
	return EnqueueRequest{
		CandidateID: candidateID.String(),
		VacancyID:   e.vacancy.String(),
		BlobKey:     storage.ResumeKey(candidateID, "pdf"),
		MediaType:   "application/PDF",
	}
}

func TestEnqueueIngestionJob_CreatesPendingJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	candidateID := uuid.New()
	req := e.request(candidateID)

	res, err := e.svc.EnqueueIngestionJob(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.Deduplicated)
	assert.Equal(t, []uuid.UUID{res.JobID}, e.queue.ids())

	job, err := e.jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStagePending, job.Stage)
	assert.Equal(t, constants.MediaTypePDF, job.MediaType)
	assert.Equal(t, req.BlobKey, job.SourceBlobKey)

	c, err := e.cands.Get(ctx, candidateID)
	require.NoError(t, err)
	assert.Equal(t, e.vacancy, c.VacancyID)
	require.NotNil(t, c.ResumeBlobKey)
	assert.Equal(t, req.BlobKey, *c.ResumeBlobKey)

	st, err := e.svc.GetJobStatus(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStagePending, st.Stage)
	assert.Empty(t, st.ErrorKind)
	assert.Equal(t, candidateID, st.CandidateID)
}

func TestEnqueueIngestionJob_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*EnqueueRequest)
	}{
		{"bad candidate id", func(r *EnqueueRequest) { r.CandidateID = "nope" }},
		{"missing vacancy id", func(r *EnqueueRequest) { r.VacancyID = "" }},
		{"missing blob key", func(r *EnqueueRequest) { r.BlobKey = "" }},
		{"traversal blob key", func(r *EnqueueRequest) { r.BlobKey = "resumes/../secrets" }},
		{"missing media type", func(r *EnqueueRequest) { r.MediaType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.request(uuid.New())
			tt.mutate(&req)
			_, err := e.svc.EnqueueIngestionJob(ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
	assert.Empty(t, e.queue.ids())
}

func TestEnqueueIngestionJob_UnknownVacancy(t *testing.T) {
	e := newEnv(t)
	req := e.request(uuid.New())
	req.VacancyID = uuid.NewString()

	_, err := e.svc.EnqueueIngestionJob(context.Background(), req)
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
	assert.Empty(t, e.queue.ids())
}

func TestEnqueueIngestionJob_DeduplicatesActiveJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	candidateID := uuid.New()

	first, err := e.svc.EnqueueIngestionJob(ctx, e.request(candidateID))
	require.NoError(t, err)
	second, err := e.svc.EnqueueIngestionJob(ctx, e.request(candidateID))
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Len(t, e.queue.ids(), 1)

	// A finished job no longer blocks a new upload.
	require.NoError(t, e.jobs.Fail(ctx, first.JobID, constants.JobStagePending, constants.ErrKindInternal, "boom"))
	third, err := e.svc.EnqueueIngestionJob(ctx, e.request(candidateID))
	require.NoError(t, err)
	assert.False(t, third.Deduplicated)
	assert.NotEqual(t, first.JobID, third.JobID)
}

func TestEnqueueIngestionJob_ConcurrentSubmissionsShareOneJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	candidateID := uuid.New()

	const n = 8
	results := make([]EnqueueResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.svc.EnqueueIngestionJob(ctx, e.request(candidateID))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].Deduplicated {
			created++
		}
		assert.Equal(t, results[0].JobID, results[i].JobID)
	}
	assert.Equal(t, 1, created)
	assert.Len(t, e.queue.ids(), 1)

	active, err := e.jobs.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestEnqueueIngestionJob_CandidateOfOtherVacancy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	candidateID := uuid.New()
	_, err := e.svc.EnqueueIngestionJob(ctx, e.request(candidateID))
	require.NoError(t, err)

	req := e.request(candidateID)
	other := &entity.Vacancy{Title: "Analyst"}
	require.NoError(t, e.vacancies.Create(ctx, other))
	req.VacancyID = other.ID.String()
	_, err = e.svc.EnqueueIngestionJob(ctx, req)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestEnqueueIngestionJob_QueueFailureKeepsJob(t *testing.T) {
	e := newEnv(t)
	e.queue.err = errors.New("queue closed")
	ctx := context.Background()

	res, err := e.svc.EnqueueIngestionJob(ctx, e.request(uuid.New()))
	require.NoError(t, err)

	active, err := e.jobs.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{res.JobID}, active)
}

func TestUploadResume_StoresAndEnqueues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	data := []byte("Jane Doe\nSQL, Airflow, dbt\n")

	res, err := e.svc.UploadResume(ctx, UploadRequest{
		VacancyID: e.vacancy.String(),
		Filename:  "jane.txt",
		Data:      data,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.MediaTypeText, res.MediaType)
	assert.NotEqual(t, uuid.Nil, res.CandidateID)
	assert.True(t, strings.HasPrefix(res.BlobKey, "resumes/"+res.CandidateID.String()+"/"))
	assert.True(t, strings.HasSuffix(res.BlobKey, ".txt"))

	stored, err := e.store.Get(ctx, res.BlobKey)
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	job, err := e.jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, res.BlobKey, job.SourceBlobKey)

	url, err := e.svc.ResumeURL(ctx, res.JobID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://"+res.BlobKey, url)
}

func TestUploadResume_DuplicateDropsNewBlob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	candidateID := uuid.New()
	req := UploadRequest{CandidateID: candidateID.String(), VacancyID: e.vacancy.String(), Filename: "a.txt", Data: []byte("first resume")}

	first, err := e.svc.UploadResume(ctx, req)
	require.NoError(t, err)
	second, err := e.svc.UploadResume(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.JobID, second.JobID)
	_, err = e.store.Get(ctx, second.BlobKey)
	assert.Equal(t, constants.ErrKindNotFound, common.KindOf(err))
}

func TestUploadResume_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.UploadResume(ctx, UploadRequest{VacancyID: e.vacancy.String()})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = e.svc.UploadResume(ctx, UploadRequest{VacancyID: e.vacancy.String(), Data: make([]byte, MaxResumeBytes+1)})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = e.svc.UploadResume(ctx, UploadRequest{VacancyID: uuid.NewString(), Filename: "a.txt", Data: []byte("text")})
	assert.True(t, common.IsNotFound(err))
	assert.Empty(t, e.queue.ids())
}

func TestRerunAndCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.svc.EnqueueIngestionJob(ctx, e.request(uuid.New()))
	require.NoError(t, err)

	ok, err := e.svc.CancelJob(ctx, res.JobID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.jobs.Fail(ctx, res.JobID, constants.JobStagePending, constants.ErrKindCancelled, "cancelled"))
	st, err := e.svc.GetJobStatus(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStageFailed, st.Stage)
	assert.Equal(t, constants.ErrKindCancelled, st.ErrorKind)
	assert.Equal(t, "cancelled", st.ErrorMessage)

	require.NoError(t, e.svc.RerunJob(ctx, res.JobID))
	assert.Equal(t, []uuid.UUID{res.JobID, res.JobID}, e.queue.ids())

	_, err = e.svc.GetJobStatus(ctx, uuid.New())
	assert.True(t, common.IsNotFound(err))
}

func TestResolveUploadMediaType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		declared string
		filename string
		want     string
	}{
		{"declared wins", []byte("hello"), "application/pdf", "", constants.MediaTypePDF},
		{"sniffed pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), "", "", constants.MediaTypePDF},
		{"sniffed text", []byte("plain resume text"), "application/octet-stream", "", constants.MediaTypeText},
		{"extension fallback", []byte{0x00, 0x01, 0x02, 0x03}, "", "cv.DOCX", constants.MediaTypeDOCX},
		{"unknown stays unsupported", []byte("GIF89a"), "image/gif", "cv.gif", "image/gif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveUploadMediaType(tt.data, tt.declared, tt.filename))
		})
	}
}
