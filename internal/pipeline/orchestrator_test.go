package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/core/lock"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/extract"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
	"github.com/joseph-ayodele/hiring-pipeline/internal/storage"
	"github.com/joseph-ayodele/hiring-pipeline/internal/tracker"
)

const resumeText = "Jane Doe\njane@example.com\nSenior Go engineer, 7 years building payment APIs."

// fakeModel serves both profile and score calls. Errors are consumed in order
// before the canned reply is returned.
type fakeModel struct {
	mu          sync.Mutex
	profileErrs []error
	scoreErrs   []error
	embedErr    error
	profileHook func()
	scoreHook   func()

	profileCalls int
	scoreCalls   int
	embedCalls   int
	lastVacancy  llm.VacancyContext
}

func (f *fakeModel) ExtractProfile(_ context.Context, _ string) (llm.ProfileFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileHook != nil {
		f.profileHook()
	}
	if len(f.profileErrs) > 0 {
		err := f.profileErrs[0]
		if len(f.profileErrs) > 1 {
			f.profileErrs = f.profileErrs[1:]
		}
		if err != nil {
			return llm.ProfileFields{}, err
		}
	}
	years := 7.0
	return llm.ProfileFields{
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Skills:          []string{"go", "postgres"},
		ExperienceYears: &years,
		WorkExperience:  []llm.WorkExperience{{Company: "Acme", Position: "Engineer"}},
	}, nil
}

func (f *fakeModel) ScoreMatch(_ context.Context, _ string, v llm.VacancyContext) (llm.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreCalls++
	f.lastVacancy = v
	if f.scoreHook != nil {
		f.scoreHook()
	}
	if len(f.scoreErrs) > 0 {
		err := f.scoreErrs[0]
		if len(f.scoreErrs) > 1 {
			f.scoreErrs = f.scoreErrs[1:]
		}
		if err != nil {
			return llm.MatchResult{}, err
		}
	}
	return llm.MatchResult{
		MatchScore: 82,
		Summary:    "Strong backend fit.",
		Strengths:  []string{"go"},
		Weaknesses: []string{"no kubernetes"},
	}, nil
}

func (f *fakeModel) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeModel) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls, f.scoreCalls
}

type env struct {
	orch       *Orchestrator
	model      *fakeModel
	store      *storage.MemoryStore
	jobs       repository.IngestionJobRepository
	candidates repository.CandidateRepository
	vacancies  repository.VacancyRepository
	stages     repository.StageRepository
	locker     *lock.LocalLocker
	cacheDir   string
}

func newEnv(t *testing.T, mutate ...func(*Deps)) *env {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: repository.SQLiteDSN(filepath.Join(t.TempDir(), "pipeline.db"))}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	e := &env{
		model:      &fakeModel{},
		store:      storage.NewMemoryStore(),
		jobs:       repository.NewIngestionJobRepository(db, nil),
		candidates: repository.NewCandidateRepository(db, nil),
		vacancies:  repository.NewVacancyRepository(db, nil),
		stages:     repository.NewStageRepository(db, nil),
		locker:     lock.NewLocalLocker(),
		cacheDir:   t.TempDir(),
	}
	deps := Deps{
		Tx:         db,
		Jobs:       e.jobs,
		Candidates: e.candidates,
		Vacancies:  e.vacancies,
		Store:      e.store,
		Extractor:  extract.NewExtractor(nil),
		Profiles:   e.model,
		Scorer:     e.model,
		Embedder:   e.model,
		Tracker:    tracker.New(db, e.stages, e.candidates, nil),
		Locker:     e.locker,
		Cache:      NewBlobCache(e.cacheDir),
	}
	for _, m := range mutate {
		m(&deps)
	}
	e.orch = New(deps, Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		LockTTL:        time.Minute,
	}, nil)
	return e
}

// submit creates a vacancy with two stages, a candidate and a PENDING job
// for content.
func (e *env) submit(t *testing.T, content, mediaType string) *entity.IngestionJob {
	t.Helper()
	ctx := context.Background()
	v := &entity.Vacancy{Title: "Backend Engineer", Requirements: "Go, SQL", RequiredSkills: []string{"go", "sql"}}
	require.NoError(t, e.vacancies.Create(ctx, v))
	for i, name := range []string{"Screening", "Interview"} {
		s := entity.PipelineStageDef{VacancyID: v.ID, Name: name, Slug: name, Order: (i + 1) * 10}
		require.NoError(t, e.stages.CreateStage(ctx, &s))
	}

	candidateID := uuid.New()
	key := storage.ResumeKey(candidateID, "txt")
	require.NoError(t, e.store.Put(ctx, key, []byte(content), mediaType))
	require.NoError(t, e.candidates.Ensure(ctx, candidateID, v.ID, key))

	job := &entity.IngestionJob{CandidateID: candidateID, VacancyID: v.ID, SourceBlobKey: key, MediaType: mediaType}
	require.NoError(t, e.jobs.Create(ctx, job))
	return job
}

func (e *env) job(t *testing.T, id uuid.UUID) *entity.IngestionJob {
	t.Helper()
	j, err := e.jobs.Get(context.Background(), id)
	require.NoError(t, err)
	return j
}

func (e *env) candidate(t *testing.T, id uuid.UUID) *entity.Candidate {
	t.Helper()
	c, err := e.candidates.Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

func unavailable() error {
	return common.KindError(constants.ErrKindInferenceUnavailable, "provider down", nil)
}

func TestRunJob_HappyPath(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()

	require.NoError(t, e.orch.RunJob(ctx, job.ID))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageCompleted, got.Stage)
	require.NotNil(t, got.RawText)
	assert.Contains(t, *got.RawText, "Senior Go engineer")
	assert.NotNil(t, got.FinishedAt)
	assert.Empty(t, got.ErrorKind)

	c := e.candidate(t, job.CandidateID)
	require.NotNil(t, c.FullName)
	assert.Equal(t, "Jane Doe", *c.FullName)
	assert.Equal(t, []string{"go", "postgres"}, c.Skills)
	require.NotNil(t, c.MatchScore)
	assert.Equal(t, 82.0, *c.MatchScore)
	require.NotNil(t, c.AISummary)
	assert.Equal(t, "Strong backend fit.", *c.AISummary)
	assert.True(t, c.HasEmbedding)

	assert.Equal(t, "Backend Engineer", e.model.lastVacancy.Title)
	assert.Equal(t, []string{"go", "sql"}, e.model.lastVacancy.RequiredSkills)

	a, err := e.stages.GetAssignment(ctx, job.CandidateID)
	require.NoError(t, err)
	require.NotNil(t, a)
	stages, err := e.stages.ListStages(ctx, job.VacancyID)
	require.NoError(t, err)
	assert.Equal(t, stages[0].ID, a.StageID)

	history, err := e.stages.History(ctx, job.CandidateID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, constants.SystemActor, history[0].MovedBy)
	assert.Nil(t, history[0].FromStageID)

	_, ok, err := NewBlobCache(e.cacheDir).Get(job.ID, job.SourceBlobKey)
	require.NoError(t, err)
	assert.False(t, ok, "cache is cleared after completion")
}

func TestRunJob_TerminalJobIsUntouched(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()
	require.NoError(t, e.orch.RunJob(ctx, job.ID))
	before := e.job(t, job.ID)

	require.NoError(t, e.orch.RunJob(ctx, job.ID))

	after := e.job(t, job.ID)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	p, s := e.model.calls()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, s)

	history, err := e.stages.History(ctx, job.CandidateID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunJob_ResumesFromCommittedStage(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()

	// A worker died after committing the extracted text.
	text := "Resumed resume text"
	require.NoError(t, e.jobs.Advance(ctx, job.ID, constants.JobStagePending, constants.JobStageDownloading, nil))
	require.NoError(t, e.jobs.Advance(ctx, job.ID, constants.JobStageDownloading, constants.JobStageExtractingText, nil))
	require.NoError(t, e.jobs.Advance(ctx, job.ID, constants.JobStageExtractingText, constants.JobStageExtractingProfile, &text))

	require.NoError(t, e.orch.RunJob(ctx, job.ID))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageCompleted, got.Stage)
	assert.Equal(t, text, *got.RawText)
	assert.Equal(t, 0, e.store.Gets(), "download is not repeated")
}

func TestRunJob_CacheMissFallsBackToStore(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()
	require.NoError(t, e.jobs.Advance(ctx, job.ID, constants.JobStagePending, constants.JobStageDownloading, nil))
	require.NoError(t, e.jobs.Advance(ctx, job.ID, constants.JobStageDownloading, constants.JobStageExtractingText, nil))

	require.NoError(t, e.orch.RunJob(ctx, job.ID))

	assert.Equal(t, constants.JobStageCompleted, e.job(t, job.ID).Stage)
	assert.Equal(t, 1, e.store.Gets())
}

func TestRunJob_EmptyDocumentFailsWithoutInference(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, "   \n\t  \n", constants.MediaTypeText)

	err := e.orch.RunJob(context.Background(), job.ID)
	require.Error(t, err)
	assert.Equal(t, constants.ErrKindUnparsableDocument, common.KindOf(err))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindUnparsableDocument, got.ErrorKind)
	assert.Nil(t, got.RawText)
	p, s := e.model.calls()
	assert.Zero(t, p)
	assert.Zero(t, s)
}

func TestRunJob_CorruptPDFFailsWithoutInference(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, "this is definitely not a pdf document", constants.MediaTypePDF)

	err := e.orch.RunJob(context.Background(), job.ID)
	require.Error(t, err)
	assert.Equal(t, constants.ErrKindExtractionFailed, common.KindOf(err))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindExtractionFailed, got.ErrorKind)
	assert.Zero(t, got.Attempts, "EXTRACTION_FAILED is not retried")
	assert.Nil(t, got.RawText)
	p, s := e.model.calls()
	assert.Zero(t, p)
	assert.Zero(t, s)
	assert.Nil(t, e.candidate(t, job.CandidateID).MatchScore)
}

func TestRunJob_UnsupportedMediaType(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, "GIF89a not really", "image/gif")

	err := e.orch.RunJob(context.Background(), job.ID)
	require.Error(t, err)

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindUnsupportedMediaType, got.ErrorKind)
	p, _ := e.model.calls()
	assert.Zero(t, p)
}

func TestRunJob_MissingBlobIsTerminal(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	require.NoError(t, e.store.Delete(context.Background(), job.SourceBlobKey))

	err := e.orch.RunJob(context.Background(), job.ID)
	require.Error(t, err)

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindNotFound, got.ErrorKind)
	assert.Equal(t, 1, e.store.Gets(), "NOT_FOUND is not retried")
}

func TestRunJob_TransientFailureRecovers(t *testing.T) {
	e := newEnv(t)
	e.model.profileErrs = []error{unavailable(), unavailable(), nil}
	job := e.submit(t, resumeText, constants.MediaTypeText)

	require.NoError(t, e.orch.RunJob(context.Background(), job.ID))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageCompleted, got.Stage)
	assert.Equal(t, 0, got.Attempts)
	p, _ := e.model.calls()
	assert.Equal(t, 3, p)
}

func TestRunJob_InferenceOutageExhaustsAttempts(t *testing.T) {
	e := newEnv(t)
	e.model.profileErrs = []error{unavailable()}
	job := e.submit(t, resumeText, constants.MediaTypeText)

	err := e.orch.RunJob(context.Background(), job.ID)
	require.Error(t, err)
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(err))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindInferenceUnavailable, got.ErrorKind)
	assert.Equal(t, 3, got.Attempts)
	require.NotNil(t, got.RawText, "extracted text survives the failure")
	p, s := e.model.calls()
	assert.Equal(t, 3, p)
	assert.Zero(t, s)

	c := e.candidate(t, job.CandidateID)
	assert.Nil(t, c.FullName)
	assert.Nil(t, c.MatchScore)
}

func TestRerun_ReusesRowAndCache(t *testing.T) {
	e := newEnv(t)
	e.model.profileErrs = []error{unavailable()}
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()
	require.Error(t, e.orch.RunJob(ctx, job.ID))
	assert.Equal(t, 1, e.store.Gets(), "extraction read the cached blob")

	e.model.profileErrs = nil
	require.NoError(t, e.orch.Rerun(ctx, job.ID))
	reset := e.job(t, job.ID)
	assert.Equal(t, constants.JobStagePending, reset.Stage)
	assert.Empty(t, reset.ErrorKind)
	assert.Zero(t, reset.Attempts)

	require.NoError(t, e.orch.RunJob(ctx, job.ID))
	assert.Equal(t, constants.JobStageCompleted, e.job(t, job.ID).Stage)
	assert.NotNil(t, e.candidate(t, job.CandidateID).MatchScore)
}

func TestRerun_RejectsNonFailedJob(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)

	err := e.orch.Rerun(context.Background(), job.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	err = e.orch.Rerun(context.Background(), uuid.New())
	assert.True(t, common.IsNotFound(err))
}

func TestCancel_FailsBeforeNextStage(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()

	ok, err := e.orch.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	err = e.orch.RunJob(ctx, job.ID)
	require.Error(t, err)
	assert.Equal(t, constants.ErrKindCancelled, common.KindOf(err))

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindCancelled, got.ErrorKind)
	assert.Zero(t, e.store.Gets())

	ok, err = e.orch.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok, "terminal jobs are not flagged")
}

func TestCancel_MidRunStopsAtStageBoundary(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()
	e.model.profileHook = func() {
		_, err := e.jobs.RequestCancel(ctx, job.ID)
		require.NoError(t, err)
	}

	err := e.orch.RunJob(ctx, job.ID)
	require.Error(t, err)

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindCancelled, got.ErrorKind)
	_, s := e.model.calls()
	assert.Zero(t, s, "scoring never starts")
	assert.NotNil(t, e.candidate(t, job.CandidateID).FullName, "the committed profile stays")
}

func TestRunJob_BusyLock(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx := context.Background()
	lease, err := e.locker.Acquire(ctx, lock.JobKey(job.ID.String()), time.Minute)
	require.NoError(t, err)

	err = e.orch.RunJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobBusy)
	assert.Equal(t, constants.JobStagePending, e.job(t, job.ID).Stage)

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, e.orch.RunJob(ctx, job.ID))
	assert.Equal(t, constants.JobStageCompleted, e.job(t, job.ID).Stage)
}

func TestRunJob_EmbeddingIsBestEffort(t *testing.T) {
	e := newEnv(t)
	e.model.embedErr = unavailable()
	job := e.submit(t, resumeText, constants.MediaTypeText)

	require.NoError(t, e.orch.RunJob(context.Background(), job.ID))

	assert.Equal(t, constants.JobStageCompleted, e.job(t, job.ID).Stage)
	c := e.candidate(t, job.CandidateID)
	assert.False(t, c.HasEmbedding)
	require.NotNil(t, c.MatchScore)
	assert.Equal(t, 1, e.model.embedCalls)
}

func TestRunJob_NoEmbedder(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.Embedder = nil })
	job := e.submit(t, resumeText, constants.MediaTypeText)

	require.NoError(t, e.orch.RunJob(context.Background(), job.ID))
	assert.False(t, e.candidate(t, job.CandidateID).HasEmbedding)
}

type failingAssigner struct{}

func (failingAssigner) AssignInitial(context.Context, uuid.UUID) (*entity.StageMove, error) {
	return nil, errors.New("assignment exploded")
}

func TestRunJob_ScoreCommitIsAtomic(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.Tracker = failingAssigner{} })
	job := e.submit(t, resumeText, constants.MediaTypeText)

	err := e.orch.RunJob(context.Background(), job.ID)
	require.Error(t, err)

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindInternal, got.ErrorKind)

	c := e.candidate(t, job.CandidateID)
	assert.Nil(t, c.MatchScore, "score rolled back with the failed assignment")
	assert.Nil(t, c.AISummary)
	_, s := e.model.calls()
	assert.Equal(t, 1, s, "INTERNAL is not retried")
}

func TestRunJob_InterruptedJobStaysResumable(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.model.scoreHook = cancel
	e.model.scoreErrs = []error{unavailable(), nil}

	err := e.orch.RunJob(ctx, job.ID)
	require.Error(t, err)

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageScoring, got.Stage)
	assert.Empty(t, got.ErrorKind)

	e.model.scoreHook = nil
	require.NoError(t, e.orch.RunJob(context.Background(), job.ID))
	assert.Equal(t, constants.JobStageCompleted, e.job(t, job.ID).Stage)
}

func TestRunJob_DeadlineFailsJobForRerun(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	e.model.scoreHook = func() { <-ctx.Done() }
	e.model.scoreErrs = []error{unavailable(), nil}

	err := e.orch.RunJob(ctx, job.ID)
	require.Error(t, err)

	got := e.job(t, job.ID)
	assert.Equal(t, constants.JobStageFailed, got.Stage)
	assert.Equal(t, constants.ErrKindInferenceUnavailable, got.ErrorKind)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "deadline exceeded during SCORING")

	active, err := e.jobs.FindActiveForCandidate(context.Background(), job.CandidateID)
	require.NoError(t, err)
	assert.Nil(t, active, "a timed-out job no longer blocks re-uploads")

	e.model.scoreHook = nil
	require.NoError(t, e.orch.Rerun(context.Background(), job.ID))
	require.NoError(t, e.orch.RunJob(context.Background(), job.ID))
	assert.Equal(t, constants.JobStageCompleted, e.job(t, job.ID).Stage)
}

func TestDeadlineCause(t *testing.T) {
	kept := deadlineCause(constants.JobStageDownloading, unavailable())
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(kept))

	bare := deadlineCause(constants.JobStageDownloading, context.DeadlineExceeded)
	assert.Equal(t, constants.ErrKindStorageUnavailable, common.KindOf(bare))
	assert.ErrorIs(t, bare, context.DeadlineExceeded)

	scoring := deadlineCause(constants.JobStageScoring, context.DeadlineExceeded)
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(scoring))
}
