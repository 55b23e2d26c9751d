package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
)

type listQueue struct {
	mu   sync.Mutex
	ids  []uuid.UUID
	fail bool
}

func (q *listQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue full")
	}
	q.ids = append(q.ids, job.JobID)
	return nil
}

func (q *listQueue) Shutdown(context.Context) {}

func (q *listQueue) seen() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uuid.UUID(nil), q.ids...)
}

func TestSweeper_RequeuesOnlyStaleActiveJobs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stuck := e.submit(t, resumeText, constants.MediaTypeText)
	done := e.submit(t, resumeText, constants.MediaTypeText)
	require.NoError(t, e.orch.RunJob(ctx, done.ID))

	q := &listQueue{}
	s := NewSweeper(e.jobs, q, time.Minute, time.Second, nil)

	n, err := s.Requeue(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n, "fresh jobs are left alone")

	n, err = s.Requeue(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{stuck.ID}, q.seen())
}

func TestSweeper_RunDrivesStuckJobToCompletion(t *testing.T) {
	e := newEnv(t)
	job := e.submit(t, resumeText, constants.MediaTypeText)

	runner := &queueRunner{orch: e.orch}
	s := NewSweeper(e.jobs, runner, time.Millisecond, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		got, err := e.jobs.Get(context.Background(), job.ID)
		return err == nil && got.Stage == constants.JobStageCompleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSweeper_EnqueueFailureIsSkipped(t *testing.T) {
	e := newEnv(t)
	e.submit(t, resumeText, constants.MediaTypeText)

	n, err := NewSweeper(e.jobs, &listQueue{fail: true}, time.Minute, 0, nil).Requeue(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// queueRunner runs each enqueued job inline.
type queueRunner struct {
	orch *Orchestrator
}

func (q *queueRunner) Enqueue(ctx context.Context, job async.Job) error {
	return q.orch.RunJob(ctx, job.JobID)
}

func (q *queueRunner) Shutdown(context.Context) {}
