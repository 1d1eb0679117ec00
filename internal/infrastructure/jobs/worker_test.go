package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/pkg/config"
)

type fakeJobRepo struct {
	created   []*entities.ProcessingJob
	completed []uuid.UUID
	retrying  []uuid.UUID
	failed    []uuid.UUID
	nextRuns  []time.Time
	lastErrs  []string
}

func (r *fakeJobRepo) Create(ctx context.Context, job *entities.ProcessingJob) error {
	r.created = append(r.created, job)
	return nil
}

func (r *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.ProcessingJob, error) {
	return nil, entities.ErrJobNotFound
}

func (r *fakeJobRepo) Claim(ctx context.Context, now time.Time, lease time.Duration) (*entities.ProcessingJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	r.completed = append(r.completed, id)
	return nil
}

func (r *fakeJobRepo) MarkRetrying(ctx context.Context, id uuid.UUID, nextRunAt time.Time, lastError string) error {
	r.retrying = append(r.retrying, id)
	r.nextRuns = append(r.nextRuns, nextRunAt)
	r.lastErrs = append(r.lastErrs, lastError)
	return nil
}

func (r *fakeJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	r.failed = append(r.failed, id)
	r.lastErrs = append(r.lastErrs, lastError)
	return nil
}

func (r *fakeJobRepo) GetStep(ctx context.Context, jobID uuid.UUID, name string) (*entities.JobStep, error) {
	return nil, nil
}

func (r *fakeJobRepo) SaveStep(ctx context.Context, step *entities.JobStep) error { return nil }

type fakeRunner struct {
	err      error
	panicVal interface{}
	runs     int
}

func (f *fakeRunner) Run(ctx context.Context, job *entities.ProcessingJob) error {
	f.runs++
	if f.panicVal != nil {
		panic(f.panicVal)
	}
	return f.err
}

func workerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Count:        1,
		PollInterval: 10 * time.Millisecond,
		JobTimeout:   time.Second,
		MaxAttempts:  3,
		LeaseTimeout: time.Minute,
	}
}

func claimedJob(attempts int) *entities.ProcessingJob {
	job := entities.NewProcessingJob("m1", "https://example.com/t.jsonl", 3)
	job.Status = entities.JobStatusRunning
	job.Attempts = attempts
	return job
}

func TestExecute_SuccessMarksCompleted(t *testing.T) {
	repo := &fakeJobRepo{}
	runner := &fakeRunner{}
	w := NewWorker(repo, runner, nil, workerConfig(), zap.NewNop())

	job := claimedJob(1)
	w.execute(context.Background(), 0, job)

	assert.Equal(t, 1, runner.runs)
	assert.Equal(t, []uuid.UUID{job.ID}, repo.completed)
	assert.Empty(t, repo.retrying)
	assert.Empty(t, repo.failed)
}

func TestExecute_RetryableFailureSchedulesRetry(t *testing.T) {
	repo := &fakeJobRepo{}
	runner := &fakeRunner{err: errors.New("transcript fetch returned status 503")}
	w := NewWorker(repo, runner, nil, workerConfig(), zap.NewNop())

	job := claimedJob(1)
	before := time.Now().UTC()
	w.execute(context.Background(), 0, job)

	require.Equal(t, []uuid.UUID{job.ID}, repo.retrying)
	assert.Empty(t, repo.failed)
	assert.True(t, repo.nextRuns[0].After(before), "retry must be scheduled in the future")
	assert.Contains(t, repo.lastErrs[0], "status 503")
}

func TestExecute_NonRetryableFailureMarksFailed(t *testing.T) {
	repo := &fakeJobRepo{}
	runner := &fakeRunner{err: errors.New("malformed transcript line 3")}
	w := NewWorker(repo, runner, nil, workerConfig(), zap.NewNop())

	job := claimedJob(1)
	w.execute(context.Background(), 0, job)

	assert.Empty(t, repo.retrying)
	assert.Equal(t, []uuid.UUID{job.ID}, repo.failed)
}

func TestExecute_ExhaustedAttemptsMarkFailed(t *testing.T) {
	repo := &fakeJobRepo{}
	runner := &fakeRunner{err: errors.New("transcript fetch returned status 503")}
	w := NewWorker(repo, runner, nil, workerConfig(), zap.NewNop())

	job := claimedJob(3)
	w.execute(context.Background(), 0, job)

	assert.Empty(t, repo.retrying, "a retryable error with no attempts left is terminal")
	assert.Equal(t, []uuid.UUID{job.ID}, repo.failed)
}

func TestExecute_PanicIsIsolatedAndTerminal(t *testing.T) {
	repo := &fakeJobRepo{}
	runner := &fakeRunner{panicVal: "nil map write"}
	w := NewWorker(repo, runner, nil, workerConfig(), zap.NewNop())

	job := claimedJob(1)
	require.NotPanics(t, func() {
		w.execute(context.Background(), 0, job)
	})

	require.Equal(t, []uuid.UUID{job.ID}, repo.failed)
	assert.Contains(t, repo.lastErrs[0], "nil map write")
}

func TestEnqueue_CreatesDurableJob(t *testing.T) {
	repo := &fakeJobRepo{}
	q := NewQueue(repo, nil, 3, zap.NewNop())

	require.NoError(t, q.Enqueue(context.Background(), "m1", "https://example.com/t.jsonl"))

	require.Len(t, repo.created, 1)
	job := repo.created[0]
	assert.Equal(t, entities.JobEventMeetingsProcessing, job.Event)
	assert.Equal(t, "m1", job.MeetingID)
	assert.Equal(t, "https://example.com/t.jsonl", job.TranscriptURL)
	assert.Equal(t, entities.JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxAttempts)
}
