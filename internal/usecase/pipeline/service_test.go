package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/pkg/ai"
)

type fakeMeetingRepo struct {
	meetings map[string]*entities.Meeting
}

func (r *fakeMeetingRepo) Create(ctx context.Context, m *entities.Meeting) error {
	r.meetings[m.ID] = m
	return nil
}

func (r *fakeMeetingRepo) FindByID(ctx context.Context, id string) (*entities.Meeting, error) {
	m, ok := r.meetings[id]
	if !ok {
		return nil, entities.ErrMeetingNotFound
	}
	return m, nil
}

func (r *fakeMeetingRepo) MarkActive(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	return false, nil
}

func (r *fakeMeetingRepo) MarkProcessing(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	return false, nil
}

func (r *fakeMeetingRepo) SetTranscriptURL(ctx context.Context, id, url string) (*entities.Meeting, error) {
	return nil, entities.ErrMeetingNotFound
}

func (r *fakeMeetingRepo) SetRecordingURL(ctx context.Context, id, url string) error {
	return nil
}

func (r *fakeMeetingRepo) Complete(ctx context.Context, id, summary string) error {
	m, ok := r.meetings[id]
	if !ok {
		return entities.ErrMeetingNotFound
	}
	m.Summary = &summary
	m.Status = entities.MeetingStatusCompleted
	return nil
}

type fakeUserRepo struct {
	users map[string]*entities.User
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	var out []*entities.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeAgentRepo struct {
	agents map[string]*entities.Agent
}

func (r *fakeAgentRepo) FindByID(ctx context.Context, id string) (*entities.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, entities.ErrAgentNotFound
	}
	return a, nil
}

func (r *fakeAgentRepo) FindByIDs(ctx context.Context, ids []string) ([]*entities.Agent, error) {
	var out []*entities.Agent
	for _, id := range ids {
		if a, ok := r.agents[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeJobRepo keeps step memos in memory keyed the same way the real table is
type fakeJobRepo struct {
	mu    sync.Mutex
	steps map[string]*entities.JobStep
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{steps: make(map[string]*entities.JobStep)}
}

func stepKey(jobID uuid.UUID, name string) string {
	return jobID.String() + "/" + name
}

func (r *fakeJobRepo) Create(ctx context.Context, job *entities.ProcessingJob) error { return nil }

func (r *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.ProcessingJob, error) {
	return nil, entities.ErrJobNotFound
}

func (r *fakeJobRepo) Claim(ctx context.Context, now time.Time, lease time.Duration) (*entities.ProcessingJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeJobRepo) MarkRetrying(ctx context.Context, id uuid.UUID, nextRunAt time.Time, lastError string) error {
	return nil
}

func (r *fakeJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return nil
}

func (r *fakeJobRepo) GetStep(ctx context.Context, jobID uuid.UUID, name string) (*entities.JobStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps[stepKey(jobID, name)], nil
}

func (r *fakeJobRepo) SaveStep(ctx context.Context, step *entities.JobStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[stepKey(step.JobID, step.Name)] = step
	return nil
}

type fakeLLM struct {
	calls   int
	reply   string
	err     error
	prompts [][]ai.ChatMessage
}

func (l *fakeLLM) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	l.calls++
	l.prompts = append(l.prompts, messages)
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

type pipelineFixture struct {
	service  Service
	meetings *fakeMeetingRepo
	jobs     *fakeJobRepo
	llm      *fakeLLM
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	meetings := &fakeMeetingRepo{meetings: map[string]*entities.Meeting{
		"m1": {ID: "m1", AgentID: "a1", UserID: "u1", Status: entities.MeetingStatusProcessing},
	}}
	users := &fakeUserRepo{users: map[string]*entities.User{
		"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com"},
	}}
	agents := &fakeAgentRepo{agents: map[string]*entities.Agent{
		"a1": {ID: "a1", Name: "Recap Bot", Instructions: "be concise", UserID: "u1"},
	}}
	jobs := newFakeJobRepo()
	llm := &fakeLLM{reply: "### Overview\nA short meeting."}

	svc := NewService(meetings, users, agents, jobs, llm, time.Minute, zap.NewNop())
	return &pipelineFixture{service: svc, meetings: meetings, jobs: jobs, llm: llm}
}

func transcriptServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const sampleTranscript = `{"speaker_id":"u1","type":"speech","text":"shall we start?","start_ts":0,"stop_ts":900}
{"speaker_id":"a1","type":"speech","text":"yes, first item is the launch date","start_ts":1000,"stop_ts":2500}
{"speaker_id":"ghost","type":"speech","text":"sorry, joining late","start_ts":2600,"stop_ts":3200}`

func TestRun_CompletesMeetingWithSummary(t *testing.T) {
	f := newPipelineFixture(t)
	srv := transcriptServer(t, sampleTranscript, http.StatusOK)

	job := entities.NewProcessingJob("m1", srv.URL, 3)
	require.NoError(t, f.service.Run(context.Background(), job))

	m := f.meetings.meetings["m1"]
	assert.Equal(t, entities.MeetingStatusCompleted, m.Status)
	require.NotNil(t, m.Summary)
	assert.Equal(t, "### Overview\nA short meeting.", *m.Summary)
	assert.Equal(t, 1, f.llm.calls)
}

func TestRun_ResolvesSpeakersWithUnknownFallback(t *testing.T) {
	f := newPipelineFixture(t)
	srv := transcriptServer(t, sampleTranscript, http.StatusOK)

	job := entities.NewProcessingJob("m1", srv.URL, 3)
	require.NoError(t, f.service.Run(context.Background(), job))

	step, err := f.jobs.GetStep(context.Background(), job.ID, stepAddSpeakers)
	require.NoError(t, err)
	require.NotNil(t, step)

	var enriched []entities.EnrichedTranscriptItem
	require.NoError(t, json.Unmarshal(step.Result, &enriched))
	require.Len(t, enriched, 3)
	assert.Equal(t, "Alice", enriched[0].User.Name)
	assert.Equal(t, "Recap Bot", enriched[1].User.Name)
	assert.Equal(t, entities.UnknownSpeakerName, enriched[2].User.Name)

	// The resolved names must be what the summarizer sees.
	require.Len(t, f.llm.prompts, 1)
	prompt := f.llm.prompts[0]
	require.Len(t, prompt, 2)
	assert.Contains(t, prompt[1].Content, "Alice")
	assert.Contains(t, prompt[1].Content, entities.UnknownSpeakerName)
}

func TestRun_ResumeSkipsMemoizedSteps(t *testing.T) {
	f := newPipelineFixture(t)
	srv := transcriptServer(t, sampleTranscript, http.StatusOK)

	job := entities.NewProcessingJob("m1", srv.URL, 3)

	// First run fails at the summarize step.
	f.llm.err = assert.AnError
	err := f.service.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, 1, f.llm.calls)

	// Steps before the failure are memoized, the failed one is not.
	for _, name := range []string{stepFetchTranscript, stepParseTranscript, stepAddSpeakers} {
		step, err := f.jobs.GetStep(context.Background(), job.ID, name)
		require.NoError(t, err)
		assert.NotNil(t, step, "step %s should be memoized", name)
	}
	missing, err := f.jobs.GetStep(context.Background(), job.ID, stepSummarize)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Redelivery resumes after add-speakers: the transcript is not
	// re-fetched even though the artifact server is gone.
	srv.Close()
	f.llm.err = nil
	require.NoError(t, f.service.Run(context.Background(), job))

	assert.Equal(t, 2, f.llm.calls)
	assert.Equal(t, entities.MeetingStatusCompleted, f.meetings.meetings["m1"].Status)
}

func TestRun_RerunAfterCompletionIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t)
	srv := transcriptServer(t, sampleTranscript, http.StatusOK)

	job := entities.NewProcessingJob("m1", srv.URL, 3)
	require.NoError(t, f.service.Run(context.Background(), job))
	require.NoError(t, f.service.Run(context.Background(), job))

	assert.Equal(t, 1, f.llm.calls, "a fully memoized job must not call the LLM again")
	assert.Equal(t, entities.MeetingStatusCompleted, f.meetings.meetings["m1"].Status)
}

func TestRun_ClientErrorOnFetchIsPermanent(t *testing.T) {
	f := newPipelineFixture(t)
	srv := transcriptServer(t, "gone", http.StatusNotFound)

	job := entities.NewProcessingJob("m1", srv.URL, 3)
	start := time.Now()
	err := f.service.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Less(t, time.Since(start), 5*time.Second, "4xx must not be retried until the backoff budget runs out")
	assert.Equal(t, 0, f.llm.calls)
}

func TestRun_MalformedTranscriptFails(t *testing.T) {
	f := newPipelineFixture(t)
	srv := transcriptServer(t, "{\"speaker_id\":\"u1\"}\nnot json", http.StatusOK)

	job := entities.NewProcessingJob("m1", srv.URL, 3)
	err := f.service.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), stepParseTranscript)
	assert.NotEqual(t, entities.MeetingStatusCompleted, f.meetings.meetings["m1"].Status)
}
