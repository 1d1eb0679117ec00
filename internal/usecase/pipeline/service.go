package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
	"github.com/derricker/meetai/pkg/ai"
)

// Pipeline step names. These key the memo table, so renaming one invalidates
// resume points for in-flight jobs.
const (
	stepFetchTranscript = "fetch-transcript"
	stepParseTranscript = "parse-transcript"
	stepAddSpeakers     = "add-speakers"
	stepSummarize       = "summarize"
	stepSaveSummary     = "save-summary"
)

// LLM abstracts the completion service
type LLM interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// Service runs the transcript processing pipeline for one job
type Service interface {
	Run(ctx context.Context, job *entities.ProcessingJob) error
}

type service struct {
	meetings         repositories.MeetingRepository
	users            repositories.UserRepository
	agents           repositories.AgentRepository
	jobs             repositories.JobRepository
	llm              LLM
	httpClient       *http.Client
	summarizeTimeout time.Duration
	logger           *zap.Logger
}

// NewService constructs the transcript pipeline
func NewService(
	meetings repositories.MeetingRepository,
	users repositories.UserRepository,
	agents repositories.AgentRepository,
	jobs repositories.JobRepository,
	llm LLM,
	summarizeTimeout time.Duration,
	logger *zap.Logger,
) Service {
	return &service{
		meetings:         meetings,
		users:            users,
		agents:           agents,
		jobs:             jobs,
		llm:              llm,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		summarizeTimeout: summarizeTimeout,
		logger:           logger,
	}
}

// Run executes the five pipeline steps in order. Every step result is
// memoized against (job id, step name), so a redelivered job resumes after
// its last completed step instead of recomputing expensive work.
func (s *service) Run(ctx context.Context, job *entities.ProcessingJob) error {
	raw, err := runStep(ctx, s.jobs, job.ID, stepFetchTranscript, func(ctx context.Context) (string, error) {
		return s.fetchTranscript(ctx, job.TranscriptURL)
	})
	if err != nil {
		return err
	}

	transcript, err := runStep(ctx, s.jobs, job.ID, stepParseTranscript, func(ctx context.Context) ([]entities.TranscriptItem, error) {
		return parseTranscript(raw)
	})
	if err != nil {
		return err
	}

	enriched, err := runStep(ctx, s.jobs, job.ID, stepAddSpeakers, func(ctx context.Context) ([]entities.EnrichedTranscriptItem, error) {
		return s.addSpeakers(ctx, transcript)
	})
	if err != nil {
		return err
	}

	summary, err := runStep(ctx, s.jobs, job.ID, stepSummarize, func(ctx context.Context) (string, error) {
		return s.summarize(ctx, enriched)
	})
	if err != nil {
		return err
	}

	_, err = runStep(ctx, s.jobs, job.ID, stepSaveSummary, func(ctx context.Context) (bool, error) {
		if err := s.meetings.Complete(ctx, job.MeetingID, summary); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("meeting processing completed",
		zap.String("meeting_id", job.MeetingID),
		zap.String("job_id", job.ID.String()))
	return nil
}

// fetchTranscript downloads the transcript artifact, retrying transient
// failures with exponential backoff. Client-side rejections (4xx) are
// permanent: re-fetching the same URL will not change the outcome.
func (s *service) fetchTranscript(ctx context.Context, transcriptURL string) (string, error) {
	var body string

	fetch := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, transcriptURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("transcript fetch returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("transcript fetch returned status %d", resp.StatusCode))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = string(b)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(fetch, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	return body, nil
}

// addSpeakers resolves every distinct speaker id against the union of users
// and agents and maps unresolved ids to the Unknown sentinel.
func (s *service) addSpeakers(ctx context.Context, transcript []entities.TranscriptItem) ([]entities.EnrichedTranscriptItem, error) {
	seen := make(map[string]struct{})
	var speakerIDs []string
	for _, item := range transcript {
		if _, ok := seen[item.SpeakerID]; ok {
			continue
		}
		seen[item.SpeakerID] = struct{}{}
		speakerIDs = append(speakerIDs, item.SpeakerID)
	}

	names := make(map[string]string, len(speakerIDs))

	users, err := s.users.FindByIDs(ctx, speakerIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve user speakers: %w", err)
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}

	agents, err := s.agents.FindByIDs(ctx, speakerIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve agent speakers: %w", err)
	}
	for _, a := range agents {
		names[a.ID] = a.Name
	}

	enriched := make([]entities.EnrichedTranscriptItem, 0, len(transcript))
	for _, item := range transcript {
		name, ok := names[item.SpeakerID]
		if !ok {
			name = entities.UnknownSpeakerName
		}
		enriched = append(enriched, entities.EnrichedTranscriptItem{
			TranscriptItem: item,
			User:           entities.Speaker{Name: name},
		})
	}
	return enriched, nil
}

// summarize folds the enriched transcript into a single prompt and calls the
// completion service under a bounded timeout. The LLM call is the dominant
// latency source of the whole pipeline.
func (s *service) summarize(ctx context.Context, enriched []entities.EnrichedTranscriptItem) (string, error) {
	serialized, err := json.Marshal(enriched)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.summarizeTimeout)
	defer cancel()

	summary, err := s.llm.Complete(ctx, []ai.ChatMessage{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: "Summarize the following transcript: " + string(serialized)},
	})
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return summary, nil
}

// runStep executes fn unless a memoized result already exists for
// (jobID, name). Successful results are persisted before being returned, so
// a crash between steps resumes from the last completed one.
func runStep[T any](ctx context.Context, jobs repositories.JobRepository, jobID uuid.UUID, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	cached, err := jobs.GetStep(ctx, jobID, name)
	if err != nil {
		return zero, fmt.Errorf("load step %s: %w", name, err)
	}
	if cached != nil {
		var out T
		if err := json.Unmarshal(cached.Result, &out); err == nil {
			return out, nil
		}
		// Unreadable memo: fall through and recompute.
	}

	out, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %s: %w", name, err)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("encode step %s result: %w", name, err)
	}
	if err := jobs.SaveStep(ctx, &entities.JobStep{
		ID:          uuid.New(),
		JobID:       jobID,
		Name:        name,
		Result:      datatypes.JSON(raw),
		CompletedAt: time.Now().UTC(),
	}); err != nil {
		return zero, fmt.Errorf("save step %s: %w", name, err)
	}
	return out, nil
}
