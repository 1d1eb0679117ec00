package meeting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
)

// CallProvider abstracts the call provider operations the state machine needs
type CallProvider interface {
	ConnectAgent(ctx context.Context, meetingID, agentUserID, instructions string) error
	EndCall(ctx context.Context, meetingID string) error
}

// Dispatcher hands a meeting off to the background transcript pipeline. The
// dispatcher's job is done once the event is durably accepted; it never waits
// for pipeline completion.
type Dispatcher interface {
	Enqueue(ctx context.Context, meetingID, transcriptURL string) error
}

// Service applies webhook-driven transitions to the meeting lifecycle
type Service interface {
	StartSession(ctx context.Context, meetingID string) error
	ParticipantLeft(ctx context.Context, meetingID string) error
	EndSession(ctx context.Context, meetingID string) error
	TranscriptionReady(ctx context.Context, meetingID, transcriptURL string) error
	RecordingReady(ctx context.Context, meetingID, recordingURL string) error
}

type service struct {
	meetings   repositories.MeetingRepository
	agents     repositories.AgentRepository
	calls      CallProvider
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewService constructs the meeting state machine service
func NewService(
	meetings repositories.MeetingRepository,
	agents repositories.AgentRepository,
	calls CallProvider,
	dispatcher Dispatcher,
	logger *zap.Logger,
) Service {
	return &service{
		meetings:   meetings,
		agents:     agents,
		calls:      calls,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// StartSession handles call.session_started: upcoming -> active, then opens
// the AI participant configured with the owning agent's instructions.
//
// The guarded update carries all the idempotency: when it matches zero rows
// because the meeting is already active, the delivery is a duplicate and the
// whole operation (including the agent connect) is skipped.
func (s *service) StartSession(ctx context.Context, meetingID string) error {
	started, err := s.meetings.MarkActive(ctx, meetingID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark meeting active: %w", err)
	}

	if !started {
		m, err := s.meetings.FindByID(ctx, meetingID)
		if err != nil {
			return err
		}
		if m.IsActive() {
			s.logger.Info("duplicate session_started ignored",
				zap.String("meeting_id", meetingID))
			return nil
		}
		return fmt.Errorf("%w: cannot start meeting in status %q", entities.ErrInvalidTransition, m.Status)
	}

	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}

	agent, err := s.agents.FindByID(ctx, m.AgentID)
	if err != nil {
		return err
	}

	// The meeting must not stay active with no AI participant, so a failed
	// connect is fatal for this event rather than logged and swallowed.
	if err := s.calls.ConnectAgent(ctx, meetingID, agent.ID, agent.Instructions); err != nil {
		return fmt.Errorf("connect agent participant: %w", err)
	}

	s.logger.Info("meeting started",
		zap.String("meeting_id", meetingID),
		zap.String("agent_id", agent.ID))
	return nil
}

// ParticipantLeft handles call.session_participant_left by ending the
// provider-side call. No meeting row is touched; the subsequent
// call.session_ended event drives the state transition.
func (s *service) ParticipantLeft(ctx context.Context, meetingID string) error {
	if err := s.calls.EndCall(ctx, meetingID); err != nil {
		return fmt.Errorf("end call after participant left: %w", err)
	}
	return nil
}

// EndSession handles call.session_ended: active -> processing. The guard on
// exactly `active` absorbs duplicate end events without re-setting ended_at.
func (s *service) EndSession(ctx context.Context, meetingID string) error {
	ended, err := s.meetings.MarkProcessing(ctx, meetingID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark meeting processing: %w", err)
	}

	if !ended {
		m, err := s.meetings.FindByID(ctx, meetingID)
		if err != nil {
			return err
		}
		switch m.Status {
		case entities.MeetingStatusProcessing, entities.MeetingStatusCompleted:
			s.logger.Info("duplicate session_ended ignored",
				zap.String("meeting_id", meetingID),
				zap.String("status", string(m.Status)))
			return nil
		default:
			return fmt.Errorf("%w: cannot end meeting in status %q", entities.ErrInvalidTransition, m.Status)
		}
	}

	return nil
}

// TranscriptionReady handles call.transcription_ready: persists the
// transcript URL, then dispatches the processing job. The job is only
// enqueued after the URL write succeeded, so a missing meeting never leaks a
// dangling job.
func (s *service) TranscriptionReady(ctx context.Context, meetingID, transcriptURL string) error {
	updated, err := s.meetings.SetTranscriptURL(ctx, meetingID, transcriptURL)
	if err != nil {
		return err
	}

	if err := s.dispatcher.Enqueue(ctx, updated.ID, transcriptURL); err != nil {
		return fmt.Errorf("enqueue processing job: %w", err)
	}

	s.logger.Info("transcript ready, processing dispatched",
		zap.String("meeting_id", updated.ID),
		zap.String("transcript_url", transcriptURL))
	return nil
}

// RecordingReady handles call.recording_ready; overwriting on replay is safe
func (s *service) RecordingReady(ctx context.Context, meetingID, recordingURL string) error {
	return s.meetings.SetRecordingURL(ctx, meetingID, recordingURL)
}
