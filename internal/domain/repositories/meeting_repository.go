package repositories

import (
	"context"
	"time"

	"github.com/derricker/meetai/internal/domain/entities"
)

// MeetingRepository defines meeting persistence operations.
//
// The Mark* methods are guarded conditional updates: each one only succeeds
// when the row is still in the expected predecessor state, and reports whether
// a row was updated. That predicate is the entire concurrency-control and
// idempotency story for webhook replays; callers decide whether a zero-row
// update is a duplicate delivery or a real precondition failure.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *entities.Meeting) error

	// FindByID returns entities.ErrMeetingNotFound when the row is absent.
	FindByID(ctx context.Context, id string) (*entities.Meeting, error)

	// MarkActive transitions upcoming -> active and sets started_at.
	MarkActive(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// MarkProcessing transitions active -> processing and sets ended_at.
	MarkProcessing(ctx context.Context, id string, endedAt time.Time) (bool, error)

	// SetTranscriptURL stores the transcript artifact URL without a status
	// guard (the event can race with session_ended) and returns the updated
	// row, or entities.ErrMeetingNotFound when no row was updated.
	SetTranscriptURL(ctx context.Context, id, url string) (*entities.Meeting, error)

	// SetRecordingURL stores the recording URL; idempotent overwrite.
	SetRecordingURL(ctx context.Context, id, url string) error

	// Complete stores the summary and moves the meeting to completed. It is
	// deliberately unguarded: it is only reached from the pipeline's terminal
	// step and re-running it with the same summary is idempotent.
	Complete(ctx context.Context, id, summary string) error
}
