package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
)

// meetingRepository implements the MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

// Create creates a new meeting
func (r *meetingRepository) Create(ctx context.Context, meeting *entities.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

// FindByID retrieves a meeting by its ID
func (r *meetingRepository) FindByID(ctx context.Context, id string) (*entities.Meeting, error) {
	var meeting entities.Meeting
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&meeting).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, err
	}
	return &meeting, nil
}

// MarkActive transitions upcoming -> active. The WHERE predicate is the
// guard: a replayed session_started event matches zero rows and that is the
// caller's signal to treat the delivery as a duplicate.
func (r *meetingRepository) MarkActive(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ? AND status = ?", id, entities.MeetingStatusUpcoming).
		Updates(map[string]interface{}{
			"status":     entities.MeetingStatusActive,
			"started_at": startedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkProcessing transitions active -> processing. Guarding on exactly
// `active` is what prevents duplicate session_ended events from re-setting
// ended_at once processing has begun.
func (r *meetingRepository) MarkProcessing(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ? AND status = ?", id, entities.MeetingStatusActive).
		Updates(map[string]interface{}{
			"status":   entities.MeetingStatusProcessing,
			"ended_at": endedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetTranscriptURL stores the transcript URL without a status guard and
// returns the updated row so the caller can dispatch the processing job only
// after persistence succeeded.
func (r *meetingRepository) SetTranscriptURL(ctx context.Context, id, url string) (*entities.Meeting, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", id).
		Update("transcript_url", url)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, entities.ErrMeetingNotFound
	}
	return r.FindByID(ctx, id)
}

// SetRecordingURL stores the recording URL; overwriting on replay is safe
func (r *meetingRepository) SetRecordingURL(ctx context.Context, id, url string) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", id).
		Update("recording_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrMeetingNotFound
	}
	return nil
}

// Complete stores the summary and moves the meeting to completed
func (r *meetingRepository) Complete(ctx context.Context, id, summary string) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"summary": summary,
			"status":  entities.MeetingStatusCompleted,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrMeetingNotFound
	}
	return nil
}
