package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobEventMeetingsProcessing names the durable event that triggers the
// transcript pipeline for a meeting.
const JobEventMeetingsProcessing = "meetings/processing"

// JobStatus represents the status of a background processing job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // Waiting to be claimed by a worker
	JobStatusRunning   JobStatus = "running"   // Claimed and executing
	JobStatusRetrying  JobStatus = "retrying"  // Failed transiently, scheduled for another attempt
	JobStatusCompleted JobStatus = "completed" // All pipeline steps done
	JobStatusFailed    JobStatus = "failed"    // Attempts exhausted or non-retryable failure
)

// ProcessingJob is one durable, at-least-once unit of transcript processing.
// The row itself is the delivery guarantee: it stays claimable until a worker
// marks it completed, so a crashed worker simply results in redelivery.
type ProcessingJob struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Event         string    `gorm:"type:varchar(100);not null;index" json:"event"`
	MeetingID     string    `gorm:"type:varchar(36);not null;index" json:"meeting_id"`
	TranscriptURL string    `gorm:"type:text;not null" json:"transcript_url"`
	Status        JobStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Attempts    int        `gorm:"type:integer;default:0" json:"attempts"`
	MaxAttempts int        `gorm:"type:integer;default:3" json:"max_attempts"`
	LastError   *string    `gorm:"type:text" json:"last_error,omitempty"`
	NextRunAt   time.Time  `gorm:"not null;index" json:"next_run_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for ProcessingJob
func (ProcessingJob) TableName() string {
	return "processing_jobs"
}

// NewProcessingJob creates a pending meetings/processing job
func NewProcessingJob(meetingID, transcriptURL string, maxAttempts int) *ProcessingJob {
	return &ProcessingJob{
		ID:            uuid.New(),
		Event:         JobEventMeetingsProcessing,
		MeetingID:     meetingID,
		TranscriptURL: transcriptURL,
		Status:        JobStatusPending,
		MaxAttempts:   maxAttempts,
		NextRunAt:     time.Now().UTC(),
	}
}

// HasAttemptsLeft checks whether the job may be retried again
func (j *ProcessingJob) HasAttemptsLeft() bool {
	return j.Attempts < j.MaxAttempts
}

// JobStep records the memoized result of one completed pipeline step. A
// retried job consults this table and resumes after the last completed step
// instead of recomputing it.
type JobStep struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	JobID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_job_step" json:"job_id"`
	Name        string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_job_step" json:"name"`
	Result      datatypes.JSON `gorm:"type:jsonb" json:"result"`
	CompletedAt time.Time      `gorm:"not null" json:"completed_at"`
}

// TableName specifies the table name for JobStep
func (JobStep) TableName() string {
	return "job_steps"
}
