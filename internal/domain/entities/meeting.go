package entities

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus represents the lifecycle state of a meeting
type MeetingStatus string

const (
	MeetingStatusUpcoming   MeetingStatus = "upcoming"
	MeetingStatusActive     MeetingStatus = "active"
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// Meeting represents a scheduled call between a user and an AI agent.
// Status only ever moves forward along upcoming -> active -> processing ->
// completed; cancelled is reachable from any non-terminal state. Every
// transition is enforced with a conditional update at the repository layer,
// never with application-level locking.
type Meeting struct {
	ID            string        `gorm:"type:varchar(36);primary_key" json:"id"`
	Name          string        `gorm:"type:varchar(255);not null" json:"name"`
	AgentID       string        `gorm:"type:varchar(36);not null;index" json:"agent_id"`
	Agent         *Agent        `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	UserID        string        `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Status        MeetingStatus `gorm:"type:varchar(20);not null;default:'upcoming';index" json:"status"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	TranscriptURL *string       `gorm:"type:text" json:"transcript_url,omitempty"`
	RecordingURL  *string       `gorm:"type:text" json:"recording_url,omitempty"`
	Summary       *string       `gorm:"type:text" json:"summary,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// NewMeeting creates a meeting in the upcoming state
func NewMeeting(name, agentID, userID string) *Meeting {
	return &Meeting{
		ID:      uuid.NewString(),
		Name:    name,
		AgentID: agentID,
		UserID:  userID,
		Status:  MeetingStatusUpcoming,
	}
}

// IsActive checks if the meeting call is in progress
func (m *Meeting) IsActive() bool {
	return m.Status == MeetingStatusActive
}

// IsCompleted checks if the meeting has finished processing
func (m *Meeting) IsCompleted() bool {
	return m.Status == MeetingStatusCompleted
}

// IsTerminal checks if the meeting can no longer transition
func (m *Meeting) IsTerminal() bool {
	return m.Status == MeetingStatusCompleted || m.Status == MeetingStatusCancelled
}
