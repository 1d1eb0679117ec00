package entities

import (
	"time"

	"github.com/google/uuid"
)

// Agent represents an AI assistant persona owned by a user. Agents are
// read-only collaborators during the call lifecycle: their instructions seed
// both the in-call participant and the post-meeting chat replies.
type Agent struct {
	ID           string    `gorm:"type:varchar(36);primary_key" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Instructions string    `gorm:"type:text;not null" json:"instructions"`
	UserID       string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Agent
func (Agent) TableName() string {
	return "agents"
}

// NewAgent creates a new agent
func NewAgent(name, instructions, userID string) *Agent {
	return &Agent{
		ID:           uuid.NewString(),
		Name:         name,
		Instructions: instructions,
		UserID:       userID,
	}
}
