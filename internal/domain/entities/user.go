package entities

import "time"

// User represents an account holder who owns meetings and agents
type User struct {
	ID        string    `gorm:"type:varchar(36);primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
