package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat is a single turn within a session. Rows are append-only; conversation
// order is creation order.
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
