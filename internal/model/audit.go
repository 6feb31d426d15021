package model

import "time"

// AuditEvent records the outcome of a single copilot turn. Events are
// published fire-and-forget per turn and persisted by a background worker;
// a lost event never fails the turn.
type AuditEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TurnID     string    `gorm:"size:64;index" json:"turn_id"`
	UserID     string    `gorm:"size:64;index" json:"user_id"`
	SessionID  string    `gorm:"size:64;index" json:"session_id"`
	Intent     string    `gorm:"size:32" json:"intent,omitempty"`
	State      string    `gorm:"size:32;not null" json:"state"`
	Blocked    bool      `json:"blocked"`
	RiskLevel  string    `gorm:"size:16" json:"risk_level,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
