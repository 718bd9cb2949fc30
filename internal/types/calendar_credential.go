package types

import (
	"time"

	"github.com/google/uuid"
)

// CalendarCredential stores a per-agent OAuth token set for renewal syncing.
type CalendarCredential struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"agent_id"`
	AccessToken  string     `gorm:"column:access_token" json:"-"`
	RefreshToken string     `gorm:"column:refresh_token" json:"-"`
	TokenExpiry  *time.Time `gorm:"column:token_expiry" json:"token_expiry,omitempty"`
	CalendarID   string     `gorm:"column:calendar_id" json:"calendar_id"`
	LastSyncedAt *time.Time `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CalendarCredential) TableName() string { return "calendar_credential" }
