package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Agent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password        string         `gorm:"not null;column:password" json:"-"`
	FirstName       string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName        string         `gorm:"not null;column:last_name" json:"last_name"`
	Phone           string         `gorm:"column:phone" json:"phone"`
	ProfileSlug     string         `gorm:"uniqueIndex;column:profile_slug" json:"profile_slug"`
	Bio             string         `gorm:"type:text;column:bio" json:"bio"`
	AvatarBucketKey string         `gorm:"column:avatar_bucket_key" json:"avatar_bucket_key"`
	AvatarURL       string         `gorm:"column:avatar_url" json:"avatar_url"`
	AvatarColor     string         `gorm:"column:avatar_color" json:"avatar_color"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Agent) TableName() string { return "agent" }

type AgentToken struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID      uuid.UUID `gorm:"type:uuid;index;not null" json:"agent_id"`
	Agent        *Agent    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AgentID;references:ID" json:"-"`
	AccessToken  string    `gorm:"uniqueIndex;not null;column:access_token" json:"access_token"`
	RefreshToken string    `gorm:"uniqueIndex;not null;column:refresh_token" json:"refresh_token"`
	ExpiresAt    time.Time `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AgentToken) TableName() string { return "agent_token" }
