package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Insured is the person whose risk a policy covers. ClientID links back to the
// contractor only when the insured was created from ("same as client") or
// attached to a client; independently added insureds keep it nil.
type Insured struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"agent_id"`
	ClientID   *uuid.UUID     `gorm:"type:uuid;index" json:"client_id,omitempty"`
	FirstName  string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName   string         `gorm:"column:last_name" json:"last_name"`
	DocumentID string         `gorm:"column:document_id;index" json:"document_id"`
	Email      string         `gorm:"column:email" json:"email"`
	Phone      string         `gorm:"column:phone" json:"phone"`
	BirthDate  *time.Time     `gorm:"column:birth_date" json:"birth_date,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Insured) TableName() string { return "insured" }
