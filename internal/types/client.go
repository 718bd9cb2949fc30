package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is the contractor: the person who owns and pays for policies.
type Client struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"agent_id"`
	FirstName  string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName   string         `gorm:"column:last_name" json:"last_name"`
	DocumentID string         `gorm:"column:document_id;index" json:"document_id"`
	Email      string         `gorm:"column:email" json:"email"`
	Phone      string         `gorm:"column:phone" json:"phone"`
	BirthDate  *time.Time     `gorm:"column:birth_date" json:"birth_date,omitempty"`
	Address    string         `gorm:"column:address" json:"address"`
	City       string         `gorm:"column:city" json:"city"`
	PostalCode string         `gorm:"column:postal_code" json:"postal_code"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Client) TableName() string { return "client" }
