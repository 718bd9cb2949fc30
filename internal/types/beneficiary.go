package types

import (
	"time"

	"github.com/google/uuid"
)

type Beneficiary struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID          uuid.UUID `gorm:"type:uuid;not null;index" json:"policy_id"`
	FullName          string    `gorm:"not null;column:full_name" json:"full_name"`
	Relationship      string    `gorm:"column:relationship" json:"relationship"`
	BenefitPercentage float64   `gorm:"column:benefit_percentage;not null" json:"benefit_percentage"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Beneficiary) TableName() string { return "beneficiary" }
