package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CommissionStatusPendiente = "pendiente"
	CommissionStatusPagada    = "pagada"
)

type Commission struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"agent_id"`
	PolicyID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy      *Policy        `gorm:"foreignKey:PolicyID;references:ID" json:"policy,omitempty"`
	Amount      float64        `gorm:"column:amount;not null" json:"amount"`
	Currency    string         `gorm:"column:currency" json:"currency"`
	Percentage  float64        `gorm:"column:percentage" json:"percentage"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	PeriodYear  int            `gorm:"column:period_year;index" json:"period_year"`
	PeriodMonth int            `gorm:"column:period_month" json:"period_month"`
	PaidAt      *time.Time     `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Commission) TableName() string { return "commission" }
