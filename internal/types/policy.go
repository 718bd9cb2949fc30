package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyStatus is a closed set. Writes go through CanTransitionTo so illegal
// jumps (e.g. activo -> borrador) are rejected instead of silently stored.
type PolicyStatus string

const (
	PolicyStatusBorrador PolicyStatus = "borrador"
	PolicyStatusActivo   PolicyStatus = "activo"
	PolicyStatusCaducada PolicyStatus = "caducada"
)

var policyTransitions = map[PolicyStatus][]PolicyStatus{
	PolicyStatusBorrador: {PolicyStatusActivo},
	PolicyStatusActivo:   {PolicyStatusCaducada},
	PolicyStatusCaducada: {},
}

func (s PolicyStatus) Valid() bool {
	_, ok := policyTransitions[s]
	return ok
}

func (s PolicyStatus) CanTransitionTo(next PolicyStatus) bool {
	for _, allowed := range policyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	WizardStepContractor    = 1
	WizardStepInsured       = 2
	WizardStepDetails       = 3
	WizardStepBeneficiaries = 4
)

type Policy struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"agent_id"`
	ClientID       *uuid.UUID     `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client         *Client        `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	InsuredID      *uuid.UUID     `gorm:"type:uuid;index" json:"insured_id,omitempty"`
	Insured        *Insured       `gorm:"foreignKey:InsuredID;references:ID" json:"insured,omitempty"`
	Status         PolicyStatus   `gorm:"column:status;not null;index" json:"status"`
	CurrentStep    int            `gorm:"column:current_step;not null;default:1" json:"current_step"`
	PolicyNumber   string         `gorm:"column:policy_number;index" json:"policy_number"`
	PaymentChannel string         `gorm:"column:payment_channel" json:"payment_channel"`
	Product        string         `gorm:"column:product" json:"product"`
	Company        string         `gorm:"column:company" json:"company"`
	CoverageStart  *time.Time     `gorm:"column:coverage_start" json:"coverage_start,omitempty"`
	PremiumAmount  float64        `gorm:"column:premium_amount" json:"premium_amount"`
	Periodicity    string         `gorm:"column:periodicity" json:"periodicity"`
	PaymentMonth   int            `gorm:"column:payment_month" json:"payment_month"`
	Currency       string         `gorm:"column:currency" json:"currency"`
	Beneficiaries  []*Beneficiary `gorm:"foreignKey:PolicyID;references:ID" json:"beneficiaries,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Policy) TableName() string { return "policy" }
