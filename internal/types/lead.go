package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStatus tracks a lead across the kanban columns. Won and lost are
// terminal; everything else moves forward or drops to perdido.
type LeadStatus string

const (
	LeadStatusNuevo         LeadStatus = "nuevo"
	LeadStatusContactado    LeadStatus = "contactado"
	LeadStatusEnNegociacion LeadStatus = "en_negociacion"
	LeadStatusGanado        LeadStatus = "ganado"
	LeadStatusPerdido       LeadStatus = "perdido"
)

var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNuevo:         {LeadStatusContactado, LeadStatusPerdido},
	LeadStatusContactado:    {LeadStatusEnNegociacion, LeadStatusPerdido},
	LeadStatusEnNegociacion: {LeadStatusGanado, LeadStatusPerdido},
	LeadStatusGanado:        {},
	LeadStatusPerdido:       {},
}

func (s LeadStatus) Valid() bool {
	_, ok := leadTransitions[s]
	return ok
}

func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	for _, allowed := range leadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Lead struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"agent_id"`
	Status    LeadStatus     `gorm:"column:status;not null;index" json:"status"`
	FullName  string         `gorm:"not null;column:full_name" json:"full_name"`
	Email     string         `gorm:"column:email" json:"email"`
	Phone     string         `gorm:"column:phone" json:"phone"`
	Message   string         `gorm:"type:text;column:message" json:"message"`
	Source    string         `gorm:"column:source" json:"source"`
	Notes     string         `gorm:"type:text;column:notes" json:"notes"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lead) TableName() string { return "lead" }
