package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DraftSourceAiImport = "policy_ai_import"
	DraftSourceManual   = "manual"
)

// PolicyWizardDraft holds an agent's single in-flight submission. One row per
// agent; converting an import upserts over whatever was there before.
type PolicyWizardDraft struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"agent_id"`
	SourceType    string         `gorm:"column:source_type;not null" json:"source_type"`
	SourceID      *uuid.UUID     `gorm:"type:uuid;column:source_id" json:"source_id,omitempty"`
	Data          datatypes.JSON `gorm:"type:jsonb;column:data" json:"data"`
	MissingFields datatypes.JSON `gorm:"type:jsonb;column:missing_fields" json:"missing_fields,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PolicyWizardDraft) TableName() string { return "policy_wizard_draft" }
