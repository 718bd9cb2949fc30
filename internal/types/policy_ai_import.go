package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportStatus forms a strict DAG:
//
//	uploaded -> processing -> {ready, needs_review, failed}
//
// plus the explicit retry edges {failed, needs_review} -> uploaded. Terminal
// states stay terminal until a user-triggered retry.
type ImportStatus string

const (
	ImportStatusUploaded    ImportStatus = "uploaded"
	ImportStatusProcessing  ImportStatus = "processing"
	ImportStatusReady       ImportStatus = "ready"
	ImportStatusNeedsReview ImportStatus = "needs_review"
	ImportStatusFailed      ImportStatus = "failed"
)

var importTransitions = map[ImportStatus][]ImportStatus{
	ImportStatusUploaded:    {ImportStatusProcessing},
	ImportStatusProcessing:  {ImportStatusReady, ImportStatusNeedsReview, ImportStatusFailed},
	ImportStatusReady:       {},
	ImportStatusNeedsReview: {ImportStatusUploaded},
	ImportStatusFailed:      {ImportStatusUploaded},
}

func (s ImportStatus) Valid() bool {
	_, ok := importTransitions[s]
	return ok
}

func (s ImportStatus) CanTransitionTo(next ImportStatus) bool {
	for _, allowed := range importTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether extraction finished (successfully or not).
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusReady || s == ImportStatusNeedsReview || s == ImportStatusFailed
}

// Processing stage labels, in execution order.
const (
	ImportStageQueued         = "queued"
	ImportStageUploadingFiles = "uploading_files"
	ImportStageAIRequest      = "ai_request"
	ImportStageParsing        = "parsing"
	ImportStageSaving         = "saving"
	ImportStageDone           = "done"
)

const MaxImportFiles = 5

type PolicyAiImport struct {
	ID                  uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID             uuid.UUID             `gorm:"type:uuid;not null;index" json:"agent_id"`
	ClientID            *uuid.UUID            `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Status              ImportStatus          `gorm:"column:status;not null;index" json:"status"`
	ProcessingStage     string                `gorm:"column:processing_stage" json:"processing_stage"`
	Progress            int                   `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts            int                   `gorm:"column:attempts;not null;default:0" json:"attempts"`
	HeartbeatAt         *time.Time            `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	ProcessingStartedAt *time.Time            `gorm:"column:processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingEndedAt   *time.Time            `gorm:"column:processing_ended_at" json:"processing_ended_at,omitempty"`
	ExtractedText       string                `gorm:"type:text;column:extracted_text" json:"extracted_text,omitempty"`
	AIData              datatypes.JSON        `gorm:"type:jsonb;column:ai_data" json:"ai_data,omitempty"`
	AIConfidence        datatypes.JSON        `gorm:"type:jsonb;column:ai_confidence" json:"ai_confidence,omitempty"`
	MissingFields       datatypes.JSON        `gorm:"type:jsonb;column:missing_fields" json:"missing_fields,omitempty"`
	ErrorMessage        string                `gorm:"column:error_message" json:"error_message,omitempty"`
	Files               []*PolicyAiImportFile `gorm:"foreignKey:ImportID;references:ID" json:"files,omitempty"`
	CreatedAt           time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt           time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt           gorm.DeletedAt        `gorm:"index" json:"deleted_at,omitempty"`
}

func (PolicyAiImport) TableName() string { return "policy_ai_import" }

type PolicyAiImportFile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ImportID     uuid.UUID `gorm:"type:uuid;not null;index" json:"import_id"`
	OriginalName string    `gorm:"column:original_name;not null" json:"original_name"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64     `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string    `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL      string    `gorm:"column:file_url" json:"file_url"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PolicyAiImportFile) TableName() string { return "policy_ai_import_file" }
