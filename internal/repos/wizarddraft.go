package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type WizardDraftRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, draft *types.PolicyWizardDraft) (*types.PolicyWizardDraft, error)
	GetByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (*types.PolicyWizardDraft, error)
	DeleteByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error
}

type wizardDraftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWizardDraftRepo(db *gorm.DB, baseLog *logger.Logger) WizardDraftRepo {
	return &wizardDraftRepo{db: db, log: baseLog.With("repo", "WizardDraftRepo")}
}

// Upsert keeps the one-draft-per-agent invariant: a conflict on agent_id
// overwrites the previous draft in place.
func (r *wizardDraftRepo) Upsert(ctx context.Context, tx *gorm.DB, draft *types.PolicyWizardDraft) (*types.PolicyWizardDraft, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if draft == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"source_type", "source_id", "data", "missing_fields", "updated_at"}),
		}).
		Create(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *wizardDraftRepo) GetByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (*types.PolicyWizardDraft, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var draft types.PolicyWizardDraft
	err := transaction.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Limit(1).
		Find(&draft).Error
	if err != nil {
		return nil, err
	}
	if draft.ID == uuid.Nil {
		return nil, nil
	}
	return &draft, nil
}

func (r *wizardDraftRepo) DeleteByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if agentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&types.PolicyWizardDraft{}).Error
}
