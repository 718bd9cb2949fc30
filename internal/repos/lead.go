package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type LeadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, leads []*types.Lead) ([]*types.Lead, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error)
	ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, status types.LeadStatus) ([]*types.Lead, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type leadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo {
	return &leadRepo{db: db, log: baseLog.With("repo", "LeadRepo")}
}

func (r *leadRepo) Create(ctx context.Context, tx *gorm.DB, leads []*types.Lead) ([]*types.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(leads) == 0 {
		return []*types.Lead{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *leadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lead types.Lead
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&lead).Error
	if err != nil {
		return nil, err
	}
	if lead.ID == uuid.Nil {
		return nil, nil
	}
	return &lead, nil
}

func (r *leadRepo) ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, status types.LeadStatus) ([]*types.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Lead
	q := transaction.WithContext(ctx).
		Where("agent_id = ?", agentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *leadRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Lead{}).
		Where("id = ?", id).
		Updates(updates).Error
}
