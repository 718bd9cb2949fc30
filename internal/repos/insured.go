package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type InsuredRepo interface {
	Create(ctx context.Context, tx *gorm.DB, insureds []*types.Insured) ([]*types.Insured, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Insured, error)
	GetByClientID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) (*types.Insured, error)
	ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]*types.Insured, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type insuredRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInsuredRepo(db *gorm.DB, baseLog *logger.Logger) InsuredRepo {
	return &insuredRepo{db: db, log: baseLog.With("repo", "InsuredRepo")}
}

func (r *insuredRepo) Create(ctx context.Context, tx *gorm.DB, insureds []*types.Insured) ([]*types.Insured, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(insureds) == 0 {
		return []*types.Insured{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&insureds).Error; err != nil {
		return nil, err
	}
	return insureds, nil
}

func (r *insuredRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Insured, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var insured types.Insured
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&insured).Error
	if err != nil {
		return nil, err
	}
	if insured.ID == uuid.Nil {
		return nil, nil
	}
	return &insured, nil
}

func (r *insuredRepo) GetByClientID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) (*types.Insured, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if clientID == uuid.Nil {
		return nil, nil
	}
	var insured types.Insured
	err := transaction.WithContext(ctx).
		Where("client_id = ?", clientID).
		Limit(1).
		Find(&insured).Error
	if err != nil {
		return nil, err
	}
	if insured.ID == uuid.Nil {
		return nil, nil
	}
	return &insured, nil
}

func (r *insuredRepo) ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]*types.Insured, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Insured
	if err := transaction.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *insuredRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Insured{}).
		Where("id = ?", id).
		Updates(updates).Error
}
