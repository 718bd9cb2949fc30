package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type CommissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, commissions []*types.Commission) ([]*types.Commission, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Commission, error)
	ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, periodYear int, status string) ([]*types.Commission, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type commissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommissionRepo(db *gorm.DB, baseLog *logger.Logger) CommissionRepo {
	return &commissionRepo{db: db, log: baseLog.With("repo", "CommissionRepo")}
}

func (r *commissionRepo) Create(ctx context.Context, tx *gorm.DB, commissions []*types.Commission) ([]*types.Commission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(commissions) == 0 {
		return []*types.Commission{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&commissions).Error; err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *commissionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Commission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var commission types.Commission
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == uuid.Nil {
		return nil, nil
	}
	return &commission, nil
}

func (r *commissionRepo) ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, periodYear int, status string) ([]*types.Commission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Commission
	q := transaction.WithContext(ctx).
		Preload("Policy").
		Where("agent_id = ?", agentID)
	if periodYear > 0 {
		q = q.Where("period_year = ?", periodYear)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("period_year DESC, period_month DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commissionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Commission{}).
		Where("id = ?", id).
		Updates(updates).Error
}
