package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type BeneficiaryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, beneficiaries []*types.Beneficiary) ([]*types.Beneficiary, error)
	ListByPolicy(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.Beneficiary, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type beneficiaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBeneficiaryRepo(db *gorm.DB, baseLog *logger.Logger) BeneficiaryRepo {
	return &beneficiaryRepo{db: db, log: baseLog.With("repo", "BeneficiaryRepo")}
}

func (r *beneficiaryRepo) Create(ctx context.Context, tx *gorm.DB, beneficiaries []*types.Beneficiary) ([]*types.Beneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(beneficiaries) == 0 {
		return []*types.Beneficiary{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&beneficiaries).Error; err != nil {
		return nil, err
	}
	return beneficiaries, nil
}

func (r *beneficiaryRepo) ListByPolicy(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.Beneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Beneficiary
	if err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *beneficiaryRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Beneficiary{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *beneficiaryRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Beneficiary{}).Error
}
