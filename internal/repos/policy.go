package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type PolicyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, policies []*types.Policy) ([]*types.Policy, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error)
	GetByIDWithRelations(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error)
	ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, status types.PolicyStatus) ([]*types.Policy, error)
	ListActiveWithCoverageStart(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]*types.Policy, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type policyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PolicyRepo {
	return &policyRepo{db: db, log: baseLog.With("repo", "PolicyRepo")}
}

func (r *policyRepo) Create(ctx context.Context, tx *gorm.DB, policies []*types.Policy) ([]*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(policies) == 0 {
		return []*types.Policy{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

func (r *policyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var policy types.Policy
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == uuid.Nil {
		return nil, nil
	}
	return &policy, nil
}

func (r *policyRepo) GetByIDWithRelations(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var policy types.Policy
	err := transaction.WithContext(ctx).
		Preload("Client").
		Preload("Insured").
		Preload("Beneficiaries").
		Where("id = ?", id).
		Limit(1).
		Find(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == uuid.Nil {
		return nil, nil
	}
	return &policy, nil
}

func (r *policyRepo) ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, status types.PolicyStatus) ([]*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Policy
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

func (r *policyRepo) ListActiveWithCoverageStart(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Policy
	if err := transaction.WithContext(ctx).
		Where("agent_id = ? AND status = ? AND coverage_start IS NOT NULL", agentID, types.PolicyStatusActivo).
		Order("coverage_start ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *policyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Policy{}).
		Where("id = ?", id).
		Updates(updates).Error
}
