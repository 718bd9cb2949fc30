package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type AgentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, agents []*types.Agent) ([]*types.Agent, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Agent, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Agent, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Agent, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return &agentRepo{db: db, log: baseLog.With("repo", "AgentRepo")}
}

func (r *agentRepo) Create(ctx context.Context, tx *gorm.DB, agents []*types.Agent) ([]*types.Agent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(agents) == 0 {
		return []*types.Agent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Agent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var agent types.Agent
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == uuid.Nil {
		return nil, nil
	}
	return &agent, nil
}

func (r *agentRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Agent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var agent types.Agent
	err := transaction.WithContext(ctx).
		Where("email = ?", email).
		Limit(1).
		Find(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == uuid.Nil {
		return nil, nil
	}
	return &agent, nil
}

func (r *agentRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Agent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var agent types.Agent
	err := transaction.WithContext(ctx).
		Where("profile_slug = ?", slug).
		Limit(1).
		Find(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == uuid.Nil {
		return nil, nil
	}
	return &agent, nil
}

func (r *agentRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Agent{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *agentRepo) SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Agent{}).
		Where("profile_slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *agentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Agent{}).
		Where("id = ?", id).
		Updates(updates).Error
}
