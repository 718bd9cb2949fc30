package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type AgentTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tokens []*types.AgentToken) ([]*types.AgentToken, error)
	GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.AgentToken, error)
	GetByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) (*types.AgentToken, error)
	DeleteByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) error
	DeleteByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error
	DeleteExpired(ctx context.Context, tx *gorm.DB) error
}

type agentTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentTokenRepo(db *gorm.DB, baseLog *logger.Logger) AgentTokenRepo {
	return &agentTokenRepo{db: db, log: baseLog.With("repo", "AgentTokenRepo")}
}

func (r *agentTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.AgentToken) ([]*types.AgentToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tokens) == 0 {
		return []*types.AgentToken{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *agentTokenRepo) GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.AgentToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var token types.AgentToken
	err := transaction.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Limit(1).
		Find(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == uuid.Nil {
		return nil, nil
	}
	return &token, nil
}

func (r *agentTokenRepo) GetByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) (*types.AgentToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var token types.AgentToken
	err := transaction.WithContext(ctx).
		Where("access_token = ?", accessToken).
		Limit(1).
		Find(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == uuid.Nil {
		return nil, nil
	}
	return &token, nil
}

func (r *agentTokenRepo) DeleteByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&types.AgentToken{}).Error
}

func (r *agentTokenRepo) DeleteByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if agentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&types.AgentToken{}).Error
}

func (r *agentTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&types.AgentToken{}).Error
}
