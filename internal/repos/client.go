package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type ClientRepo interface {
	Create(ctx context.Context, tx *gorm.DB, clients []*types.Client) ([]*types.Client, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Client, error)
	ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, search string) ([]*types.Client, error)
	GetByDocumentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, documentID string) (*types.Client, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type clientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClientRepo(db *gorm.DB, baseLog *logger.Logger) ClientRepo {
	return &clientRepo{db: db, log: baseLog.With("repo", "ClientRepo")}
}

func (r *clientRepo) Create(ctx context.Context, tx *gorm.DB, clients []*types.Client) ([]*types.Client, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(clients) == 0 {
		return []*types.Client{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Client, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var client types.Client
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == uuid.Nil {
		return nil, nil
	}
	return &client, nil
}

func (r *clientRepo) ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, search string) ([]*types.Client, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Client
	q := transaction.WithContext(ctx).
		Where("agent_id = ?", agentID)
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("first_name LIKE ? OR last_name LIKE ? OR document_id LIKE ? OR email LIKE ?", pattern, pattern, pattern, pattern)
	}
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *clientRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, documentID string) (*types.Client, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == "" {
		return nil, nil
	}
	var client types.Client
	err := transaction.WithContext(ctx).
		Where("agent_id = ? AND document_id = ?", agentID, documentID).
		Limit(1).
		Find(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == uuid.Nil {
		return nil, nil
	}
	return &client, nil
}

func (r *clientRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Client{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *clientRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Client{}).Error
}
