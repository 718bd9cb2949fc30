package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type CalendarCredentialRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, cred *types.CalendarCredential) (*types.CalendarCredential, error)
	GetByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (*types.CalendarCredential, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error
}

type calendarCredentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalendarCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CalendarCredentialRepo {
	return &calendarCredentialRepo{db: db, log: baseLog.With("repo", "CalendarCredentialRepo")}
}

func (r *calendarCredentialRepo) Upsert(ctx context.Context, tx *gorm.DB, cred *types.CalendarCredential) (*types.CalendarCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if cred == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "token_expiry", "calendar_id", "updated_at"}),
		}).
		Create(cred).Error; err != nil {
		return nil, err
	}
	return cred, nil
}

func (r *calendarCredentialRepo) GetByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (*types.CalendarCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cred types.CalendarCredential
	err := transaction.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Limit(1).
		Find(&cred).Error
	if err != nil {
		return nil, err
	}
	if cred.ID == uuid.Nil {
		return nil, nil
	}
	return &cred, nil
}

func (r *calendarCredentialRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.CalendarCredential{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *calendarCredentialRepo) DeleteByAgentID(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if agentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&types.CalendarCredential{}).Error
}
