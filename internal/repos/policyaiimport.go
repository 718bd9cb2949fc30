package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type PolicyAiImportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, imports []*types.PolicyAiImport) ([]*types.PolicyAiImport, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PolicyAiImport, error)
	GetByIDWithFiles(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PolicyAiImport, error)
	ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]*types.PolicyAiImport, error)
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleProcessing time.Duration) (*types.PolicyAiImport, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type policyAiImportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyAiImportRepo(db *gorm.DB, baseLog *logger.Logger) PolicyAiImportRepo {
	return &policyAiImportRepo{db: db, log: baseLog.With("repo", "PolicyAiImportRepo")}
}

func (r *policyAiImportRepo) Create(ctx context.Context, tx *gorm.DB, imports []*types.PolicyAiImport) ([]*types.PolicyAiImport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(imports) == 0 {
		return []*types.PolicyAiImport{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&imports).Error; err != nil {
		return nil, err
	}
	return imports, nil
}

func (r *policyAiImportRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PolicyAiImport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var imp types.PolicyAiImport
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&imp).Error
	if err != nil {
		return nil, err
	}
	if imp.ID == uuid.Nil {
		return nil, nil
	}
	return &imp, nil
}

func (r *policyAiImportRepo) GetByIDWithFiles(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PolicyAiImport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var imp types.PolicyAiImport
	err := transaction.WithContext(ctx).
		Preload("Files").
		Where("id = ?", id).
		Limit(1).
		Find(&imp).Error
	if err != nil {
		return nil, err
	}
	if imp.ID == uuid.Nil {
		return nil, nil
	}
	return &imp, nil
}

func (r *policyAiImportRepo) ListByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]*types.PolicyAiImport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PolicyAiImport
	if err := transaction.WithContext(ctx).
		Preload("Files").
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ClaimNextRunnable atomically picks the oldest uploaded import, or a
// processing row whose heartbeat went stale, and flips it to processing.
// Failed and needs_review rows are not reclaimed here; only an explicit
// retry moves them back to uploaded.
func (r *policyAiImportRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleProcessing time.Duration) (*types.PolicyAiImport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)
	var claimed *types.PolicyAiImport
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var imp types.PolicyAiImport
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.ImportStatusUploaded, types.ImportStatusProcessing, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&imp).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.PolicyAiImport{}).
			Where("id = ?", imp.ID).
			Updates(map[string]interface{}{
				"status":                types.ImportStatusProcessing,
				"processing_stage":      types.ImportStageQueued,
				"progress":              0,
				"attempts":              gorm.Expr("attempts + 1"),
				"processing_started_at": now,
				"heartbeat_at":          now,
				"updated_at":            now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &imp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *policyAiImportRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.PolicyAiImport{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *policyAiImportRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.PolicyAiImport{}).
		Where("id = ? AND status = ?", id, types.ImportStatusProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
