package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/types"
)

type ImportFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.PolicyAiImportFile) ([]*types.PolicyAiImportFile, error)
	ListByImport(ctx context.Context, tx *gorm.DB, importID uuid.UUID) ([]*types.PolicyAiImportFile, error)
	CountByImport(ctx context.Context, tx *gorm.DB, importID uuid.UUID) (int64, error)
}

type importFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImportFileRepo(db *gorm.DB, baseLog *logger.Logger) ImportFileRepo {
	return &importFileRepo{db: db, log: baseLog.With("repo", "ImportFileRepo")}
}

func (r *importFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.PolicyAiImportFile) ([]*types.PolicyAiImportFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(files) == 0 {
		return []*types.PolicyAiImportFile{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *importFileRepo) ListByImport(ctx context.Context, tx *gorm.DB, importID uuid.UUID) ([]*types.PolicyAiImportFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PolicyAiImportFile
	if err := transaction.WithContext(ctx).
		Where("import_id = ?", importID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *importFileRepo) CountByImport(ctx context.Context, tx *gorm.DB, importID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.PolicyAiImportFile{}).
		Where("import_id = ?", importID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
