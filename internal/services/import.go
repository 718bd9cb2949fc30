package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

const maxImportFileSize = 20 * 1024 * 1024

var allowedImportMimeTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

type FileUpload struct {
	Filename string
	MimeType string
	Size     int64
	Reader   io.Reader
}

type ImportStatusPayload struct {
	Status          types.ImportStatus `json:"status"`
	ProcessingStage string             `json:"processing_stage"`
	Progress        int                `json:"progress"`
	ErrorMessage    string             `json:"error_message,omitempty"`
	MissingFields   []string           `json:"missing_fields,omitempty"`
}

type ImportService interface {
	CreateImport(ctx context.Context, rd *requestdata.RequestData, upload FileUpload) (*types.PolicyAiImport, error)
	AppendFile(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID, upload FileUpload) (*types.PolicyAiImport, error)
	ListImports(ctx context.Context, rd *requestdata.RequestData) ([]*types.PolicyAiImport, error)
	GetImport(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyAiImport, error)
	GetStatus(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*ImportStatusPayload, error)
	Retry(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyAiImport, error)
	Convert(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyWizardDraft, error)
}

type importService struct {
	log        *logger.Logger
	db         *gorm.DB
	importRepo repos.PolicyAiImportRepo
	fileRepo   repos.ImportFileRepo
	draftRepo  repos.WizardDraftRepo
	bucket     BucketService
}

func NewImportService(
	log *logger.Logger,
	db *gorm.DB,
	importRepo repos.PolicyAiImportRepo,
	fileRepo repos.ImportFileRepo,
	draftRepo repos.WizardDraftRepo,
	bucket BucketService,
) ImportService {
	return &importService{
		log:        log.With("service", "ImportService"),
		db:         db,
		importRepo: importRepo,
		fileRepo:   fileRepo,
		draftRepo:  draftRepo,
		bucket:     bucket,
	}
}

func validateUpload(upload FileUpload) (string, error) {
	ext, ok := allowedImportMimeTypes[upload.MimeType]
	if !ok {
		return "", NewValidationError("unsupported file type", map[string]string{
			"file": fmt.Sprintf("type %q not allowed; expected PDF, JPEG or PNG", upload.MimeType),
		})
	}
	if upload.Size <= 0 {
		return "", NewValidationError("empty file", map[string]string{"file": "file is empty"})
	}
	if upload.Size > maxImportFileSize {
		return "", NewValidationError("file too large", map[string]string{
			"file": fmt.Sprintf("file exceeds the 20MB limit (%d bytes)", upload.Size),
		})
	}
	return ext, nil
}

func (s *importService) storeFile(ctx context.Context, tx *gorm.DB, agentID, importID uuid.UUID, upload FileUpload, ext string) (*types.PolicyAiImportFile, error) {
	key := fmt.Sprintf("policy-ai/%s/%s%s", agentID, uuid.New(), ext)
	if err := s.bucket.UploadFile(ctx, tx, key, upload.Reader); err != nil {
		return nil, fmt.Errorf("store import file: %w", err)
	}
	file := &types.PolicyAiImportFile{
		ID:           uuid.New(),
		ImportID:     importID,
		OriginalName: upload.Filename,
		MimeType:     upload.MimeType,
		SizeBytes:    upload.Size,
		StorageKey:   key,
		FileURL:      s.bucket.GetPublicURL(key),
	}
	if _, err := s.fileRepo.Create(ctx, tx, []*types.PolicyAiImportFile{file}); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *importService) CreateImport(ctx context.Context, rd *requestdata.RequestData, upload FileUpload) (*types.PolicyAiImport, error) {
	ext, err := validateUpload(upload)
	if err != nil {
		return nil, err
	}

	imp := &types.PolicyAiImport{
		ID:              uuid.New(),
		AgentID:         rd.AgentID,
		Status:          types.ImportStatusUploaded,
		ProcessingStage: types.ImportStageQueued,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.importRepo.Create(ctx, tx, []*types.PolicyAiImport{imp}); err != nil {
			return err
		}
		file, err := s.storeFile(ctx, tx, rd.AgentID, imp.ID, upload, ext)
		if err != nil {
			return err
		}
		imp.Files = []*types.PolicyAiImportFile{file}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Import created", "importID", imp.ID, "agentID", rd.AgentID)
	return imp, nil
}

func (s *importService) getOwned(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyAiImport, error) {
	imp, err := s.importRepo.GetByIDWithFiles(ctx, tx, importID)
	if err != nil {
		return nil, err
	}
	if imp == nil {
		return nil, ErrNotFound
	}
	if imp.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	return imp, nil
}

func (s *importService) AppendFile(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID, upload FileUpload) (*types.PolicyAiImport, error) {
	ext, err := validateUpload(upload)
	if err != nil {
		return nil, err
	}

	var imp *types.PolicyAiImport
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		imp, txErr = s.getOwned(ctx, tx, rd, importID)
		if txErr != nil {
			return txErr
		}
		if imp.Status == types.ImportStatusProcessing {
			return ErrConflict
		}
		count, txErr := s.fileRepo.CountByImport(ctx, tx, importID)
		if txErr != nil {
			return txErr
		}
		if count >= types.MaxImportFiles {
			return NewValidationError("file limit reached", map[string]string{
				"file": fmt.Sprintf("an import holds at most %d files", types.MaxImportFiles),
			})
		}
		file, txErr := s.storeFile(ctx, tx, rd.AgentID, importID, upload, ext)
		if txErr != nil {
			return txErr
		}
		imp.Files = append(imp.Files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imp, nil
}

func (s *importService) ListImports(ctx context.Context, rd *requestdata.RequestData) ([]*types.PolicyAiImport, error) {
	return s.importRepo.ListByAgent(ctx, nil, rd.AgentID)
}

func (s *importService) GetImport(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyAiImport, error) {
	return s.getOwned(ctx, nil, rd, importID)
}

func (s *importService) GetStatus(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*ImportStatusPayload, error) {
	imp, err := s.getOwned(ctx, nil, rd, importID)
	if err != nil {
		return nil, err
	}
	payload := &ImportStatusPayload{
		Status:          imp.Status,
		ProcessingStage: imp.ProcessingStage,
		Progress:        imp.Progress,
		ErrorMessage:    imp.ErrorMessage,
	}
	if len(imp.MissingFields) > 0 {
		var missing []string
		if err := json.Unmarshal(imp.MissingFields, &missing); err == nil {
			payload.MissingFields = missing
		}
	}
	return payload, nil
}

// Retry resets a terminal import back to uploaded so the worker reclaims it.
// Prior output is overwritten by the next attempt, not merged.
func (s *importService) Retry(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyAiImport, error) {
	var imp *types.PolicyAiImport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		imp, txErr = s.getOwned(ctx, tx, rd, importID)
		if txErr != nil {
			return txErr
		}
		if !imp.Status.CanTransitionTo(types.ImportStatusUploaded) {
			return ErrConflict
		}
		updates := map[string]interface{}{
			"status":           types.ImportStatusUploaded,
			"processing_stage": types.ImportStageQueued,
			"progress":         0,
			"error_message":    "",
		}
		if txErr := s.importRepo.UpdateFields(ctx, tx, importID, updates); txErr != nil {
			return txErr
		}
		imp.Status = types.ImportStatusUploaded
		imp.ProcessingStage = types.ImportStageQueued
		imp.Progress = 0
		imp.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Import reset for retry", "importID", importID)
	return imp, nil
}

// Convert maps a finished import into the agent's wizard draft. The draft is
// unique per agent, so converting overwrites whatever was staged before.
func (s *importService) Convert(ctx context.Context, rd *requestdata.RequestData, importID uuid.UUID) (*types.PolicyWizardDraft, error) {
	var draft *types.PolicyWizardDraft
	err := s.db.Transaction(func(tx *gorm.DB) error {
		imp, txErr := s.getOwned(ctx, tx, rd, importID)
		if txErr != nil {
			return txErr
		}
		if imp.Status != types.ImportStatusReady && imp.Status != types.ImportStatusNeedsReview {
			return ErrConflict
		}

		var aiData map[string]any
		if len(imp.AIData) > 0 {
			if err := json.Unmarshal(imp.AIData, &aiData); err != nil {
				aiData = nil
			}
		}
		payload := MapImportToDraft(aiData)
		raw, txErr := json.Marshal(payload)
		if txErr != nil {
			return txErr
		}

		sourceID := imp.ID
		draft = &types.PolicyWizardDraft{
			ID:            uuid.New(),
			AgentID:       rd.AgentID,
			SourceType:    types.DraftSourceAiImport,
			SourceID:      &sourceID,
			Data:          datatypes.JSON(raw),
			MissingFields: imp.MissingFields,
		}
		_, txErr = s.draftRepo.Upsert(ctx, tx, draft)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Import converted to draft", "importID", importID, "agentID", rd.AgentID)
	return draft, nil
}
