package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/types"
)

func newImportFixture(t *testing.T) (ImportService, *gorm.DB, *fakeBucket) {
	t.Helper()
	log := testLogger(t)
	db := newTestDB(t)
	bucket := newFakeBucket()
	svc := NewImportService(
		log,
		db,
		repos.NewPolicyAiImportRepo(db, log),
		repos.NewImportFileRepo(db, log),
		repos.NewWizardDraftRepo(db, log),
		bucket,
	)
	return svc, db, bucket
}

func TestCreateImport_StoresFileAndStartsUploaded(t *testing.T) {
	svc, db, bucket := newImportFixture(t)
	agent := seedAgent(t, db, "ana")
	ctx := context.Background()

	imp, err := svc.CreateImport(ctx, rdFor(agent), pdfUpload("poliza.pdf", []byte("pdf-bytes")))
	require.NoError(t, err)

	if imp.Status != types.ImportStatusUploaded {
		t.Fatalf("new import should be uploaded, got %s", imp.Status)
	}
	if imp.ProcessingStage != types.ImportStageQueued {
		t.Fatalf("new import should be queued, got %s", imp.ProcessingStage)
	}
	require.Len(t, imp.Files, 1)

	stored, ok := bucket.files[imp.Files[0].StorageKey]
	if !ok || !bytes.Equal(stored, []byte("pdf-bytes")) {
		t.Fatalf("file bytes not stored under %s", imp.Files[0].StorageKey)
	}
}

func TestCreateImport_RejectsBadUploads(t *testing.T) {
	svc, db, _ := newImportFixture(t)
	agent := seedAgent(t, db, "ana")
	ctx := context.Background()

	_, err := svc.CreateImport(ctx, rdFor(agent), FileUpload{
		Filename: "virus.exe",
		MimeType: "application/octet-stream",
		Size:     10,
		Reader:   bytes.NewReader([]byte("x")),
	})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("unsupported mime type should be a validation error, got %v", err)
	}

	_, err = svc.CreateImport(ctx, rdFor(agent), FileUpload{
		Filename: "huge.pdf",
		MimeType: "application/pdf",
		Size:     21 << 20,
		Reader:   bytes.NewReader([]byte("x")),
	})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("oversized file should be a validation error, got %v", err)
	}
}

func TestAppendFile_EnforcesCap(t *testing.T) {
	svc, db, _ := newImportFixture(t)
	agent := seedAgent(t, db, "ana")
	ctx := context.Background()

	imp, err := svc.CreateImport(ctx, rdFor(agent), pdfUpload("p1.pdf", []byte("a")))
	require.NoError(t, err)

	for i := 2; i <= types.MaxImportFiles; i++ {
		_, err := svc.AppendFile(ctx, rdFor(agent), imp.ID, pdfUpload(fmt.Sprintf("p%d.pdf", i), []byte("a")))
		require.NoError(t, err, "file %d should be accepted", i)
	}

	_, err = svc.AppendFile(ctx, rdFor(agent), imp.ID, pdfUpload("p6.pdf", []byte("a")))
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("sixth file should be rejected, got %v", err)
	}
}

func TestAppendFile_RejectedWhileProcessing(t *testing.T) {
	svc, db, _ := newImportFixture(t)
	agent := seedAgent(t, db, "ana")
	ctx := context.Background()

	imp, err := svc.CreateImport(ctx, rdFor(agent), pdfUpload("p1.pdf", []byte("a")))
	require.NoError(t, err)
	require.NoError(t, db.Model(&types.PolicyAiImport{}).Where("id = ?", imp.ID).
		Update("status", types.ImportStatusProcessing).Error)

	_, err = svc.AppendFile(ctx, rdFor(agent), imp.ID, pdfUpload("p2.pdf", []byte("a")))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("appending while processing should conflict, got %v", err)
	}
}

func TestImportOwnership(t *testing.T) {
	svc, db, _ := newImportFixture(t)
	owner := seedAgent(t, db, "ana")
	intruder := seedAgent(t, db, "eva")
	ctx := context.Background()

	imp, err := svc.CreateImport(ctx, rdFor(owner), pdfUpload("p1.pdf", []byte("a")))
	require.NoError(t, err)

	_, err = svc.GetImport(ctx, rdFor(intruder), imp.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign import access should be forbidden, got %v", err)
	}
	_, err = svc.Retry(ctx, rdFor(intruder), imp.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign retry should be forbidden, got %v", err)
	}
}

func TestRetry_OnlyFromRetriableStates(t *testing.T) {
	svc, db, _ := newImportFixture(t)
	agent := seedAgent(t, db, "ana")
	ctx := context.Background()

	imp, err := svc.CreateImport(ctx, rdFor(agent), pdfUpload("p1.pdf", []byte("a")))
	require.NoError(t, err)

	// uploaded -> retry is a conflict, nothing failed yet
	_, err = svc.Retry(ctx, rdFor(agent), imp.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("retry from uploaded should conflict, got %v", err)
	}

	require.NoError(t, db.Model(&types.PolicyAiImport{}).Where("id = ?", imp.ID).Updates(map[string]interface{}{
		"status":        types.ImportStatusFailed,
		"error_message": "boom",
		"progress":      42,
	}).Error)

	reset, err := svc.Retry(ctx, rdFor(agent), imp.ID)
	require.NoError(t, err)
	if reset.Status != types.ImportStatusUploaded || reset.Progress != 0 || reset.ErrorMessage != "" {
		t.Fatalf("retry should reset to a clean uploaded state, got %+v", reset)
	}

	require.NoError(t, db.Model(&types.PolicyAiImport{}).Where("id = ?", imp.ID).
		Update("status", types.ImportStatusReady).Error)
	_, err = svc.Retry(ctx, rdFor(agent), imp.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("retry from ready should conflict, got %v", err)
	}
}

func TestConvert_WritesDraftAndOverwrites(t *testing.T) {
	svc, db, _ := newImportFixture(t)
	agent := seedAgent(t, db, "ana")
	ctx := context.Background()

	imp, err := svc.CreateImport(ctx, rdFor(agent), pdfUpload("p1.pdf", []byte("a")))
	require.NoError(t, err)

	// conversion before extraction finished is a conflict
	_, err = svc.Convert(ctx, rdFor(agent), imp.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("convert from uploaded should conflict, got %v", err)
	}

	aiData, _ := json.Marshal(map[string]any{
		"contractor": map[string]any{"first_name": "Carlos"},
		"policy":     map[string]any{"policy_number": "POL-001"},
	})
	require.NoError(t, db.Model(&types.PolicyAiImport{}).Where("id = ?", imp.ID).Updates(map[string]interface{}{
		"status":  types.ImportStatusReady,
		"ai_data": aiData,
	}).Error)

	draft, err := svc.Convert(ctx, rdFor(agent), imp.ID)
	require.NoError(t, err)
	if draft.SourceType != types.DraftSourceAiImport {
		t.Fatalf("expected ai import source, got %s", draft.SourceType)
	}
	if draft.SourceID == nil || *draft.SourceID != imp.ID {
		t.Fatalf("draft should point back at the import")
	}

	var payload map[string]any
	require.NoError(t, json.Unmarshal(draft.Data, &payload))
	contractor := payload["contractor"].(map[string]any)
	if contractor["first_name"] != "Carlos" {
		t.Fatalf("draft payload not mapped: %v", payload)
	}

	// one draft per agent: a second conversion replaces, not duplicates
	imp2, err := svc.CreateImport(ctx, rdFor(agent), pdfUpload("p2.pdf", []byte("b")))
	require.NoError(t, err)
	require.NoError(t, db.Model(&types.PolicyAiImport{}).Where("id = ?", imp2.ID).Updates(map[string]interface{}{
		"status":  types.ImportStatusNeedsReview,
		"ai_data": aiData,
	}).Error)
	_, err = svc.Convert(ctx, rdFor(agent), imp2.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&types.PolicyWizardDraft{}).Where("agent_id = ?", agent.ID).Count(&count).Error)
	if count != 1 {
		t.Fatalf("expected exactly one draft per agent, got %d", count)
	}
}
