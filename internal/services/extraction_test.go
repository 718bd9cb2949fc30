package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/types"
)

type extractionFixture struct {
	svc       ExtractionService
	importSvc ImportService
	db        *gorm.DB
	bucket    *fakeBucket
	extractor *fakeExtractor
	ai        *fakeAI
}

func newExtractionFixture(t *testing.T) *extractionFixture {
	t.Helper()
	log := testLogger(t)
	db := newTestDB(t)
	bucket := newFakeBucket()
	extractor := &fakeExtractor{text: "POLIZA DE SEGURO ..."}
	ai := &fakeAI{result: validAIData()}

	importRepo := repos.NewPolicyAiImportRepo(db, log)
	fileRepo := repos.NewImportFileRepo(db, log)

	svc := NewExtractionService(
		log, db, importRepo, fileRepo,
		bucket, extractor, ai,
		sse.NewSSEHub(log), nil,
		0.70,
	)
	importSvc := NewImportService(log, db, importRepo, fileRepo, repos.NewWizardDraftRepo(db, log), bucket)
	return &extractionFixture{
		svc:       svc,
		importSvc: importSvc,
		db:        db,
		bucket:    bucket,
		extractor: extractor,
		ai:        ai,
	}
}

func (f *extractionFixture) seedImport(t *testing.T, agent *types.Agent, files int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	imp, err := f.importSvc.CreateImport(ctx, rdFor(agent), pdfUpload("p1.pdf", []byte("a")))
	require.NoError(t, err)
	for i := 2; i <= files; i++ {
		_, err := f.importSvc.AppendFile(ctx, rdFor(agent), imp.ID, pdfUpload(fmt.Sprintf("p%d.pdf", i), []byte("a")))
		require.NoError(t, err)
	}
	return imp.ID
}

func (f *extractionFixture) reload(t *testing.T, id uuid.UUID) *types.PolicyAiImport {
	t.Helper()
	var imp types.PolicyAiImport
	require.NoError(t, f.db.Where("id = ?", id).First(&imp).Error)
	return &imp
}

func TestProcessImport_HappyPathEndsReady(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 3)

	require.NoError(t, f.svc.ProcessImport(context.Background(), id))

	imp := f.reload(t, id)
	if imp.Status != types.ImportStatusReady {
		t.Fatalf("expected ready, got %s (%s)", imp.Status, imp.ErrorMessage)
	}
	if imp.ProcessingStage != types.ImportStageDone || imp.Progress != 100 {
		t.Fatalf("expected done/100, got %s/%d", imp.ProcessingStage, imp.Progress)
	}
	if imp.ProcessingStartedAt == nil || imp.ProcessingEndedAt == nil {
		t.Fatalf("processing window should be stamped")
	}
	if imp.ExtractedText == "" || len(imp.AIData) == 0 {
		t.Fatalf("extraction output should be persisted")
	}
}

func TestProcessImport_MissingFieldsEndNeedsReview(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 1)

	data := validAIData()
	delete(data["contractor"].(map[string]any), "document_id")
	f.ai.result = data

	require.NoError(t, f.svc.ProcessImport(context.Background(), id))

	imp := f.reload(t, id)
	if imp.Status != types.ImportStatusNeedsReview {
		t.Fatalf("expected needs_review, got %s", imp.Status)
	}
	var missing []string
	require.NoError(t, json.Unmarshal(imp.MissingFields, &missing))
	if len(missing) != 1 || missing[0] != "contractor.document_id" {
		t.Fatalf("expected contractor.document_id missing, got %v", missing)
	}
}

func TestProcessImport_LowConfidenceEndsNeedsReview(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 1)

	data := validAIData()
	data["confidence"] = map[string]any{"policy.policy_number": 0.30}
	f.ai.result = data

	require.NoError(t, f.svc.ProcessImport(context.Background(), id))

	if imp := f.reload(t, id); imp.Status != types.ImportStatusNeedsReview {
		t.Fatalf("expected needs_review, got %s", imp.Status)
	}
}

func TestProcessImport_ExtractorErrorEndsFailed(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 1)

	f.extractor.err = fmt.Errorf("ocr backend down")

	require.NoError(t, f.svc.ProcessImport(context.Background(), id))

	imp := f.reload(t, id)
	if imp.Status != types.ImportStatusFailed {
		t.Fatalf("expected failed, got %s", imp.Status)
	}
	if imp.ProcessingStage != types.ImportStageAIRequest {
		t.Fatalf("failure stage should be ai_request, got %s", imp.ProcessingStage)
	}
	if imp.ErrorMessage == "" {
		t.Fatalf("error_message should be recorded")
	}
}

func TestProcessImport_DownloadErrorEndsFailed(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 2)

	f.bucket.failDownload = true

	require.NoError(t, f.svc.ProcessImport(context.Background(), id))

	imp := f.reload(t, id)
	if imp.Status != types.ImportStatusFailed {
		t.Fatalf("expected failed, got %s", imp.Status)
	}
	if imp.ProcessingStage != types.ImportStageUploadingFiles {
		t.Fatalf("failure stage should be uploading_files, got %s", imp.ProcessingStage)
	}
}

func TestHeartbeat_OnlyTouchesProcessingImports(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 1)
	ctx := context.Background()
	repo := repos.NewPolicyAiImportRepo(f.db, testLogger(t))

	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, f.db.Model(&types.PolicyAiImport{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       types.ImportStatusProcessing,
		"heartbeat_at": stale,
	}).Error)

	require.NoError(t, repo.Heartbeat(ctx, nil, id))
	imp := f.reload(t, id)
	require.NotNil(t, imp.HeartbeatAt)
	if !imp.HeartbeatAt.After(stale) {
		t.Fatalf("heartbeat should advance for a processing import, got %v", imp.HeartbeatAt)
	}

	// terminal rows are left alone so a late tick cannot refresh them
	require.NoError(t, f.db.Model(&types.PolicyAiImport{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       types.ImportStatusReady,
		"heartbeat_at": stale,
	}).Error)
	require.NoError(t, repo.Heartbeat(ctx, nil, id))
	imp = f.reload(t, id)
	if imp.HeartbeatAt.Unix() != stale.Unix() {
		t.Fatalf("heartbeat must not touch a terminal import, got %v", imp.HeartbeatAt)
	}
}

func TestProcessImport_RetryAfterFailureSucceeds(t *testing.T) {
	f := newExtractionFixture(t)
	agent := seedAgent(t, f.db, "ana")
	id := f.seedImport(t, agent, 1)
	ctx := context.Background()

	f.extractor.err = fmt.Errorf("transient ocr outage")
	require.NoError(t, f.svc.ProcessImport(ctx, id))
	require.Equal(t, types.ImportStatusFailed, f.reload(t, id).Status)

	_, err := f.importSvc.Retry(ctx, rdFor(agent), id)
	require.NoError(t, err)
	require.Equal(t, types.ImportStatusUploaded, f.reload(t, id).Status)

	f.extractor.err = nil
	require.NoError(t, f.svc.ProcessImport(ctx, id))

	imp := f.reload(t, id)
	if imp.Status != types.ImportStatusReady {
		t.Fatalf("retry attempt should end ready, got %s (%s)", imp.Status, imp.ErrorMessage)
	}
	if imp.ErrorMessage != "" {
		t.Fatalf("old error message should be cleared, got %q", imp.ErrorMessage)
	}
}
