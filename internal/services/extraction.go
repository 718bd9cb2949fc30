package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/clients/redis"
	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/types"
)

const extractionSystemPrompt = `You are an assistant for an insurance agency back office.
You receive the raw text of one or more policy documents belonging to a single policy.
Extract the contractor, the insured person, the policy core fields and the beneficiaries.
Dates use YYYY-MM-DD. Amounts are plain numbers without currency symbols.
Also fill the "confidence" object with one entry per extracted leaf field,
keyed by its dotted path (for example "contractor.first_name"), valued 0 to 1.
Leave out any field you cannot find; never invent values.`

// Must stay well under the worker's stale-processing cutoff.
const heartbeatInterval = 30 * time.Second

type ExtractionService interface {
	StartWorker(ctx context.Context)
	ProcessImport(ctx context.Context, importID uuid.UUID) error
}

type extractionService struct {
	log        *logger.Logger
	db         *gorm.DB
	importRepo repos.PolicyAiImportRepo
	fileRepo   repos.ImportFileRepo
	bucket     BucketService
	extractor  TextExtractor
	ai         OpenAIClient
	hub        *sse.SSEHub
	bus        redis.SSEBus

	confidenceThreshold float64
}

func NewExtractionService(
	log *logger.Logger,
	db *gorm.DB,
	importRepo repos.PolicyAiImportRepo,
	fileRepo repos.ImportFileRepo,
	bucket BucketService,
	extractor TextExtractor,
	ai OpenAIClient,
	hub *sse.SSEHub,
	bus redis.SSEBus,
	confidenceThreshold float64,
) ExtractionService {
	return &extractionService{
		log:                 log.With("service", "ExtractionService"),
		db:                  db,
		importRepo:          importRepo,
		fileRepo:            fileRepo,
		bucket:              bucket,
		extractor:           extractor,
		ai:                  ai,
		hub:                 hub,
		bus:                 bus,
		confidenceThreshold: confidenceThreshold,
	}
}

func (es *extractionService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		staleProcessing := 2 * time.Minute

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				imp, err := es.importRepo.ClaimNextRunnable(ctx, es.db, staleProcessing)
				if err != nil {
					es.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if imp == nil {
					continue
				}
				if err := es.ProcessImport(ctx, imp.ID); err != nil {
					es.log.Warn("ProcessImport failed", "importID", imp.ID, "error", err)
				}
			}
		}
	}()
}

func (es *extractionService) broadcast(agentID uuid.UUID, event sse.SSEEvent, data map[string]any) {
	publishSSEMessage(context.Background(), es.hub, es.bus, sse.SSEMessage{
		Channel: sse.AgentChannel(agentID),
		Event:   event,
		Data:    data,
	})
}

// ProcessImport runs one extraction attempt end to end. Any error lands the
// import in failed with error_message set; it never propagates a panic or an
// unresolved non-terminal status.
func (es *extractionService) ProcessImport(ctx context.Context, importID uuid.UUID) error {
	imp, err := es.importRepo.GetByIDWithFiles(ctx, nil, importID)
	if err != nil {
		return err
	}
	if imp == nil {
		return ErrNotFound
	}
	agentID := imp.AgentID

	now := time.Now()
	if err := es.importRepo.UpdateFields(ctx, nil, importID, map[string]interface{}{
		"status":                types.ImportStatusProcessing,
		"processing_stage":      types.ImportStageQueued,
		"progress":              0,
		"processing_started_at": now,
		"heartbeat_at":          now,
		"error_message":         "",
	}); err != nil {
		return err
	}

	// Keep the heartbeat fresh while long stages (OCR, the AI call) run, so
	// another instance does not stale-reclaim a live attempt. Heartbeat only
	// touches rows still in processing, so a fire after the terminal write is
	// a no-op.
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if hbErr := es.importRepo.Heartbeat(hbCtx, nil, importID); hbErr != nil {
					es.log.Warn("Heartbeat failed", "importID", importID, "error", hbErr)
				}
			}
		}
	}()

	fail := func(stage string, ferr error) {
		endedAt := time.Now()
		_ = es.importRepo.UpdateFields(ctx, nil, importID, map[string]interface{}{
			"status":              types.ImportStatusFailed,
			"processing_stage":    stage,
			"error_message":       ferr.Error(),
			"processing_ended_at": endedAt,
		})
		es.broadcast(agentID, sse.SSEEventImportFailed, map[string]any{
			"import_id": importID,
			"stage":     stage,
			"error":     ferr.Error(),
		})
	}

	progress := func(stage string, pct int) {
		heartbeat := time.Now()
		_ = es.importRepo.UpdateFields(ctx, nil, importID, map[string]interface{}{
			"processing_stage": stage,
			"progress":         pct,
			"heartbeat_at":     heartbeat,
		})
		es.broadcast(agentID, sse.SSEEventImportProgress, map[string]any{
			"import_id": importID,
			"stage":     stage,
			"progress":  pct,
		})
	}

	files := imp.Files
	if len(files) == 0 {
		fail(types.ImportStageQueued, fmt.Errorf("import has no files"))
		return nil
	}

	// 1) Fetch every stored document.
	progress(types.ImportStageUploadingFiles, 10)
	contents := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			data, dErr := es.bucket.DownloadFile(gctx, f.StorageKey)
			if dErr != nil {
				return fmt.Errorf("download %s: %w", f.OriginalName, dErr)
			}
			mu.Lock()
			contents[i] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fail(types.ImportStageUploadingFiles, err)
		return nil
	}

	// 2) OCR each document, then ask the model for the structured object.
	progress(types.ImportStageAIRequest, 30)
	var textParts []string
	for i, f := range files {
		text, tErr := es.extractor.ExtractText(ctx, contents[i], f.MimeType)
		if tErr != nil {
			fail(types.ImportStageAIRequest, fmt.Errorf("extract text from %s: %w", f.OriginalName, tErr))
			return nil
		}
		if strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}
	fullText := strings.Join(textParts, "\n\n---\n\n")
	if strings.TrimSpace(fullText) == "" {
		fail(types.ImportStageAIRequest, fmt.Errorf("no text could be extracted from the uploaded documents"))
		return nil
	}

	schema := BuildPolicyExtractionSchema()
	aiData, err := es.ai.GenerateJSON(ctx, extractionSystemPrompt, fullText, "policy_extraction", schema)
	if err != nil {
		fail(types.ImportStageAIRequest, fmt.Errorf("structured extraction: %w", err))
		return nil
	}

	// 3) Validate and evaluate what came back.
	progress(types.ImportStageParsing, 70)
	rawAI, err := json.Marshal(aiData)
	if err != nil {
		fail(types.ImportStageParsing, fmt.Errorf("encode ai data: %w", err))
		return nil
	}
	if err := ValidateExtractionJSON(schema, rawAI); err != nil {
		fail(types.ImportStageParsing, err)
		return nil
	}

	confidence := map[string]float64{}
	if confRaw, ok := aiData["confidence"].(map[string]any); ok {
		for k, v := range confRaw {
			if f, ok := v.(float64); ok {
				confidence[k] = f
			}
		}
	}
	missing := MissingRequiredFields(aiData, confidence, es.confidenceThreshold)

	// 4) Persist the outcome.
	progress(types.ImportStageSaving, 90)
	rawConfidence, _ := json.Marshal(confidence)
	rawMissing, _ := json.Marshal(missing)

	finalStatus := types.ImportStatusReady
	if len(missing) > 0 {
		finalStatus = types.ImportStatusNeedsReview
	}
	endedAt := time.Now()
	if err := es.importRepo.UpdateFields(ctx, nil, importID, map[string]interface{}{
		"status":              finalStatus,
		"processing_stage":    types.ImportStageDone,
		"progress":            100,
		"extracted_text":      fullText,
		"ai_data":             rawAI,
		"ai_confidence":       rawConfidence,
		"missing_fields":      rawMissing,
		"processing_ended_at": endedAt,
	}); err != nil {
		fail(types.ImportStageSaving, err)
		return nil
	}

	es.broadcast(agentID, sse.SSEEventImportCompleted, map[string]any{
		"import_id":      importID,
		"status":         finalStatus,
		"missing_fields": missing,
	})
	es.log.Info("Import processed", "importID", importID, "status", finalStatus, "missing", len(missing))
	return nil
}
