package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&types.Agent{},
		&types.AgentToken{},
		&types.Client{},
		&types.Insured{},
		&types.Policy{},
		&types.Beneficiary{},
		&types.PolicyAiImport{},
		&types.PolicyAiImportFile{},
		&types.PolicyWizardDraft{},
		&types.Lead{},
		&types.Commission{},
		&types.CalendarCredential{},
	)
	require.NoError(t, err)
	return db
}

func seedAgent(t *testing.T, db *gorm.DB, slug string) *types.Agent {
	t.Helper()
	agent := &types.Agent{
		ID:          uuid.New(),
		Email:       slug + "@example.com",
		Password:    "hashed",
		FirstName:   "Ana",
		LastName:    "Garcia",
		ProfileSlug: slug,
	}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func seedClient(t *testing.T, db *gorm.DB, agentID uuid.UUID) *types.Client {
	t.Helper()
	client := &types.Client{
		ID:         uuid.New(),
		AgentID:    agentID,
		FirstName:  "Carlos",
		LastName:   "Lopez",
		DocumentID: "12345678A",
		Email:      "carlos@example.com",
		Phone:      "+34600000000",
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

func rdFor(agent *types.Agent) *requestdata.RequestData {
	return &requestdata.RequestData{AgentID: agent.ID}
}

// fakeBucket keeps uploads in memory.
type fakeBucket struct {
	mu    sync.Mutex
	files map[string][]byte

	failDownload bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{files: map[string][]byte{}}
}

func (b *fakeBucket) UploadFile(ctx context.Context, tx *gorm.DB, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[key] = data
	return nil
}

func (b *fakeBucket) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDownload {
		return nil, fmt.Errorf("download forced to fail")
	}
	data, ok := b.files[key]
	if !ok {
		return nil, fmt.Errorf("no object at %s", key)
	}
	return data, nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, tx *gorm.DB, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, key)
	return nil
}

func (b *fakeBucket) ReplaceFile(ctx context.Context, tx *gorm.DB, key string, newFile io.Reader) error {
	return b.UploadFile(ctx, tx, key, newFile)
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

func (e *fakeExtractor) Close() error { return nil }

type fakeAI struct {
	result map[string]any
	err    error
}

func (a *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func pdfUpload(name string, content []byte) FileUpload {
	return FileUpload{
		Filename: name,
		MimeType: "application/pdf",
		Size:     int64(len(content)),
		Reader:   bytes.NewReader(content),
	}
}
