package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

type CalendarSyncResult struct {
	EventsCreated int       `json:"events_created"`
	SyncedAt      time.Time `json:"synced_at"`
}

type CalendarService interface {
	StoreCredentials(ctx context.Context, rd *requestdata.RequestData, accessToken, refreshToken string, expiry *time.Time) error
	SyncRenewals(ctx context.Context, rd *requestdata.RequestData) (*CalendarSyncResult, error)
	Disconnect(ctx context.Context, rd *requestdata.RequestData) error
}

type calendarService struct {
	log        *logger.Logger
	db         *gorm.DB
	credRepo   repos.CalendarCredentialRepo
	policyRepo repos.PolicyRepo
	oauthConf  *oauth2.Config
}

func NewCalendarService(log *logger.Logger, db *gorm.DB, credRepo repos.CalendarCredentialRepo, policyRepo repos.PolicyRepo) CalendarService {
	conf := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	return &calendarService{
		log:        log.With("service", "CalendarService"),
		db:         db,
		credRepo:   credRepo,
		policyRepo: policyRepo,
		oauthConf:  conf,
	}
}

func (s *calendarService) StoreCredentials(ctx context.Context, rd *requestdata.RequestData, accessToken, refreshToken string, expiry *time.Time) error {
	if accessToken == "" || refreshToken == "" {
		return NewValidationError("invalid credentials", map[string]string{
			"tokens": "access and refresh tokens are required",
		})
	}
	cred := &types.CalendarCredential{
		ID:           uuid.New(),
		AgentID:      rd.AgentID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpiry:  expiry,
		CalendarID:   "primary",
	}
	_, err := s.credRepo.Upsert(ctx, nil, cred)
	return err
}

// SyncRenewals pushes one all-day event per active policy's next renewal date
// onto the agent's calendar. An expired or revoked grant surfaces as
// ErrReauthRequired so the handler can tell the user to reconnect rather than
// retry.
func (s *calendarService) SyncRenewals(ctx context.Context, rd *requestdata.RequestData) (*CalendarSyncResult, error) {
	cred, err := s.credRepo.GetByAgentID(ctx, nil, rd.AgentID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrReauthRequired
	}

	tok := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if cred.TokenExpiry != nil {
		tok.Expiry = *cred.TokenExpiry
	}
	client := s.oauthConf.Client(ctx, tok)

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	policies, err := s.policyRepo.ListActiveWithCoverageStart(ctx, nil, rd.AgentID)
	if err != nil {
		return nil, err
	}

	calendarID := cred.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	created := 0
	now := time.Now()
	for _, p := range policies {
		renewal := nextRenewal(*p.CoverageStart, now)
		event := &calendar.Event{
			Summary:     fmt.Sprintf("Renovacion poliza %s (%s)", p.PolicyNumber, p.Company),
			Description: fmt.Sprintf("Producto: %s", p.Product),
			Start:       &calendar.EventDateTime{Date: renewal.Format("2006-01-02")},
			End:         &calendar.EventDateTime{Date: renewal.AddDate(0, 0, 1).Format("2006-01-02")},
		}
		if _, err := svc.Events.Insert(calendarID, event).Context(ctx).Do(); err != nil {
			if isReauthError(err) {
				return nil, ErrReauthRequired
			}
			return nil, fmt.Errorf("insert event for policy %s: %w", p.ID, err)
		}
		created++
	}

	syncedAt := time.Now()
	if err := s.credRepo.UpdateFields(ctx, nil, cred.ID, map[string]interface{}{
		"last_synced_at": syncedAt,
	}); err != nil {
		s.log.Warn("Failed to stamp last_synced_at", "error", err)
	}

	return &CalendarSyncResult{EventsCreated: created, SyncedAt: syncedAt}, nil
}

func (s *calendarService) Disconnect(ctx context.Context, rd *requestdata.RequestData) error {
	return s.credRepo.DeleteByAgentID(ctx, nil, rd.AgentID)
}

// nextRenewal is the first coverage anniversary strictly after "after".
func nextRenewal(coverageStart, after time.Time) time.Time {
	renewal := coverageStart
	for !renewal.After(after) {
		renewal = renewal.AddDate(1, 0, 0)
	}
	return renewal
}

func isReauthError(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == 401 {
			return true
		}
	}
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return true
	}
	return strings.Contains(err.Error(), "invalid_grant")
}
