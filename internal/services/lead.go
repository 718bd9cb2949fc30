package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/clients/redis"
	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/normalization"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/types"
)

type LeadInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
}

type LeadService interface {
	CapturePublicLead(ctx context.Context, slug string, input LeadInput) (*types.Lead, error)
	ListLeads(ctx context.Context, rd *requestdata.RequestData, status types.LeadStatus) ([]*types.Lead, error)
	MoveLead(ctx context.Context, rd *requestdata.RequestData, leadID uuid.UUID, next types.LeadStatus) (*types.Lead, error)
	UpdateNotes(ctx context.Context, rd *requestdata.RequestData, leadID uuid.UUID, notes string) (*types.Lead, error)
}

type leadService struct {
	log       *logger.Logger
	db        *gorm.DB
	leadRepo  repos.LeadRepo
	agentRepo repos.AgentRepo
	hub       *sse.SSEHub
	bus       redis.SSEBus
}

func NewLeadService(log *logger.Logger, db *gorm.DB, leadRepo repos.LeadRepo, agentRepo repos.AgentRepo, hub *sse.SSEHub, bus redis.SSEBus) LeadService {
	return &leadService{
		log:       log.With("service", "LeadService"),
		db:        db,
		leadRepo:  leadRepo,
		agentRepo: agentRepo,
		hub:       hub,
		bus:       bus,
	}
}

// CapturePublicLead comes from an agent's public profile page, so there is no
// authenticated requester; the slug resolves the owning agent.
func (s *leadService) CapturePublicLead(ctx context.Context, slug string, input LeadInput) (*types.Lead, error) {
	input.FullName = normalization.TrimInputString(input.FullName)
	input.Email = normalization.ParseInputString(input.Email)
	fields := map[string]string{}
	if input.FullName == "" {
		fields["full_name"] = "name is required"
	}
	if input.Email == "" && input.Phone == "" {
		fields["contact"] = "an email or phone number is required"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid lead", fields)
	}

	agent, err := s.agentRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNotFound
	}

	lead := &types.Lead{
		ID:       uuid.New(),
		AgentID:  agent.ID,
		Status:   types.LeadStatusNuevo,
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    input.Phone,
		Message:  input.Message,
		Source:   "public_profile",
	}
	if _, err := s.leadRepo.Create(ctx, nil, []*types.Lead{lead}); err != nil {
		return nil, err
	}

	queueSSEMessage(ctx, s.hub, s.bus, sse.SSEMessage{
		Channel: sse.AgentChannel(agent.ID),
		Event:   sse.SSEEventLeadCreated,
		Data:    map[string]any{"lead": lead},
	})

	s.log.Info("Public lead captured", "agentID", agent.ID, "leadID", lead.ID)
	return lead, nil
}

func (s *leadService) ListLeads(ctx context.Context, rd *requestdata.RequestData, status types.LeadStatus) ([]*types.Lead, error) {
	if status != "" && !status.Valid() {
		return nil, NewValidationError("invalid status", map[string]string{"status": "unknown lead status"})
	}
	return s.leadRepo.ListByAgent(ctx, nil, rd.AgentID, status)
}

func (s *leadService) getOwned(ctx context.Context, rd *requestdata.RequestData, leadID uuid.UUID) (*types.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, nil, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrNotFound
	}
	if lead.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	return lead, nil
}

// MoveLead advances a lead across the kanban board, rejecting jumps the
// transition table does not allow.
func (s *leadService) MoveLead(ctx context.Context, rd *requestdata.RequestData, leadID uuid.UUID, next types.LeadStatus) (*types.Lead, error) {
	if !next.Valid() {
		return nil, NewValidationError("invalid status", map[string]string{"status": "unknown lead status"})
	}
	lead, err := s.getOwned(ctx, rd, leadID)
	if err != nil {
		return nil, err
	}
	if !lead.Status.CanTransitionTo(next) {
		return nil, ErrConflict
	}
	if err := s.leadRepo.UpdateFields(ctx, nil, lead.ID, map[string]interface{}{"status": next}); err != nil {
		return nil, err
	}
	lead.Status = next
	return lead, nil
}

func (s *leadService) UpdateNotes(ctx context.Context, rd *requestdata.RequestData, leadID uuid.UUID, notes string) (*types.Lead, error) {
	lead, err := s.getOwned(ctx, rd, leadID)
	if err != nil {
		return nil, err
	}
	if err := s.leadRepo.UpdateFields(ctx, nil, lead.ID, map[string]interface{}{"notes": notes}); err != nil {
		return nil, err
	}
	lead.Notes = notes
	return lead, nil
}
