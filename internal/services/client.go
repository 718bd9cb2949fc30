package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/normalization"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

type ClientInput struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	DocumentID string     `json:"document_id"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	PostalCode string     `json:"postal_code"`
}

type ClientService interface {
	CreateClient(ctx context.Context, rd *requestdata.RequestData, input ClientInput) (*types.Client, error)
	GetClient(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID) (*types.Client, error)
	ListClients(ctx context.Context, rd *requestdata.RequestData, search string) ([]*types.Client, error)
	UpdateClient(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID, input ClientInput) (*types.Client, error)
	DeleteClient(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID) error
}

type clientService struct {
	log        *logger.Logger
	db         *gorm.DB
	clientRepo repos.ClientRepo
}

func NewClientService(log *logger.Logger, db *gorm.DB, clientRepo repos.ClientRepo) ClientService {
	return &clientService{
		log:        log.With("service", "ClientService"),
		db:         db,
		clientRepo: clientRepo,
	}
}

func validateClientInput(input *ClientInput) error {
	input.FirstName = normalization.TrimInputString(input.FirstName)
	input.LastName = normalization.TrimInputString(input.LastName)
	input.Email = normalization.ParseInputString(input.Email)
	fields := map[string]string{}
	if input.FirstName == "" {
		fields["first_name"] = "first name is required"
	}
	if len(fields) > 0 {
		return NewValidationError("invalid client", fields)
	}
	return nil
}

func (s *clientService) CreateClient(ctx context.Context, rd *requestdata.RequestData, input ClientInput) (*types.Client, error) {
	if err := validateClientInput(&input); err != nil {
		return nil, err
	}
	client := &types.Client{
		ID:         uuid.New(),
		AgentID:    rd.AgentID,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		DocumentID: input.DocumentID,
		Email:      input.Email,
		Phone:      input.Phone,
		BirthDate:  input.BirthDate,
		Address:    input.Address,
		City:       input.City,
		PostalCode: input.PostalCode,
	}
	if _, err := s.clientRepo.Create(ctx, nil, []*types.Client{client}); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) getOwned(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID) (*types.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, nil, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrNotFound
	}
	if client.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID) (*types.Client, error) {
	return s.getOwned(ctx, rd, clientID)
}

func (s *clientService) ListClients(ctx context.Context, rd *requestdata.RequestData, search string) ([]*types.Client, error) {
	return s.clientRepo.ListByAgent(ctx, nil, rd.AgentID, normalization.TrimInputString(search))
}

func (s *clientService) UpdateClient(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID, input ClientInput) (*types.Client, error) {
	if err := validateClientInput(&input); err != nil {
		return nil, err
	}
	client, err := s.getOwned(ctx, rd, clientID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"first_name":  input.FirstName,
		"last_name":   input.LastName,
		"document_id": input.DocumentID,
		"email":       input.Email,
		"phone":       input.Phone,
		"birth_date":  input.BirthDate,
		"address":     input.Address,
		"city":        input.City,
		"postal_code": input.PostalCode,
	}
	if err := s.clientRepo.UpdateFields(ctx, nil, client.ID, updates); err != nil {
		return nil, err
	}
	return s.clientRepo.GetByID(ctx, nil, client.ID)
}

func (s *clientService) DeleteClient(ctx context.Context, rd *requestdata.RequestData, clientID uuid.UUID) error {
	client, err := s.getOwned(ctx, rd, clientID)
	if err != nil {
		return err
	}
	return s.clientRepo.Delete(ctx, nil, client.ID)
}
