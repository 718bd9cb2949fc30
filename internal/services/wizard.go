package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/clients/redis"
	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/types"
)

type ContractorStepInput struct {
	ClientID uuid.UUID `json:"client_id"`
}

type InsuredInlineInput struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	DocumentID string     `json:"document_id"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
}

type InsuredStepInput struct {
	SameAsClient bool                `json:"same_as_client"`
	InsuredID    *uuid.UUID          `json:"insured_id,omitempty"`
	Insured      *InsuredInlineInput `json:"insured,omitempty"`
}

type DetailsStepInput struct {
	PolicyNumber   string     `json:"policy_number"`
	PaymentChannel string     `json:"payment_channel"`
	Product        string     `json:"product"`
	Company        string     `json:"company"`
	CoverageStart  *time.Time `json:"coverage_start,omitempty"`
	PremiumAmount  float64    `json:"premium_amount"`
	Periodicity    string     `json:"periodicity"`
	PaymentMonth   int        `json:"payment_month"`
	Currency       string     `json:"currency"`
}

type WizardService interface {
	GetDraft(ctx context.Context, rd *requestdata.RequestData) (*types.PolicyWizardDraft, error)
	SaveStepContractor(ctx context.Context, rd *requestdata.RequestData, policyID *uuid.UUID, input ContractorStepInput) (*types.Policy, error)
	SaveStepInsured(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID, input InsuredStepInput) (*types.Policy, error)
	SaveStepDetails(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID, input DetailsStepInput) (*types.Policy, error)
	SaveStepBeneficiaries(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID, inputs []BeneficiaryInput) (*types.Policy, error)
	Finish(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error)
	SaveAndExit(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error)
	GetPolicy(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error)
	ListPolicies(ctx context.Context, rd *requestdata.RequestData, status types.PolicyStatus) ([]*types.Policy, error)
}

type wizardService struct {
	log             *logger.Logger
	db              *gorm.DB
	policyRepo      repos.PolicyRepo
	clientRepo      repos.ClientRepo
	insuredRepo     repos.InsuredRepo
	beneficiaryRepo repos.BeneficiaryRepo
	draftRepo       repos.WizardDraftRepo
	hub             *sse.SSEHub
	bus             redis.SSEBus
}

func NewWizardService(
	log *logger.Logger,
	db *gorm.DB,
	policyRepo repos.PolicyRepo,
	clientRepo repos.ClientRepo,
	insuredRepo repos.InsuredRepo,
	beneficiaryRepo repos.BeneficiaryRepo,
	draftRepo repos.WizardDraftRepo,
	hub *sse.SSEHub,
	bus redis.SSEBus,
) WizardService {
	return &wizardService{
		log:             log.With("service", "WizardService"),
		db:              db,
		policyRepo:      policyRepo,
		clientRepo:      clientRepo,
		insuredRepo:     insuredRepo,
		beneficiaryRepo: beneficiaryRepo,
		draftRepo:       draftRepo,
		hub:             hub,
		bus:             bus,
	}
}

func (s *wizardService) GetDraft(ctx context.Context, rd *requestdata.RequestData) (*types.PolicyWizardDraft, error) {
	draft, err := s.draftRepo.GetByAgentID(ctx, nil, rd.AgentID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNotFound
	}
	return draft, nil
}

// getOwnedPolicy resolves ownership before any mutation happens. A policy
// belonging to another agent is a hard forbidden, not a silent no-op.
func (s *wizardService) getOwnedPolicy(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error) {
	policy, err := s.policyRepo.GetByID(ctx, tx, policyID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, ErrNotFound
	}
	if policy.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	return policy, nil
}

func (s *wizardService) getOwnedClient(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, clientID uuid.UUID) (*types.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, tx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewValidationError("unknown client", map[string]string{"client_id": "client not found"})
	}
	if client.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	return client, nil
}

func (s *wizardService) SaveStepContractor(ctx context.Context, rd *requestdata.RequestData, policyID *uuid.UUID, input ContractorStepInput) (*types.Policy, error) {
	if input.ClientID == uuid.Nil {
		return nil, NewValidationError("missing client", map[string]string{"client_id": "a client is required"})
	}

	var policy *types.Policy
	err := s.db.Transaction(func(tx *gorm.DB) error {
		client, txErr := s.getOwnedClient(ctx, tx, rd, input.ClientID)
		if txErr != nil {
			return txErr
		}

		if policyID == nil {
			clientID := client.ID
			policy = &types.Policy{
				ID:          uuid.New(),
				AgentID:     rd.AgentID,
				ClientID:    &clientID,
				Status:      types.PolicyStatusBorrador,
				CurrentStep: types.WizardStepContractor,
			}
			_, txErr = s.policyRepo.Create(ctx, tx, []*types.Policy{policy})
			return txErr
		}

		policy, txErr = s.getOwnedPolicy(ctx, tx, rd, *policyID)
		if txErr != nil {
			return txErr
		}
		clientID := client.ID
		if txErr := s.policyRepo.UpdateFields(ctx, tx, policy.ID, map[string]interface{}{
			"client_id":    clientID,
			"current_step": types.WizardStepContractor,
		}); txErr != nil {
			return txErr
		}
		policy.ClientID = &clientID
		policy.CurrentStep = types.WizardStepContractor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// SaveStepInsured resolves exactly one of three paths, in priority order:
// same_as_client, explicit insured_id, inline payload.
func (s *wizardService) SaveStepInsured(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID, input InsuredStepInput) (*types.Policy, error) {
	var policy *types.Policy
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		policy, txErr = s.getOwnedPolicy(ctx, tx, rd, policyID)
		if txErr != nil {
			return txErr
		}

		var insuredID uuid.UUID
		switch {
		case input.SameAsClient:
			insuredID, txErr = s.insuredFromClient(ctx, tx, rd, policy)
		case input.InsuredID != nil:
			insuredID, txErr = s.reuseInsured(ctx, tx, rd, *input.InsuredID)
		case input.Insured != nil:
			insuredID, txErr = s.createInlineInsured(ctx, tx, rd, policy, *input.Insured)
		default:
			txErr = NewValidationError("missing insured", map[string]string{
				"insured": "one of same_as_client, insured_id or an inline insured is required",
			})
		}
		if txErr != nil {
			return txErr
		}

		if txErr := s.policyRepo.UpdateFields(ctx, tx, policy.ID, map[string]interface{}{
			"insured_id":   insuredID,
			"current_step": types.WizardStepInsured,
		}); txErr != nil {
			return txErr
		}
		policy.InsuredID = &insuredID
		policy.CurrentStep = types.WizardStepInsured
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *wizardService) insuredFromClient(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, policy *types.Policy) (uuid.UUID, error) {
	if policy.ClientID == nil {
		return uuid.Nil, NewValidationError("no contractor yet", map[string]string{
			"same_as_client": "assign a contractor in step 1 first",
		})
	}
	existing, err := s.insuredRepo.GetByClientID(ctx, tx, *policy.ClientID)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	client, err := s.clientRepo.GetByID(ctx, tx, *policy.ClientID)
	if err != nil {
		return uuid.Nil, err
	}
	if client == nil {
		return uuid.Nil, fmt.Errorf("policy references missing client %s", *policy.ClientID)
	}
	clientID := client.ID
	insured := &types.Insured{
		ID:         uuid.New(),
		AgentID:    rd.AgentID,
		ClientID:   &clientID,
		FirstName:  client.FirstName,
		LastName:   client.LastName,
		DocumentID: client.DocumentID,
		Email:      client.Email,
		Phone:      client.Phone,
		BirthDate:  client.BirthDate,
	}
	if _, err := s.insuredRepo.Create(ctx, tx, []*types.Insured{insured}); err != nil {
		return uuid.Nil, err
	}
	return insured.ID, nil
}

func (s *wizardService) reuseInsured(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, insuredID uuid.UUID) (uuid.UUID, error) {
	insured, err := s.insuredRepo.GetByID(ctx, tx, insuredID)
	if err != nil {
		return uuid.Nil, err
	}
	if insured == nil {
		return uuid.Nil, NewValidationError("unknown insured", map[string]string{"insured_id": "insured not found"})
	}
	if insured.AgentID != rd.AgentID {
		return uuid.Nil, ErrForbidden
	}
	return insured.ID, nil
}

func (s *wizardService) createInlineInsured(ctx context.Context, tx *gorm.DB, rd *requestdata.RequestData, policy *types.Policy, input InsuredInlineInput) (uuid.UUID, error) {
	if input.FirstName == "" {
		return uuid.Nil, NewValidationError("invalid insured", map[string]string{"insured.first_name": "first name is required"})
	}
	insured := &types.Insured{
		ID:         uuid.New(),
		AgentID:    rd.AgentID,
		ClientID:   policy.ClientID,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		DocumentID: input.DocumentID,
		Email:      input.Email,
		Phone:      input.Phone,
		BirthDate:  input.BirthDate,
	}
	if _, err := s.insuredRepo.Create(ctx, tx, []*types.Insured{insured}); err != nil {
		return uuid.Nil, err
	}
	return insured.ID, nil
}

func (s *wizardService) SaveStepDetails(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID, input DetailsStepInput) (*types.Policy, error) {
	fields := map[string]string{}
	if input.PremiumAmount < 0 {
		fields["premium_amount"] = "must not be negative"
	}
	// 0 means the payment month was not set
	if input.PaymentMonth != 0 && (input.PaymentMonth < 1 || input.PaymentMonth > 12) {
		fields["payment_month"] = "must be between 1 and 12"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid policy details", fields)
	}

	var policy *types.Policy
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		policy, txErr = s.getOwnedPolicy(ctx, tx, rd, policyID)
		if txErr != nil {
			return txErr
		}
		updates := map[string]interface{}{
			"policy_number":   input.PolicyNumber,
			"payment_channel": input.PaymentChannel,
			"product":         input.Product,
			"company":         input.Company,
			"coverage_start":  input.CoverageStart,
			"premium_amount":  input.PremiumAmount,
			"periodicity":     input.Periodicity,
			"payment_month":   input.PaymentMonth,
			"currency":        input.Currency,
			"current_step":    types.WizardStepDetails,
		}
		if txErr := s.policyRepo.UpdateFields(ctx, tx, policy.ID, updates); txErr != nil {
			return txErr
		}
		policy.PolicyNumber = input.PolicyNumber
		policy.PaymentChannel = input.PaymentChannel
		policy.Product = input.Product
		policy.Company = input.Company
		policy.CoverageStart = input.CoverageStart
		policy.PremiumAmount = input.PremiumAmount
		policy.Periodicity = input.Periodicity
		policy.PaymentMonth = input.PaymentMonth
		policy.Currency = input.Currency
		policy.CurrentStep = types.WizardStepDetails
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// SaveStepBeneficiaries replaces the stored set by diff. The 100% rule is not
// enforced here; finish does that.
func (s *wizardService) SaveStepBeneficiaries(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID, inputs []BeneficiaryInput) (*types.Policy, error) {
	for i, in := range inputs {
		if in.FullName == "" {
			return nil, NewValidationError("invalid beneficiary", map[string]string{
				fmt.Sprintf("beneficiaries[%d].full_name", i): "name is required",
			})
		}
		if in.BenefitPercentage < 0 || in.BenefitPercentage > 100 {
			return nil, NewValidationError("invalid beneficiary", map[string]string{
				fmt.Sprintf("beneficiaries[%d].benefit_percentage", i): "must be between 0 and 100",
			})
		}
	}

	var policy *types.Policy
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		policy, txErr = s.getOwnedPolicy(ctx, tx, rd, policyID)
		if txErr != nil {
			return txErr
		}
		current, txErr := s.beneficiaryRepo.ListByPolicy(ctx, tx, policy.ID)
		if txErr != nil {
			return txErr
		}

		toDelete, toInsert, toUpdate := ReconcileBeneficiaries(current, inputs)

		if txErr := s.beneficiaryRepo.DeleteByIDs(ctx, tx, toDelete); txErr != nil {
			return txErr
		}
		for id, in := range toUpdate {
			if txErr := s.beneficiaryRepo.UpdateFields(ctx, tx, id, map[string]interface{}{
				"full_name":          in.FullName,
				"relationship":       in.Relationship,
				"benefit_percentage": in.BenefitPercentage,
			}); txErr != nil {
				return txErr
			}
		}
		rows := make([]*types.Beneficiary, 0, len(toInsert))
		for _, in := range toInsert {
			rows = append(rows, &types.Beneficiary{
				ID:                uuid.New(),
				PolicyID:          policy.ID,
				FullName:          in.FullName,
				Relationship:      in.Relationship,
				BenefitPercentage: in.BenefitPercentage,
			})
		}
		if _, txErr := s.beneficiaryRepo.Create(ctx, tx, rows); txErr != nil {
			return txErr
		}

		if txErr := s.policyRepo.UpdateFields(ctx, tx, policy.ID, map[string]interface{}{
			"current_step": types.WizardStepBeneficiaries,
		}); txErr != nil {
			return txErr
		}
		policy.CurrentStep = types.WizardStepBeneficiaries
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// Finish activates the policy once beneficiary percentages sum to exactly
// 100.00 after rounding to 2 decimals. Coverage start defaults to today when
// the wizard never set one.
func (s *wizardService) Finish(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error) {
	var policy *types.Policy
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		policy, txErr = s.getOwnedPolicy(ctx, tx, rd, policyID)
		if txErr != nil {
			return txErr
		}
		if !policy.Status.CanTransitionTo(types.PolicyStatusActivo) {
			return ErrConflict
		}

		beneficiaries, txErr := s.beneficiaryRepo.ListByPolicy(ctx, tx, policy.ID)
		if txErr != nil {
			return txErr
		}
		var sum float64
		for _, b := range beneficiaries {
			sum += b.BenefitPercentage
		}
		sum = math.Round(sum*100) / 100
		if sum != 100.00 {
			return NewValidationError("beneficiary percentages must total 100", map[string]string{
				"beneficiaries": fmt.Sprintf("percentages sum to %.2f, expected 100.00", sum),
			})
		}

		updates := map[string]interface{}{
			"status": types.PolicyStatusActivo,
		}
		coverageStart := policy.CoverageStart
		if coverageStart == nil {
			// midnight in the server's timezone, not UTC
			now := time.Now()
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			coverageStart = &today
			updates["coverage_start"] = today
		}
		if txErr := s.policyRepo.UpdateFields(ctx, tx, policy.ID, updates); txErr != nil {
			return txErr
		}
		policy.Status = types.PolicyStatusActivo
		policy.CoverageStart = coverageStart
		return nil
	})
	if err != nil {
		return nil, err
	}
	queueSSEMessage(ctx, s.hub, s.bus, sse.SSEMessage{
		Channel: sse.AgentChannel(rd.AgentID),
		Event:   sse.SSEEventPolicyActivated,
		Data:    map[string]any{"policy": policy},
	})
	s.log.Info("Policy activated", "policyID", policy.ID, "agentID", rd.AgentID)
	return policy, nil
}

func (s *wizardService) SaveAndExit(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error) {
	policy, err := s.getOwnedPolicy(ctx, nil, rd, policyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != types.PolicyStatusBorrador {
		return nil, ErrConflict
	}
	// Already borrador; the save-and-exit action just confirms the parked state.
	return policy, nil
}

func (s *wizardService) GetPolicy(ctx context.Context, rd *requestdata.RequestData, policyID uuid.UUID) (*types.Policy, error) {
	policy, err := s.policyRepo.GetByIDWithRelations(ctx, nil, policyID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, ErrNotFound
	}
	if policy.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	return policy, nil
}

func (s *wizardService) ListPolicies(ctx context.Context, rd *requestdata.RequestData, status types.PolicyStatus) ([]*types.Policy, error) {
	return s.policyRepo.ListByAgent(ctx, nil, rd.AgentID, status)
}
