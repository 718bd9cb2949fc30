package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/ssedata"
	"github.com/polizaflow/agency-backend/internal/types"
)

func newWizardFixture(t *testing.T) (WizardService, *gorm.DB) {
	t.Helper()
	log := testLogger(t)
	db := newTestDB(t)
	svc := NewWizardService(
		log,
		db,
		repos.NewPolicyRepo(db, log),
		repos.NewClientRepo(db, log),
		repos.NewInsuredRepo(db, log),
		repos.NewBeneficiaryRepo(db, log),
		repos.NewWizardDraftRepo(db, log),
		sse.NewSSEHub(log),
		nil,
	)
	return svc, db
}

func startPolicy(t *testing.T, svc WizardService, db *gorm.DB, rd *requestdata.RequestData, client *types.Client) *types.Policy {
	t.Helper()
	policy, err := svc.SaveStepContractor(context.Background(), rd, nil, ContractorStepInput{ClientID: client.ID})
	require.NoError(t, err)
	return policy
}

func TestSaveStepContractor_CreatesDraftPolicy(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)

	policy := startPolicy(t, svc, db, rdFor(agent), client)

	if policy.Status != types.PolicyStatusBorrador {
		t.Fatalf("new policy should be borrador, got %s", policy.Status)
	}
	if policy.CurrentStep != types.WizardStepContractor {
		t.Fatalf("expected step %d, got %d", types.WizardStepContractor, policy.CurrentStep)
	}
	if policy.ClientID == nil || *policy.ClientID != client.ID {
		t.Fatalf("contractor not linked")
	}
}

func TestSaveStepContractor_RejectsForeignClient(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	other := seedAgent(t, db, "eva")
	foreignClient := seedClient(t, db, other.ID)

	_, err := svc.SaveStepContractor(context.Background(), rdFor(agent), nil, ContractorStepInput{ClientID: foreignClient.ID})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign client should be forbidden, got %v", err)
	}

	var count int64
	require.NoError(t, db.Model(&types.Policy{}).Count(&count).Error)
	if count != 0 {
		t.Fatalf("no policy should be created on a forbidden request")
	}
}

func TestSaveStepInsured_SameAsClientFindsOrCreates(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)

	updated, err := svc.SaveStepInsured(ctx, rd, policy.ID, InsuredStepInput{SameAsClient: true})
	require.NoError(t, err)
	require.NotNil(t, updated.InsuredID)

	var insured types.Insured
	require.NoError(t, db.Where("id = ?", *updated.InsuredID).First(&insured).Error)
	if insured.FirstName != client.FirstName || insured.DocumentID != client.DocumentID {
		t.Fatalf("insured should copy client identity")
	}

	// same call again reuses the row instead of duplicating it
	again, err := svc.SaveStepInsured(ctx, rd, policy.ID, InsuredStepInput{SameAsClient: true})
	require.NoError(t, err)
	if *again.InsuredID != insured.ID {
		t.Fatalf("repeated same_as_client should reuse the insured row")
	}
	var count int64
	require.NoError(t, db.Model(&types.Insured{}).Where("client_id = ?", client.ID).Count(&count).Error)
	if count != 1 {
		t.Fatalf("expected a single insured row, got %d", count)
	}
}

func TestSaveStepInsured_InlineAndReuse(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)

	updated, err := svc.SaveStepInsured(ctx, rd, policy.ID, InsuredStepInput{
		Insured: &InsuredInlineInput{FirstName: "Luisa", LastName: "Perez", DocumentID: "87654321B"},
	})
	require.NoError(t, err)
	inlineID := *updated.InsuredID

	policy2 := startPolicy(t, svc, db, rd, client)
	reused, err := svc.SaveStepInsured(ctx, rd, policy2.ID, InsuredStepInput{InsuredID: &inlineID})
	require.NoError(t, err)
	if *reused.InsuredID != inlineID {
		t.Fatalf("insured_id path should attach the existing row")
	}

	// none of the three paths supplied
	_, err = svc.SaveStepInsured(ctx, rd, policy.ID, InsuredStepInput{})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("empty insured step should be a validation error, got %v", err)
	}
}

func TestSaveStepDetails_Validation(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)

	policy := startPolicy(t, svc, db, rd, client)

	_, err := svc.SaveStepDetails(context.Background(), rd, policy.ID, DetailsStepInput{PremiumAmount: -5})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("negative premium should be a validation error, got %v", err)
	}

	updated, err := svc.SaveStepDetails(context.Background(), rd, policy.ID, DetailsStepInput{
		PolicyNumber:  "POL-001",
		Company:       "Mapfre",
		Product:       "Vida",
		PremiumAmount: 420.50,
		Periodicity:   "anual",
		PaymentMonth:  3,
		Currency:      "EUR",
	})
	require.NoError(t, err)
	if updated.PolicyNumber != "POL-001" || updated.CurrentStep != types.WizardStepDetails {
		t.Fatalf("details not persisted: %+v", updated)
	}
}

func TestSaveStepDetails_PaymentMonthBounds(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)

	_, err := svc.SaveStepDetails(ctx, rd, policy.ID, DetailsStepInput{PaymentMonth: 13})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("month 13 should be a validation error, got %v", err)
	}
	_, err = svc.SaveStepDetails(ctx, rd, policy.ID, DetailsStepInput{PaymentMonth: -1})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("negative month should be a validation error, got %v", err)
	}

	// 0 means unset and is accepted
	updated, err := svc.SaveStepDetails(ctx, rd, policy.ID, DetailsStepInput{PaymentMonth: 0})
	require.NoError(t, err)
	require.Equal(t, 0, updated.PaymentMonth)
}

func TestFinish_RequiresExactHundredPercent(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)
	_, err := svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{
		{FullName: "Maria", Relationship: "hija", BenefitPercentage: 60},
	})
	require.NoError(t, err)

	_, err = svc.Finish(ctx, rd, policy.ID)
	vErr, ok := IsValidationError(err)
	if !ok {
		t.Fatalf("60%% total should fail finish, got %v", err)
	}
	if _, hasField := vErr.Fields["beneficiaries"]; !hasField {
		t.Fatalf("validation error should name beneficiaries, got %v", vErr.Fields)
	}

	// still borrador after the rejection
	var stored types.Policy
	require.NoError(t, db.Where("id = ?", policy.ID).First(&stored).Error)
	if stored.Status != types.PolicyStatusBorrador {
		t.Fatalf("failed finish must not change status, got %s", stored.Status)
	}

	_, err = svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{
		{FullName: "Maria", Relationship: "hija", BenefitPercentage: 60},
		{FullName: "Pedro", Relationship: "hijo", BenefitPercentage: 40},
	})
	require.NoError(t, err)

	finished, err := svc.Finish(ctx, rd, policy.ID)
	require.NoError(t, err)
	if finished.Status != types.PolicyStatusActivo {
		t.Fatalf("expected activo, got %s", finished.Status)
	}
	if finished.CoverageStart == nil {
		t.Fatalf("coverage_start should default to today on finish")
	}
	if time.Since(*finished.CoverageStart) > 48*time.Hour {
		t.Fatalf("defaulted coverage_start looks wrong: %v", finished.CoverageStart)
	}

	// double finish is a conflict
	_, err = svc.Finish(ctx, rd, policy.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("finishing an active policy should conflict, got %v", err)
	}
}

func TestFinish_DefaultsCoverageStartToLocalMidnight(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)
	_, err := svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{{FullName: "M", BenefitPercentage: 100}})
	require.NoError(t, err)

	finished, err := svc.Finish(ctx, rd, policy.ID)
	require.NoError(t, err)
	require.NotNil(t, finished.CoverageStart)

	cs := *finished.CoverageStart
	now := time.Now()
	if cs.Year() != now.Year() || cs.Month() != now.Month() || cs.Day() != now.Day() {
		t.Fatalf("coverage_start should be today's local date, got %v", cs)
	}
	if cs.Hour() != 0 || cs.Minute() != 0 || cs.Second() != 0 {
		t.Fatalf("coverage_start should be midnight, got %v", cs)
	}
	if cs.Location() != now.Location() {
		t.Fatalf("coverage_start should use the local timezone, got %v", cs.Location())
	}
}

func TestFinish_BuffersActivationEvent(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := ssedata.WithSSEData(context.Background())

	policy := startPolicy(t, svc, db, rd, client)
	_, err := svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{{FullName: "M", BenefitPercentage: 100}})
	require.NoError(t, err)
	_, err = svc.Finish(ctx, rd, policy.ID)
	require.NoError(t, err)

	// the event waits on the request buffer until the middleware flushes it
	ssd := ssedata.GetSSEData(ctx)
	require.NotNil(t, ssd)
	var activated []sse.SSEMessage
	for _, msg := range ssd.Messages {
		if msg.Event == sse.SSEEventPolicyActivated {
			activated = append(activated, msg)
		}
	}
	require.Len(t, activated, 1)
	require.Equal(t, sse.AgentChannel(agent.ID), activated[0].Channel)
}

func TestFinish_AcceptsFractionalSplit(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)
	_, err := svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{
		{FullName: "A", BenefitPercentage: 33.33},
		{FullName: "B", BenefitPercentage: 33.33},
		{FullName: "C", BenefitPercentage: 33.34},
	})
	require.NoError(t, err)

	finished, err := svc.Finish(ctx, rd, policy.ID)
	require.NoError(t, err)
	require.Equal(t, types.PolicyStatusActivo, finished.Status)
}

func TestSaveStepBeneficiaries_ReplacesSet(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)
	_, err := svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{
		{FullName: "Maria", BenefitPercentage: 50},
		{FullName: "Pedro", BenefitPercentage: 50},
	})
	require.NoError(t, err)

	var stored []*types.Beneficiary
	require.NoError(t, db.Where("policy_id = ?", policy.ID).Find(&stored).Error)
	require.Len(t, stored, 2)
	keepID := stored[0].ID

	_, err = svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{
		{ID: &keepID, FullName: "Maria Luisa", BenefitPercentage: 100},
	})
	require.NoError(t, err)

	stored = nil
	require.NoError(t, db.Where("policy_id = ?", policy.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	if stored[0].ID != keepID || stored[0].FullName != "Maria Luisa" {
		t.Fatalf("expected kept row updated in place, got %+v", stored[0])
	}
}

func TestWizard_ForeignPolicyIsForbidden(t *testing.T) {
	svc, db := newWizardFixture(t)
	owner := seedAgent(t, db, "ana")
	intruder := seedAgent(t, db, "eva")
	client := seedClient(t, db, owner.ID)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rdFor(owner), client)

	_, err := svc.SaveStepDetails(ctx, rdFor(intruder), policy.ID, DetailsStepInput{PolicyNumber: "HACK"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign details write should be forbidden, got %v", err)
	}
	_, err = svc.Finish(ctx, rdFor(intruder), policy.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign finish should be forbidden, got %v", err)
	}

	var stored types.Policy
	require.NoError(t, db.Where("id = ?", policy.ID).First(&stored).Error)
	if stored.PolicyNumber != "" || stored.Status != types.PolicyStatusBorrador {
		t.Fatalf("forbidden requests must not mutate the policy")
	}
}

func TestSaveAndExit_KeepsBorrador(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	client := seedClient(t, db, agent.ID)
	rd := rdFor(agent)
	ctx := context.Background()

	policy := startPolicy(t, svc, db, rd, client)

	parked, err := svc.SaveAndExit(ctx, rd, policy.ID)
	require.NoError(t, err)
	require.Equal(t, types.PolicyStatusBorrador, parked.Status)

	// activate, then save-and-exit no longer applies
	_, err = svc.SaveStepBeneficiaries(ctx, rd, policy.ID, []BeneficiaryInput{{FullName: "M", BenefitPercentage: 100}})
	require.NoError(t, err)
	_, err = svc.Finish(ctx, rd, policy.ID)
	require.NoError(t, err)

	_, err = svc.SaveAndExit(ctx, rd, policy.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("save-and-exit on an active policy should conflict, got %v", err)
	}
}

func TestListPolicies_FiltersByStatusAndOwner(t *testing.T) {
	svc, db := newWizardFixture(t)
	agent := seedAgent(t, db, "ana")
	other := seedAgent(t, db, "eva")
	client := seedClient(t, db, agent.ID)
	otherClient := seedClient(t, db, other.ID)
	ctx := context.Background()

	mine := startPolicy(t, svc, db, rdFor(agent), client)
	_ = startPolicy(t, svc, db, rdFor(other), otherClient)

	_, err := svc.SaveStepBeneficiaries(ctx, rdFor(agent), mine.ID, []BeneficiaryInput{{FullName: "M", BenefitPercentage: 100}})
	require.NoError(t, err)
	_, err = svc.Finish(ctx, rdFor(agent), mine.ID)
	require.NoError(t, err)

	active, err := svc.ListPolicies(ctx, rdFor(agent), types.PolicyStatusActivo)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, mine.ID, active[0].ID)

	drafts, err := svc.ListPolicies(ctx, rdFor(agent), types.PolicyStatusBorrador)
	require.NoError(t, err)
	require.Len(t, drafts, 0)

	all, err := svc.ListPolicies(ctx, rdFor(agent), "")
	require.NoError(t, err)
	require.Len(t, all, 1)
}
