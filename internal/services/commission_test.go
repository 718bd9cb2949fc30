package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/types"
)

func newCommissionFixture(t *testing.T) (CommissionService, *gorm.DB) {
	t.Helper()
	log := testLogger(t)
	db := newTestDB(t)
	svc := NewCommissionService(
		log,
		db,
		repos.NewCommissionRepo(db, log),
		repos.NewPolicyRepo(db, log),
	)
	return svc, db
}

func seedActivePolicy(t *testing.T, db *gorm.DB, agentID uuid.UUID) *types.Policy {
	t.Helper()
	policy := &types.Policy{
		ID:           uuid.New(),
		AgentID:      agentID,
		Status:       types.PolicyStatusActivo,
		PolicyNumber: "POL-777",
		Company:      "Mapfre",
		Product:      "Vida",
	}
	require.NoError(t, db.Create(policy).Error)
	return policy
}

func TestCreateCommission_StartsPendiente(t *testing.T) {
	svc, db := newCommissionFixture(t)
	agent := seedAgent(t, db, "ana")
	policy := seedActivePolicy(t, db, agent.ID)
	ctx := context.Background()

	commission, err := svc.CreateCommission(ctx, rdFor(agent), CommissionInput{
		PolicyID:    policy.ID,
		Amount:      42.10,
		Currency:    "EUR",
		Percentage:  10,
		PeriodYear:  2026,
		PeriodMonth: 8,
	})
	require.NoError(t, err)
	require.Equal(t, types.CommissionStatusPendiente, commission.Status)
	require.Nil(t, commission.PaidAt)
}

func TestCreateCommission_Validation(t *testing.T) {
	svc, db := newCommissionFixture(t)
	agent := seedAgent(t, db, "ana")
	other := seedAgent(t, db, "eva")
	foreignPolicy := seedActivePolicy(t, db, other.ID)
	ctx := context.Background()

	_, err := svc.CreateCommission(ctx, rdFor(agent), CommissionInput{PeriodMonth: 13})
	if _, ok := IsValidationError(err); !ok {
		t.Fatalf("bad input should be a validation error, got %v", err)
	}

	_, err = svc.CreateCommission(ctx, rdFor(agent), CommissionInput{
		PolicyID: foreignPolicy.ID, Amount: 10, PeriodYear: 2026, PeriodMonth: 8,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("commission on a foreign policy should be forbidden, got %v", err)
	}
}

func TestMarkPaid_OnceOnly(t *testing.T) {
	svc, db := newCommissionFixture(t)
	agent := seedAgent(t, db, "ana")
	policy := seedActivePolicy(t, db, agent.ID)
	ctx := context.Background()

	commission, err := svc.CreateCommission(ctx, rdFor(agent), CommissionInput{
		PolicyID: policy.ID, Amount: 42.10, PeriodYear: 2026, PeriodMonth: 8,
	})
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, rdFor(agent), commission.ID)
	require.NoError(t, err)
	require.Equal(t, types.CommissionStatusPagada, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = svc.MarkPaid(ctx, rdFor(agent), commission.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("paying twice should conflict, got %v", err)
	}
}

func TestExportXLSX_ProducesWorkbook(t *testing.T) {
	svc, db := newCommissionFixture(t)
	agent := seedAgent(t, db, "ana")
	policy := seedActivePolicy(t, db, agent.ID)
	ctx := context.Background()

	_, err := svc.CreateCommission(ctx, rdFor(agent), CommissionInput{
		PolicyID: policy.ID, Amount: 42.10, Currency: "EUR", Percentage: 10,
		PeriodYear: 2026, PeriodMonth: 8,
	})
	require.NoError(t, err)

	data, err := svc.ExportXLSX(ctx, rdFor(agent), 2026)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Comisiones")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Periodo", rows[0][0])
	require.Equal(t, "2026-08", rows[1][0])
	require.Equal(t, "POL-777", rows[1][1])
}
