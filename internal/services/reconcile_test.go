package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/types"
)

func TestReconcileBeneficiaries_EmptyToEmpty(t *testing.T) {
	toDelete, toInsert, toUpdate := ReconcileBeneficiaries(nil, nil)
	if len(toDelete) != 0 || len(toInsert) != 0 || len(toUpdate) != 0 {
		t.Fatalf("expected all empty, got delete=%d insert=%d update=%d", len(toDelete), len(toInsert), len(toUpdate))
	}
}

func TestReconcileBeneficiaries_InsertsNewRows(t *testing.T) {
	desired := []BeneficiaryInput{
		{FullName: "Maria", Relationship: "hija", BenefitPercentage: 50},
		{FullName: "Pedro", Relationship: "hijo", BenefitPercentage: 50},
	}
	toDelete, toInsert, toUpdate := ReconcileBeneficiaries(nil, desired)
	if len(toInsert) != 2 {
		t.Fatalf("expected 2 inserts, got %d", len(toInsert))
	}
	if len(toDelete) != 0 || len(toUpdate) != 0 {
		t.Fatalf("expected no deletes or updates")
	}
}

func TestReconcileBeneficiaries_DeletesRemovedRows(t *testing.T) {
	keep := &types.Beneficiary{ID: uuid.New(), FullName: "Maria"}
	drop := &types.Beneficiary{ID: uuid.New(), FullName: "Pedro"}
	keepID := keep.ID

	toDelete, toInsert, toUpdate := ReconcileBeneficiaries(
		[]*types.Beneficiary{keep, drop},
		[]BeneficiaryInput{{ID: &keepID, FullName: "Maria Luisa", BenefitPercentage: 100}},
	)
	if len(toDelete) != 1 || toDelete[0] != drop.ID {
		t.Fatalf("expected only %s deleted, got %v", drop.ID, toDelete)
	}
	if len(toInsert) != 0 {
		t.Fatalf("expected no inserts, got %d", len(toInsert))
	}
	up, ok := toUpdate[keepID]
	if !ok || up.FullName != "Maria Luisa" {
		t.Fatalf("expected update for kept row")
	}
}

func TestReconcileBeneficiaries_UnknownIDBecomesInsert(t *testing.T) {
	strayID := uuid.New()
	toDelete, toInsert, toUpdate := ReconcileBeneficiaries(nil, []BeneficiaryInput{
		{ID: &strayID, FullName: "Maria", BenefitPercentage: 100},
	})
	if len(toInsert) != 1 {
		t.Fatalf("row with unknown id should be inserted")
	}
	if len(toDelete) != 0 || len(toUpdate) != 0 {
		t.Fatalf("expected no deletes or updates")
	}
}

func TestReconcileBeneficiaries_Idempotent(t *testing.T) {
	a := &types.Beneficiary{ID: uuid.New(), FullName: "Maria", BenefitPercentage: 60}
	b := &types.Beneficiary{ID: uuid.New(), FullName: "Pedro", BenefitPercentage: 40}
	aID, bID := a.ID, b.ID

	desired := []BeneficiaryInput{
		{ID: &aID, FullName: "Maria", BenefitPercentage: 60},
		{ID: &bID, FullName: "Pedro", BenefitPercentage: 40},
	}
	toDelete, toInsert, toUpdate := ReconcileBeneficiaries([]*types.Beneficiary{a, b}, desired)
	if len(toDelete) != 0 || len(toInsert) != 0 {
		t.Fatalf("same desired set must not delete or insert")
	}
	if len(toUpdate) != 2 {
		t.Fatalf("expected both rows in update set, got %d", len(toUpdate))
	}
}
