package services

import (
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/types"
)

type BeneficiaryInput struct {
	ID                *uuid.UUID `json:"id,omitempty"`
	FullName          string     `json:"full_name"`
	Relationship      string     `json:"relationship"`
	BenefitPercentage float64    `json:"benefit_percentage"`
}

// ReconcileBeneficiaries diffs the submitted set against the stored rows.
// Rows absent from the submission are deleted, rows with a matching id are
// updated, and rows without an id (or with an unknown id) are inserted.
// Pure: repeated application of the same desired set is a no-op.
func ReconcileBeneficiaries(current []*types.Beneficiary, desired []BeneficiaryInput) (toDelete []uuid.UUID, toInsert []BeneficiaryInput, toUpdate map[uuid.UUID]BeneficiaryInput) {
	toDelete = []uuid.UUID{}
	toInsert = []BeneficiaryInput{}
	toUpdate = map[uuid.UUID]BeneficiaryInput{}

	currentByID := make(map[uuid.UUID]*types.Beneficiary, len(current))
	for _, b := range current {
		currentByID[b.ID] = b
	}

	desiredIDs := make(map[uuid.UUID]bool, len(desired))
	for _, d := range desired {
		if d.ID != nil {
			if _, exists := currentByID[*d.ID]; exists {
				desiredIDs[*d.ID] = true
				toUpdate[*d.ID] = d
				continue
			}
		}
		toInsert = append(toInsert, d)
	}

	for _, b := range current {
		if !desiredIDs[b.ID] {
			toDelete = append(toDelete, b.ID)
		}
	}
	return toDelete, toInsert, toUpdate
}
