package services

import "testing"

func TestMapImportToDraft_FullPayload(t *testing.T) {
	aiData := map[string]any{
		"contractor": map[string]any{
			"first_name":  "Carlos",
			"last_name":   "Lopez",
			"document_id": "12345678A",
			"email":       "carlos@example.com",
		},
		"insured": map[string]any{
			"same_as_contractor": true,
		},
		"policy": map[string]any{
			"policy_number":  "POL-001",
			"company":        "Mapfre",
			"product":        "Vida",
			"premium_amount": 420.5,
			"payment_month":  float64(3),
			"currency":       "EUR",
		},
		"beneficiaries": []any{
			map[string]any{"full_name": "Maria", "relationship": "hija", "benefit_percentage": 100.0},
		},
	}

	draft := MapImportToDraft(aiData)

	contractor := draft["contractor"].(map[string]any)
	if contractor["first_name"] != "Carlos" || contractor["document_id"] != "12345678A" {
		t.Fatalf("contractor not mapped: %v", contractor)
	}

	insured := draft["insured"].(map[string]any)
	if insured["same_as_client"] != true {
		t.Fatalf("same_as_contractor should map to same_as_client")
	}

	policy := draft["policy"].(map[string]any)
	if policy["policy_number"] != "POL-001" || policy["premium_amount"] != 420.5 {
		t.Fatalf("policy not mapped: %v", policy)
	}
	if policy["payment_month"] != 3 {
		t.Fatalf("payment_month should be an int, got %v", policy["payment_month"])
	}

	beneficiaries := draft["beneficiaries"].([]map[string]any)
	if len(beneficiaries) != 1 || beneficiaries[0]["full_name"] != "Maria" {
		t.Fatalf("beneficiaries not mapped: %v", beneficiaries)
	}
}

func TestMapImportToDraft_ToleratesNilAndMalformed(t *testing.T) {
	draft := MapImportToDraft(nil)
	if draft["contractor"] == nil || draft["insured"] == nil || draft["policy"] == nil {
		t.Fatalf("nil input must still yield every section")
	}

	draft = MapImportToDraft(map[string]any{
		"contractor":    "not a map",
		"beneficiaries": []any{"not a map", map[string]any{"relationship": "sin nombre"}},
	})
	contractor := draft["contractor"].(map[string]any)
	if contractor["first_name"] != "" {
		t.Fatalf("malformed contractor should collapse to defaults")
	}
	beneficiaries := draft["beneficiaries"].([]map[string]any)
	if len(beneficiaries) != 0 {
		t.Fatalf("beneficiaries without a name must be dropped, got %v", beneficiaries)
	}
}
