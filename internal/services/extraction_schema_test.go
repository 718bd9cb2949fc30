package services

import (
	"encoding/json"
	"testing"
)

func validAIData() map[string]any {
	return map[string]any{
		"contractor": map[string]any{
			"first_name":  "Carlos",
			"last_name":   "Lopez",
			"document_id": "12345678A",
		},
		"policy": map[string]any{
			"policy_number":  "POL-001",
			"company":        "Mapfre",
			"product":        "Vida",
			"premium_amount": 420.5,
		},
	}
}

func TestValidateExtractionJSON_AcceptsWellFormed(t *testing.T) {
	raw, err := json.Marshal(validAIData())
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateExtractionJSON(BuildPolicyExtractionSchema(), raw); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateExtractionJSON_RejectsBadShape(t *testing.T) {
	data := validAIData()
	data["policy"].(map[string]any)["premium_amount"] = "lots"
	raw, _ := json.Marshal(data)
	if err := ValidateExtractionJSON(BuildPolicyExtractionSchema(), raw); err == nil {
		t.Fatalf("string premium_amount should fail validation")
	}

	raw, _ = json.Marshal(map[string]any{"contractor": map[string]any{}})
	if err := ValidateExtractionJSON(BuildPolicyExtractionSchema(), raw); err == nil {
		t.Fatalf("missing policy section should fail validation")
	}
}

func TestMissingRequiredFields_AllPresent(t *testing.T) {
	missing := MissingRequiredFields(validAIData(), nil, 0.70)
	if len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", missing)
	}
}

func TestMissingRequiredFields_AbsentAndEmpty(t *testing.T) {
	data := validAIData()
	delete(data["contractor"].(map[string]any), "document_id")
	data["policy"].(map[string]any)["company"] = "   "

	missing := MissingRequiredFields(data, nil, 0.70)
	want := map[string]bool{"contractor.document_id": true, "policy.company": true}
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", missing)
	}
	for _, m := range missing {
		if !want[m] {
			t.Fatalf("unexpected missing field %q", m)
		}
	}
}

func TestMissingRequiredFields_LowConfidenceCounts(t *testing.T) {
	confidence := map[string]float64{
		"policy.policy_number":  0.45,
		"contractor.first_name": 0.95,
	}
	missing := MissingRequiredFields(validAIData(), confidence, 0.70)
	if len(missing) != 1 || missing[0] != "policy.policy_number" {
		t.Fatalf("expected only the low-confidence field, got %v", missing)
	}
}
