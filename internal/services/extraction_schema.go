package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RequiredExtractionFields are the dotted paths that must be present, with
// acceptable confidence, before an import can become ready.
var RequiredExtractionFields = []string{
	"contractor.first_name",
	"contractor.last_name",
	"contractor.document_id",
	"policy.policy_number",
	"policy.company",
	"policy.product",
	"policy.premium_amount",
}

// BuildPolicyExtractionSchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map. It is passed to the model as a structured output constraint
// and also used locally to validate whatever comes back.
func BuildPolicyExtractionSchema() map[string]any {
	personProps := map[string]any{
		"first_name":  map[string]any{"type": "string"},
		"last_name":   map[string]any{"type": "string"},
		"document_id": map[string]any{"type": "string"},
		"email":       map[string]any{"type": "string"},
		"phone":       map[string]any{"type": "string"},
		"birth_date":  map[string]any{"type": "string"},
	}
	contractorProps := map[string]any{
		"address":     map[string]any{"type": "string"},
		"city":        map[string]any{"type": "string"},
		"postal_code": map[string]any{"type": "string"},
	}
	for k, v := range personProps {
		contractorProps[k] = v
	}
	insuredProps := map[string]any{
		"same_as_contractor": map[string]any{"type": "boolean"},
	}
	for k, v := range personProps {
		insuredProps[k] = v
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"contractor": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           contractorProps,
			},
			"insured": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           insuredProps,
			},
			"policy": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"policy_number":   map[string]any{"type": "string"},
					"company":         map[string]any{"type": "string"},
					"product":         map[string]any{"type": "string"},
					"payment_channel": map[string]any{"type": "string"},
					"coverage_start":  map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
					"premium_amount":  map[string]any{"type": "number", "minimum": 0},
					"periodicity":     map[string]any{"type": "string"},
					"payment_month":   map[string]any{"type": "integer", "minimum": 1, "maximum": 12},
					"currency":        map[string]any{"type": "string"},
				},
			},
			"beneficiaries": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"full_name":          map[string]any{"type": "string"},
						"relationship":       map[string]any{"type": "string"},
						"benefit_percentage": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
					},
					"required": []string{"full_name"},
				},
			},
			"confidence": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			},
		},
		"required": []string{"contractor", "policy"},
	}
}

// ValidateExtractionJSON validates raw model output against the schema map.
func ValidateExtractionJSON(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// MissingRequiredFields walks the required paths and reports those that are
// absent, empty, or extracted below the confidence threshold.
func MissingRequiredFields(aiData map[string]any, confidence map[string]float64, threshold float64) []string {
	missing := []string{}
	for _, path := range RequiredExtractionFields {
		if !fieldPresent(aiData, path) {
			missing = append(missing, path)
			continue
		}
		if c, ok := confidence[path]; ok && c < threshold {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	return missing
}

func fieldPresent(data map[string]any, path string) bool {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[p]
		if !ok || cur == nil {
			return false
		}
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case float64:
		return v != 0
	default:
		return true
	}
}
