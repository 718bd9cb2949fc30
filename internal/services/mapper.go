package services

// MapImportToDraft shapes extracted ai_data into the draft payload the wizard
// reads, one section per step. It is total: absent or malformed sections
// collapse to empty defaults instead of failing.
func MapImportToDraft(aiData map[string]any) map[string]any {
	contractor := subMap(aiData, "contractor")
	insured := subMap(aiData, "insured")
	policy := subMap(aiData, "policy")

	draftContractor := map[string]any{
		"first_name":  strVal(contractor, "first_name"),
		"last_name":   strVal(contractor, "last_name"),
		"document_id": strVal(contractor, "document_id"),
		"email":       strVal(contractor, "email"),
		"phone":       strVal(contractor, "phone"),
		"birth_date":  strVal(contractor, "birth_date"),
		"address":     strVal(contractor, "address"),
		"city":        strVal(contractor, "city"),
		"postal_code": strVal(contractor, "postal_code"),
	}

	draftInsured := map[string]any{
		"same_as_client": boolVal(insured, "same_as_contractor"),
		"first_name":     strVal(insured, "first_name"),
		"last_name":      strVal(insured, "last_name"),
		"document_id":    strVal(insured, "document_id"),
		"email":          strVal(insured, "email"),
		"phone":          strVal(insured, "phone"),
		"birth_date":     strVal(insured, "birth_date"),
	}

	draftPolicy := map[string]any{
		"policy_number":   strVal(policy, "policy_number"),
		"company":         strVal(policy, "company"),
		"product":         strVal(policy, "product"),
		"payment_channel": strVal(policy, "payment_channel"),
		"coverage_start":  strVal(policy, "coverage_start"),
		"premium_amount":  numVal(policy, "premium_amount"),
		"periodicity":     strVal(policy, "periodicity"),
		"payment_month":   int(numVal(policy, "payment_month")),
		"currency":        strVal(policy, "currency"),
	}

	draftBeneficiaries := []map[string]any{}
	if raw, ok := aiData["beneficiaries"].([]any); ok {
		for _, item := range raw {
			b, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := strVal(b, "full_name")
			if name == "" {
				continue
			}
			draftBeneficiaries = append(draftBeneficiaries, map[string]any{
				"full_name":          name,
				"relationship":       strVal(b, "relationship"),
				"benefit_percentage": numVal(b, "benefit_percentage"),
			})
		}
	}

	return map[string]any{
		"contractor":    draftContractor,
		"insured":       draftInsured,
		"policy":        draftPolicy,
		"beneficiaries": draftBeneficiaries,
	}
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	v, ok := m[key].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return v
}

func strVal(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolVal(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func numVal(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
