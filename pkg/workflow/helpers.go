package workflow

import "github.com/sentinelstay/triage/pkg/decision"

// Tool-result data is a map[string]any populated directly from Go
// values on first execution, but may come back from a Redis-backed
// session store's JSON round-trip on checkpoint replay - numeric types
// collapse to float64 and typed string slices become []any. These
// helpers read either shape.

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// riskVectorsFrom reconstructs decision.RiskVectors from the
// "risk_assessment" tool result assess-risk recorded.
func riskVectorsFrom(data map[string]any) decision.RiskVectors {
	return decision.RiskVectors{
		GuestSafetyRisk:            asFloat(data["guest_safety_risk"]),
		DataSecurityRisk:           asFloat(data["data_security_risk"]),
		FinancialRisk:              asFloat(data["financial_risk"]),
		OperationalRisk:            asFloat(data["operational_risk"]),
		LegalComplianceRisk:        asFloat(data["legal_compliance_risk"]),
		ReputationRisk:             asFloat(data["reputation_risk"]),
		EscalationRisk:             asFloat(data["escalation_risk"]),
		RequiresLegalReview:        asBool(data["requires_legal_review"]),
		RequiresManagementApproval: asBool(data["requires_management_approval"]),
		CriticalTimeframeMinutes:   int(asFloat(data["critical_timeframe_minutes"])),
	}
}

func riskVectorsToMap(r decision.RiskVectors) map[string]any {
	return map[string]any{
		"guest_safety_risk":            r.GuestSafetyRisk,
		"data_security_risk":           r.DataSecurityRisk,
		"financial_risk":               r.FinancialRisk,
		"operational_risk":             r.OperationalRisk,
		"legal_compliance_risk":        r.LegalComplianceRisk,
		"reputation_risk":              r.ReputationRisk,
		"escalation_risk":              r.EscalationRisk,
		"requires_legal_review":        r.RequiresLegalReview,
		"requires_management_approval": r.RequiresManagementApproval,
		"critical_timeframe_minutes":   r.CriticalTimeframeMinutes,
		"overall_risk_score":           r.OverallRiskScore(),
	}
}
