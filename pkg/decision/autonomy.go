package decision

import (
	"fmt"

	"github.com/sentinelstay/triage/pkg/incident"
)

// AutonomyAssessment is the scored answer to "can this incident proceed
// without a human in the loop", grounded on decision_engine.py's
// AutonomyAssessment dataclass.
type AutonomyAssessment struct {
	CanProceedAutonomously bool
	Confidence             float64
	Reasoning              string
	CriteriaScores         map[string]float64
	OverrideConditionsMet  bool
}

// autonomyThresholds mirrors _load_autonomy_thresholds.
var autonomyThresholds = map[incident.Category]float64{
	incident.CategoryGuestAccess:      0.75,
	incident.CategoryPaymentFraud:     0.70,
	incident.CategoryPIIBreach:        0.65,
	incident.CategoryOpsSecurity:      0.80,
	incident.CategoryVendorAccess:     0.75,
	incident.CategoryPhysicalSecurity: 0.70,
	incident.CategoryCyberSecurity:    0.60,
	incident.CategoryCompliance:       0.50,
}

// autonomyWeights mirrors _assess_autonomy_capability's weights dict.
var autonomyWeights = map[string]float64{
	"financial_threshold":        0.20,
	"safety_risk":                0.25,
	"classification_confidence":  0.15,
	"compliance_simple":          0.15,
	"operational_impact":         0.10,
	"time_sensitivity":           0.05,
	"historical_success":         0.05,
	"system_complexity":          0.05,
}

// historicalSuccessRates stands in for the learning loop
// _get_historical_success_rate would otherwise draw from
// pkg/metrics-recorded outcomes; it holds fixed per-category seed
// rates, and a category not listed here gets 0.7.
var historicalSuccessRates = map[incident.Category]float64{
	incident.CategoryGuestAccess:      0.82,
	incident.CategoryPaymentFraud:     0.75,
	incident.CategoryPIIBreach:        0.68,
	incident.CategoryOpsSecurity:      0.85,
	incident.CategoryVendorAccess:     0.78,
	incident.CategoryPhysicalSecurity: 0.80,
	incident.CategoryCyberSecurity:    0.70,
	incident.CategoryCompliance:       0.65,
}

const financialAutonomyThreshold = 50000.0
const financialOverrideThreshold = 100000.0

// AutonomyAssessor evaluates whether an incident can proceed
// autonomously.
type AutonomyAssessor struct{}

// NewAutonomyAssessor builds an AutonomyAssessor.
func NewAutonomyAssessor() *AutonomyAssessor {
	return &AutonomyAssessor{}
}

// Assess runs the eight-criterion weighted score against the
// per-category threshold, then applies the override conditions that
// force human review regardless of score, exactly as
// _assess_autonomy_capability does.
func (a *AutonomyAssessor) Assess(meta incident.Metadata, category incident.Category, classificationConfidence float64, impact BusinessImpact, risk RiskVectors) AutonomyAssessment {
	if classificationConfidence <= 0 {
		classificationConfidence = 0.5
	}

	systemComplexity := systemIntegrationComplexity(meta)

	criteria := map[string]float64{
		"financial_threshold":       boolScore(impact.FinancialImpact < financialAutonomyThreshold),
		"safety_risk":                1.0 - risk.GuestSafetyRisk,
		"classification_confidence":  classificationConfidence,
		"compliance_simple":          boolScore(!risk.RequiresLegalReview),
		"operational_impact":         1.0 - impact.OperationalImpact,
		"time_sensitivity":           timeSensitivity(risk.CriticalTimeframeMinutes),
		"historical_success":         historicalSuccessRate(category),
		"system_complexity":          1.0 - systemComplexity,
	}

	var score float64
	for criterion, value := range criteria {
		score += autonomyWeights[criterion] * value
	}

	threshold, ok := autonomyThresholds[category]
	if !ok {
		threshold = 0.70
	}
	canProceed := score >= threshold

	overrides := []bool{
		risk.RequiresLegalReview,
		risk.RequiresManagementApproval,
		impact.FinancialImpact > financialOverrideThreshold,
		risk.GuestSafetyRisk > 0.8,
		classificationConfidence < 0.6,
	}
	overrideMet := anyTrue(overrides)

	var reasoning string
	if overrideMet {
		canProceed = false
		reasoning = "Override condition met - requires human intervention"
	} else if canProceed {
		reasoning = fmt.Sprintf("Autonomy score %.2f meets threshold %.2f", score, threshold)
	} else {
		reasoning = fmt.Sprintf("Autonomy score %.2f below threshold %.2f", score, threshold)
	}

	return AutonomyAssessment{
		CanProceedAutonomously: canProceed,
		Confidence:             score,
		Reasoning:              reasoning,
		CriteriaScores:         criteria,
		OverrideConditionsMet:  overrideMet,
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// timeSensitivity mirrors the time_factor block of
// _assess_autonomy_capability.
func timeSensitivity(criticalTimeframeMinutes int) float64 {
	switch {
	case criticalTimeframeMinutes <= 0:
		return 1.0
	case criticalTimeframeMinutes < 15:
		return 0.3
	case criticalTimeframeMinutes < 60:
		return 0.8
	default:
		return 1.0
	}
}

func historicalSuccessRate(category incident.Category) float64 {
	if rate, ok := historicalSuccessRates[category]; ok {
		return rate
	}
	return 0.7
}

// systemIntegrationComplexity mirrors
// _assess_system_integration_complexity, scaled by affected-system
// count since the source never defines this helper's body either.
func systemIntegrationComplexity(meta incident.Metadata) float64 {
	complexity := float64(meta.SystemCount) / 5.0
	if complexity > 1.0 {
		return 1.0
	}
	return complexity
}

func anyTrue(conditions []bool) bool {
	for _, c := range conditions {
		if c {
			return true
		}
	}
	return false
}
