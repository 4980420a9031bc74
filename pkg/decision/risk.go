package decision

import (
	"github.com/sentinelstay/triage/pkg/incident"
)

// RiskVectors is a multi-dimensional risk assessment for an incident,
// grounded on decision_engine.py's RiskVectors dataclass.
type RiskVectors struct {
	GuestSafetyRisk     float64
	DataSecurityRisk    float64
	FinancialRisk        float64
	OperationalRisk      float64
	LegalComplianceRisk  float64
	ReputationRisk       float64
	EscalationRisk       float64

	RequiresLegalReview        bool
	RequiresManagementApproval bool
	// CriticalTimeframeMinutes is 0 when the category has no
	// compliance-driven response deadline.
	CriticalTimeframeMinutes int
}

// riskWeights mirrors RiskVectors.overall_risk_score's weights list.
// escalation_risk is not part of the Python zip (it has six weights for
// six risks) and is carried on the struct for reporting only.
const (
	riskWeightGuestSafety    = 0.25
	riskWeightDataSecurity   = 0.20
	riskWeightFinancial      = 0.15
	riskWeightOperational    = 0.15
	riskWeightLegalCompliance = 0.15
	riskWeightReputation     = 0.10
)

// OverallRiskScore is the weighted mean of the six scored risk
// dimensions (excluding escalation_risk, same as the source).
func (r RiskVectors) OverallRiskScore() float64 {
	return riskWeightGuestSafety*r.GuestSafetyRisk +
		riskWeightDataSecurity*r.DataSecurityRisk +
		riskWeightFinancial*r.FinancialRisk +
		riskWeightOperational*r.OperationalRisk +
		riskWeightLegalCompliance*r.LegalComplianceRisk +
		riskWeightReputation*r.ReputationRisk
}

type categoryRiskBase struct {
	guestSafety     float64
	dataSecurity    float64
	financial       float64
	operational     float64
	legalCompliance float64
	reputation      float64
	escalation      float64
}

// categoryBaseRisks supplies the per-category starting point
// AdvancedRiskAssessor._get_category_base_risks never defines in the
// source (it is called but its body is not present there) - this
// module supplies concrete figures in the same spirit as
// tools.categoryRiskScores.
var categoryBaseRisks = map[incident.Category]categoryRiskBase{
	incident.CategoryGuestAccess:      {guestSafety: 0.3, dataSecurity: 0.2, financial: 0.2, operational: 0.3, legalCompliance: 0.2, reputation: 0.4, escalation: 0.3},
	incident.CategoryPaymentFraud:     {guestSafety: 0.1, dataSecurity: 0.3, financial: 0.8, operational: 0.4, legalCompliance: 0.4, reputation: 0.5, escalation: 0.4},
	incident.CategoryPIIBreach:        {guestSafety: 0.1, dataSecurity: 0.9, financial: 0.3, operational: 0.4, legalCompliance: 0.9, reputation: 0.8, escalation: 0.5},
	incident.CategoryCyberSecurity:    {guestSafety: 0.2, dataSecurity: 0.8, financial: 0.5, operational: 0.8, legalCompliance: 0.5, reputation: 0.7, escalation: 0.7},
	incident.CategoryPhysicalSecurity: {guestSafety: 0.8, dataSecurity: 0.1, financial: 0.2, operational: 0.4, legalCompliance: 0.3, reputation: 0.5, escalation: 0.5},
	incident.CategoryOpsSecurity:      {guestSafety: 0.2, dataSecurity: 0.2, financial: 0.2, operational: 0.5, legalCompliance: 0.2, reputation: 0.3, escalation: 0.2},
	incident.CategoryVendorAccess:     {guestSafety: 0.2, dataSecurity: 0.4, financial: 0.3, operational: 0.4, legalCompliance: 0.3, reputation: 0.3, escalation: 0.3},
	incident.CategoryCompliance:       {guestSafety: 0.1, dataSecurity: 0.3, financial: 0.3, operational: 0.3, legalCompliance: 0.8, reputation: 0.5, escalation: 0.3},
}

// criticalTimeframeMinutes mirrors the critical_response_time entries
// of _initialize_decision_matrix, extended to every category.
var criticalTimeframeMinutes = map[incident.Category]int{
	incident.CategoryGuestAccess:      30,
	incident.CategoryPaymentFraud:     15,
	incident.CategoryPIIBreach:        60,
	incident.CategoryCyberSecurity:    10,
	incident.CategoryPhysicalSecurity: 15,
	incident.CategoryVendorAccess:     30,
	incident.CategoryCompliance:       60,
}

// RiskAssessor analyzes an incident across the seven risk dimensions.
type RiskAssessor struct{}

// NewRiskAssessor builds a RiskAssessor.
func NewRiskAssessor() *RiskAssessor {
	return &RiskAssessor{}
}

// Analyze scores risk for the incident's category and scope, and
// decides the legal-review / management-approval flags used downstream
// by the autonomy assessor.
func (a *RiskAssessor) Analyze(meta incident.Metadata, category incident.Category) RiskVectors {
	base, ok := categoryBaseRisks[category]
	if !ok {
		base = categoryBaseRisks[incident.CategoryOpsSecurity]
	}

	scaled := scaleRisks(base, meta)

	requiresLegal := category == incident.CategoryPIIBreach ||
		category == incident.CategoryCompliance ||
		scaled.legalCompliance >= 0.6

	requiresManagement := scaled.guestSafety > 0.8 ||
		scaled.financial > 0.7 ||
		requiresLegal

	timeframe := criticalTimeframeMinutes[category]

	return RiskVectors{
		GuestSafetyRisk:            scaled.guestSafety,
		DataSecurityRisk:           scaled.dataSecurity,
		FinancialRisk:              scaled.financial,
		OperationalRisk:            scaled.operational,
		LegalComplianceRisk:        scaled.legalCompliance,
		ReputationRisk:             scaled.reputation,
		EscalationRisk:             scaled.escalation,
		RequiresLegalReview:        requiresLegal,
		RequiresManagementApproval: requiresManagement,
		CriticalTimeframeMinutes:   timeframe,
	}
}

// scaleRisks adjusts the category base risks for affected scope,
// mirroring _adjust_risks_for_context's scope-driven amplification
// (never defined in the source either, supplied here on the same
// principle as scopeMultiplier).
func scaleRisks(base categoryRiskBase, meta incident.Metadata) categoryRiskBase {
	scale := 1.0
	switch {
	case meta.GuestCount > 100:
		scale = 1.3
	case meta.GuestCount > 10:
		scale = 1.15
	}

	clamp := func(v float64) float64 {
		scaled := v * scale
		if scaled > 1.0 {
			return 1.0
		}
		return scaled
	}

	return categoryRiskBase{
		guestSafety:     clamp(base.guestSafety),
		dataSecurity:    clamp(base.dataSecurity),
		financial:       clamp(base.financial),
		operational:     clamp(base.operational),
		legalCompliance: clamp(base.legalCompliance),
		reputation:      clamp(base.reputation),
		escalation:      clamp(base.escalation),
	}
}
