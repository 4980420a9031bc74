package decision

import (
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
)

// BusinessImpact is the business-impact calculator's scored view of an
// incident, grounded on decision_engine.py's BusinessImpact dataclass.
type BusinessImpact struct {
	FinancialImpact          float64
	GuestSatisfactionImpact  float64
	OperationalImpact        float64
	ReputationImpact         float64
	ComplianceImpact         float64
	UrgencyFactor            float64
}

// weight constants for TotalImpactScore, matching
// BusinessImpact.total_impact_score's weights dict.
const (
	weightFinancial         = 0.25
	weightGuestSatisfaction = 0.20
	weightOperational       = 0.20
	weightReputation        = 0.20
	weightCompliance        = 0.15

	financialNormalization = 100000.0
)

// TotalImpactScore is the weighted, urgency-scaled impact score used to
// feed the autonomy assessment and plan scoring.
func (b BusinessImpact) TotalImpactScore() float64 {
	normalizedFinancial := b.FinancialImpact / financialNormalization
	if normalizedFinancial > 1.0 {
		normalizedFinancial = 1.0
	}

	total := weightFinancial*normalizedFinancial +
		weightGuestSatisfaction*b.GuestSatisfactionImpact +
		weightOperational*b.OperationalImpact +
		weightReputation*b.ReputationImpact +
		weightCompliance*b.ComplianceImpact

	return total * b.UrgencyFactor
}

type categoryImpact struct {
	baseFinancial     float64
	guestSatisfaction float64
	operational       float64
	reputation        float64
	compliance        float64
}

// categoryImpacts mirrors BusinessImpactCalculator.calculate_impact's
// category_impacts table. Categories not listed fall back to the
// operational-security row, same as the Python default.
var categoryImpacts = map[incident.Category]categoryImpact{
	incident.CategoryGuestAccess:      {baseFinancial: 5000, guestSatisfaction: 0.6, operational: 0.4, reputation: 0.5, compliance: 0.3},
	incident.CategoryPaymentFraud:     {baseFinancial: 15000, guestSatisfaction: 0.8, operational: 0.6, reputation: 0.7, compliance: 0.5},
	incident.CategoryPIIBreach:        {baseFinancial: 50000, guestSatisfaction: 0.9, operational: 0.7, reputation: 0.9, compliance: 0.95},
	incident.CategoryCyberSecurity:    {baseFinancial: 75000, guestSatisfaction: 0.7, operational: 0.9, reputation: 0.8, compliance: 0.6},
	incident.CategoryPhysicalSecurity: {baseFinancial: 20000, guestSatisfaction: 0.7, operational: 0.5, reputation: 0.6, compliance: 0.4},
	incident.CategoryOpsSecurity:      {baseFinancial: 3000, guestSatisfaction: 0.2, operational: 0.5, reputation: 0.3, compliance: 0.3},
	incident.CategoryVendorAccess:     {baseFinancial: 8000, guestSatisfaction: 0.3, operational: 0.4, reputation: 0.3, compliance: 0.4},
	incident.CategoryCompliance:       {baseFinancial: 10000, guestSatisfaction: 0.3, operational: 0.3, reputation: 0.5, compliance: 0.8},
}

// severityMultipliers mirrors _get_severity_multiplier.
var severityMultipliers = map[incident.Priority]float64{
	incident.PriorityInformational: 0.2,
	incident.PriorityLow:           0.5,
	incident.PriorityMedium:        1.0,
	incident.PriorityHigh:          2.0,
	incident.PriorityCritical:      3.5,
}

// categoryUrgency mirrors _calculate_urgency_factor's category_urgency
// table.
var categoryUrgency = map[incident.Category]float64{
	incident.CategoryCyberSecurity:    2.0,
	incident.CategoryPaymentFraud:     1.8,
	incident.CategoryPIIBreach:        1.5,
	incident.CategoryPhysicalSecurity: 1.4,
	incident.CategoryGuestAccess:      1.3,
	incident.CategoryOpsSecurity:      1.0,
	incident.CategoryVendorAccess:     1.0,
	incident.CategoryCompliance:       1.0,
}

// BusinessImpactCalculator computes a BusinessImpact for an incident.
type BusinessImpactCalculator struct{}

// NewBusinessImpactCalculator builds a BusinessImpactCalculator.
func NewBusinessImpactCalculator() *BusinessImpactCalculator {
	return &BusinessImpactCalculator{}
}

// Calculate scores business impact from the incident's category,
// priority, and scope. now is passed explicitly (rather than read from
// the clock) so the night-hours urgency bump is deterministic in tests.
func (c *BusinessImpactCalculator) Calculate(meta incident.Metadata, category incident.Category, priority incident.Priority, now time.Time) BusinessImpact {
	base, ok := categoryImpacts[category]
	if !ok {
		base = categoryImpacts[incident.CategoryOpsSecurity]
	}

	severityMult, ok := severityMultipliers[priority]
	if !ok {
		severityMult = 1.0
	}
	scopeMult := scopeMultiplier(meta)
	urgency := urgencyFactor(category, now)

	return BusinessImpact{
		FinancialImpact:         base.baseFinancial * severityMult * scopeMult,
		GuestSatisfactionImpact: base.guestSatisfaction * severityMult,
		OperationalImpact:       base.operational * severityMult,
		ReputationImpact:        base.reputation * severityMult,
		ComplianceImpact:        base.compliance * severityMult,
		UrgencyFactor:           urgency,
	}
}

// scopeMultiplier mirrors _calculate_scope_multiplier, capped at 5x.
func scopeMultiplier(meta incident.Metadata) float64 {
	multiplier := 1.0

	switch {
	case meta.GuestCount > 100:
		multiplier *= 3.0
	case meta.GuestCount > 10:
		multiplier *= 2.0
	case meta.GuestCount > 1:
		multiplier *= 1.5
	}

	if meta.SystemCount > 0 {
		multiplier *= 1.0 + float64(meta.SystemCount)*0.2
	}

	if multiplier > 5.0 {
		return 5.0
	}
	return multiplier
}

// urgencyFactor mirrors _calculate_urgency_factor, including the
// night-hours (22:00-06:59 UTC) 1.2x bump.
func urgencyFactor(category incident.Category, now time.Time) float64 {
	base, ok := categoryUrgency[category]
	if !ok {
		base = 1.0
	}

	hour := now.UTC().Hour()
	if hour >= 22 || hour <= 6 {
		base *= 1.2
	}
	return base
}
