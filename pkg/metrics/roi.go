package metrics

import (
	"github.com/sentinelstay/triage/pkg/incident"
)

// Investment is the cost side of an incident's ROI, grounded on
// impact_tracker.py's _calculate_investment_costs breakdown
// (technology, staff_time, response, prevention), denominated in the
// same rupee units as pkg/decision's financial-impact figures.
type Investment struct {
	Technology float64
	StaffTime  float64
	Response   float64
	Prevention float64
}

func (i Investment) Total() float64 {
	return i.Technology + i.StaffTime + i.Response + i.Prevention
}

// Returns is the value side, grounded on impact_tracker.py's
// _calculate_value_returns breakdown (cost_avoidance,
// automation_benefit, reputation_protection, compliance_value,
// guest_satisfaction).
type Returns struct {
	CostAvoidance     float64
	AutomationBenefit float64
	Reputation        float64
	Compliance        float64
	GuestSatisfaction float64
}

func (r Returns) Total() float64 {
	return r.CostAvoidance + r.AutomationBenefit + r.Reputation + r.Compliance + r.GuestSatisfaction
}

// ROI is one incident's cost/benefit accounting.
type ROI struct {
	Investment Investment
	Returns    Returns
	// Percent is (returns - investment) / investment, per spec.md
	// §4.7; zero when investment is zero rather than dividing by it.
	Percent float64
}

// baseAvoidance mirrors impact_tracker.py's _calculate_cost_avoidance
// base_avoidance table - rupee-denominated losses a prompt response
// avoided, before severity and scope scaling.
var baseAvoidance = map[incident.Category]float64{
	incident.CategoryGuestAccess:      15000,
	incident.CategoryPaymentFraud:     50000,
	incident.CategoryPIIBreach:        200000,
	incident.CategoryCyberSecurity:    500000,
	incident.CategoryOpsSecurity:      5000,
	incident.CategoryPhysicalSecurity: 25000,
	incident.CategoryVendorAccess:     10000,
	incident.CategoryCompliance:       100000,
}

// avoidanceSeverityMultiplier mirrors impact_tracker.py's
// severity_multipliers table for cost avoidance, distinct from
// pkg/decision's business-impact severity multipliers.
var avoidanceSeverityMultiplier = map[incident.Priority]float64{
	incident.PriorityInformational: 0.1,
	incident.PriorityLow:           0.3,
	incident.PriorityMedium:       1.0,
	incident.PriorityHigh:          2.5,
	incident.PriorityCritical:      5.0,
}

// costAvoidance scales a category's base avoidance by severity and by
// the affected-scope multiplier, capped at 3x per
// impact_tracker.py's min(scope_multiplier, 3.0).
func costAvoidance(category incident.Category, priority incident.Priority, guests, systems int) float64 {
	base, ok := baseAvoidance[category]
	if !ok {
		base = 10000
	}
	severity, ok := avoidanceSeverityMultiplier[priority]
	if !ok {
		severity = 1.0
	}

	scope := 1.0
	if guests > 0 {
		scope *= 1 + float64(guests)*0.1
	}
	if systems > 0 {
		scope *= 1 + float64(systems)*0.2
	}
	if scope > 3.0 {
		scope = 3.0
	}

	return base * severity * scope
}

// roiInputs is the subset of an incident snapshot the ROI calculation
// needs, kept separate from workflow.IncidentSnapshot so this package
// doesn't need to know the snapshot's full shape.
type roiInputs struct {
	category            incident.Category
	priority            incident.Priority
	guestsAffected      int
	systemsAffected     int
	estimatedLossRupees float64
	humanInterventions  int
	plannedActions      int
	successfulActions   int
	requiresLegalReview bool
	complianceSatisfied bool
}

// calculateROI computes the investment/returns breakdown and overall
// percentage for one incident, per spec.md §4.7's formula.
func calculateROI(in roiInputs) ROI {
	investment := Investment{
		// Technology: per-automated-action API/compute cost.
		Technology: float64(in.plannedActions) * 40,
		// Staff time: a human review costs roughly 30 minutes at an
		// assumed blended rate of ₹1000/hour.
		StaffTime: float64(in.humanInterventions) * 500,
		// Response: cost of the automated remediation itself.
		Response: float64(in.successfulActions) * 300,
		// Prevention: fixed per-incident documentation/audit overhead.
		Prevention: 150,
	}
	if in.requiresLegalReview {
		investment.StaffTime += 2000
	}

	avoidance := costAvoidance(in.category, in.priority, in.guestsAffected, in.systemsAffected)
	if in.estimatedLossRupees > avoidance {
		avoidance = in.estimatedLossRupees
	}

	automationBenefit := 0.0
	if in.plannedActions > 0 {
		automationBenefit = float64(in.successfulActions) / float64(in.plannedActions) * 2000
	}

	reputation := avoidance * 0.05
	compliance := 0.0
	if in.complianceSatisfied {
		compliance = avoidance * 0.03
	}
	satisfaction := 0.0
	if in.plannedActions > 0 && in.successfulActions == in.plannedActions {
		satisfaction = 1000
	}

	returns := Returns{
		CostAvoidance:     avoidance,
		AutomationBenefit: automationBenefit,
		Reputation:        reputation,
		Compliance:        compliance,
		GuestSatisfaction: satisfaction,
	}

	total := investment.Total()
	percent := 0.0
	if total > 0 {
		percent = (returns.Total() - total) / total
	}

	return ROI{Investment: investment, Returns: returns, Percent: percent}
}
