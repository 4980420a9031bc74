package decision_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/decision"
	"github.com/sentinelstay/triage/pkg/incident"
)

func TestAutonomyAssessor_LowImpactLowRiskProceedsAutonomously(t *testing.T) {
	a := decision.NewAutonomyAssessor()
	impact := decision.BusinessImpact{FinancialImpact: 1000, OperationalImpact: 0.1}
	risk := decision.RiskVectors{GuestSafetyRisk: 0.1, RequiresLegalReview: false, RequiresManagementApproval: false}

	out := a.Assess(incident.Metadata{}, incident.CategoryOpsSecurity, 0.95, impact, risk)

	require.True(t, out.CanProceedAutonomously)
	require.False(t, out.OverrideConditionsMet)
}

func TestAutonomyAssessor_HighFinancialImpactForcesOverride(t *testing.T) {
	a := decision.NewAutonomyAssessor()
	impact := decision.BusinessImpact{FinancialImpact: 150000}
	risk := decision.RiskVectors{GuestSafetyRisk: 0.1}

	out := a.Assess(incident.Metadata{}, incident.CategoryGuestAccess, 0.9, impact, risk)

	require.False(t, out.CanProceedAutonomously)
	require.True(t, out.OverrideConditionsMet)
}

func TestAutonomyAssessor_LowClassificationConfidenceForcesOverride(t *testing.T) {
	a := decision.NewAutonomyAssessor()
	impact := decision.BusinessImpact{FinancialImpact: 1000}
	risk := decision.RiskVectors{GuestSafetyRisk: 0.1}

	out := a.Assess(incident.Metadata{}, incident.CategoryOpsSecurity, 0.4, impact, risk)

	require.False(t, out.CanProceedAutonomously)
	require.True(t, out.OverrideConditionsMet)
}

func TestAutonomyAssessor_RequiresLegalReviewForcesOverride(t *testing.T) {
	a := decision.NewAutonomyAssessor()
	impact := decision.BusinessImpact{FinancialImpact: 1000}
	risk := decision.RiskVectors{GuestSafetyRisk: 0.1, RequiresLegalReview: true}

	out := a.Assess(incident.Metadata{}, incident.CategoryPIIBreach, 0.9, impact, risk)

	require.False(t, out.CanProceedAutonomously)
	require.True(t, out.OverrideConditionsMet)
}
