package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools"
)

func TestSafetyGuardrails_DetectsCreditCardAndMasksIt(t *testing.T) {
	g := tools.NewSafetyGuardrails(nil, 0, nil)

	out, err := g.Check(context.Background(), "Guest card 4111111111111111 was charged twice", incident.CategoryPaymentFraud, 5.0)
	require.NoError(t, err)
	require.NotEmpty(t, out.Violations)

	found := false
	for _, v := range out.Violations {
		if v.ViolationType == "pii_exposure_credit_card" {
			found = true
			require.Equal(t, "high", v.Severity)
		}
	}
	require.True(t, found)
	require.Contains(t, out.SanitizedContent, "4111")
	require.NotContains(t, out.SanitizedContent, "4111111111111111")
}

func TestSafetyGuardrails_ViolenceIndicatorsAreCritical(t *testing.T) {
	g := tools.NewSafetyGuardrails(nil, 0, nil)

	out, err := g.Check(context.Background(), "Guest reported an assault and physical threat with a weapon near the lobby", incident.CategoryPhysicalSecurity, 5.0)
	require.NoError(t, err)
	require.Equal(t, "critical", out.OverallRiskLevel)
	require.False(t, out.Passed)
	require.True(t, out.RequiresHumanReview)
}

func TestSafetyGuardrails_PIIBreachAlwaysRequiresHumanReview(t *testing.T) {
	g := tools.NewSafetyGuardrails(nil, 0, nil)

	out, err := g.Check(context.Background(), "Routine system maintenance completed successfully", incident.CategoryPIIBreach, 2.0)
	require.NoError(t, err)
	require.True(t, out.RequiresHumanReview)
	require.Equal(t, "PII breach incidents require mandatory human review", out.ReviewReason)
}

func TestSanitizeText_EmailKeepsFirstCharAndDomain(t *testing.T) {
	sanitized := tools.SanitizeText("Contact guest at jdoe@example.com for follow-up")
	require.Contains(t, sanitized, "j***@example.com")
}
