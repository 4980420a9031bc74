package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools"
)

// stubJSONClient always returns a fixed, valid JSON payload - used to
// exercise the success path (framework-requirements enrichment) rather
// than the conservative fallback.
type stubJSONClient struct {
	response string
}

func (s stubJSONClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.response, nil
}

func TestComplianceChecker_PIIBreachAddsGDPRForInternationalLocation(t *testing.T) {
	client := stubJSONClient{response: `{"violations":[],"recommendations":[],"requires_legal_review":false,"requires_regulatory_notification":false}`}
	c := tools.NewComplianceChecker(client, 0, nil)

	out, err := c.Check(context.Background(), incident.CategoryPIIBreach, incident.Metadata{Location: "International Terminal Hotel, EU Zone"})
	require.NoError(t, err)
	require.Contains(t, out.ApplicableFrameworks, incident.FrameworkDPDP)
	require.Contains(t, out.ApplicableFrameworks, incident.FrameworkGDPR)
	require.Equal(t, "72 hours from discovery", out.NotificationDeadlines["data_protection_board"])
	require.True(t, out.RequiresRegulatoryNotification)
}

func TestComplianceChecker_PaymentFraudRequiresPCIDSSAndLegalReview(t *testing.T) {
	client := stubJSONClient{response: `{"violations":[],"recommendations":[],"requires_legal_review":false,"requires_regulatory_notification":false}`}
	c := tools.NewComplianceChecker(client, 0, nil)

	out, err := c.Check(context.Background(), incident.CategoryPaymentFraud, incident.Metadata{})
	require.NoError(t, err)
	require.Contains(t, out.ApplicableFrameworks, incident.FrameworkPCIDSS)
	require.Contains(t, out.ApplicableFrameworks, incident.FrameworkDPDP)
	require.Equal(t, "24 hours from discovery", out.NotificationDeadlines["card_brands"])
	require.True(t, out.RequiresLegalReview)
}

func TestComplianceChecker_DPDPAlwaysPresentAsBaseline(t *testing.T) {
	c := tools.NewComplianceChecker(nil, 0, nil)

	out, err := c.Check(context.Background(), incident.CategoryGuestAccess, incident.Metadata{})
	require.NoError(t, err)
	require.Contains(t, out.ApplicableFrameworks, incident.FrameworkDPDP)
}

func TestComplianceChecker_FallbackIsConservativeWithNoModelConfigured(t *testing.T) {
	c := tools.NewComplianceChecker(nil, 0, nil)

	out, err := c.Check(context.Background(), incident.CategoryPIIBreach, incident.Metadata{})
	require.NoError(t, err)
	require.True(t, out.RequiresLegalReview)
	require.False(t, out.RequiresRegulatoryNotification)
	require.Empty(t, out.NotificationDeadlines)
}
