package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools"
)

func TestPrioritizer_FallbackBandsByCategoryRiskScore(t *testing.T) {
	p := tools.NewPrioritizer(nil, 0, nil)

	out, err := p.Prioritize(context.Background(), incident.CategoryPIIBreach, incident.Metadata{Location: "Mumbai"})
	require.NoError(t, err)
	require.Equal(t, incident.PriorityHigh, out.Priority)
	require.Equal(t, "1 hour", out.RecommendedSLA)
	require.True(t, out.ImmediateActionsRequired)
	require.Contains(t, out.StakeholdersToNotify, "privacy_officer")
	require.Contains(t, out.StakeholdersToNotify, "legal_team")
}

func TestPrioritizer_StakeholdersDeduplicatedAndOrdered(t *testing.T) {
	p := tools.NewPrioritizer(nil, 0, nil)

	out, err := p.Prioritize(context.Background(), incident.CategoryPaymentFraud, incident.Metadata{})
	require.NoError(t, err)
	require.Equal(t, "security_team", out.StakeholdersToNotify[0])

	seen := map[string]int{}
	for _, s := range out.StakeholdersToNotify {
		seen[s]++
	}
	for name, count := range seen {
		require.Equal(t, 1, count, "stakeholder %s listed more than once", name)
	}
}

func TestPrioritizer_LowRiskCategoryGetsLowerSLA(t *testing.T) {
	p := tools.NewPrioritizer(nil, 0, nil)

	out, err := p.Prioritize(context.Background(), incident.CategoryOpsSecurity, incident.Metadata{})
	require.NoError(t, err)
	require.Equal(t, incident.PriorityLow, out.Priority)
	require.Equal(t, "24 hours", out.RecommendedSLA)
	require.False(t, out.ImmediateActionsRequired)
}
