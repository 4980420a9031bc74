package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools"
)

func TestPlaybookSelector_SelectsCatalogEntryByCategory(t *testing.T) {
	s := tools.NewPlaybookSelector(nil, 0, nil)

	out, err := s.Select(context.Background(), incident.CategoryPaymentFraud, incident.PriorityMedium, tools.RiskAssessment{RiskScore: 5.0})
	require.NoError(t, err)
	require.Equal(t, "payment_fraud_response", out.Playbook.ID)
	require.Contains(t, out.Playbook.RequiredActions, incident.ActionTypeAccountLock)
}

func TestPlaybookSelector_UnknownCategoryFallsBackToOperationalSecurity(t *testing.T) {
	s := tools.NewPlaybookSelector(nil, 0, nil)

	out, err := s.Select(context.Background(), incident.CategoryVendorAccess, incident.PriorityLow, tools.RiskAssessment{RiskScore: 3.0})
	require.NoError(t, err)
	require.Equal(t, "operational_security", out.Playbook.ID)
}

func TestPlaybookSelector_CriticalPriorityHalvesTimeoutWithFloor(t *testing.T) {
	s := tools.NewPlaybookSelector(nil, 0, nil)

	out, err := s.Select(context.Background(), incident.CategoryPaymentFraud, incident.PriorityCritical, tools.RiskAssessment{RiskScore: 5.0})
	require.NoError(t, err)
	require.GreaterOrEqual(t, out.Playbook.BaseTimeout, 5*time.Minute)
	require.Less(t, out.Playbook.BaseTimeout, 15*time.Minute)
}

func TestPlaybookSelector_HighRiskAddsExecutiveNotification(t *testing.T) {
	s := tools.NewPlaybookSelector(nil, 0, nil)

	out, err := s.Select(context.Background(), incident.CategoryOpsSecurity, incident.PriorityMedium, tools.RiskAssessment{RiskScore: 9.0})
	require.NoError(t, err)
	require.Contains(t, out.CustomizationNotes, "executive_notification_added")
}
