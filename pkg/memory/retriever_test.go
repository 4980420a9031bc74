package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/memory"
)

func TestRetriever_SimilarFindsMatchingTitle(t *testing.T) {
	r := memory.NewRetriever(0)
	r.Index("inc-1", "guest room key card cloned at front desk", "guest_access", time.Now())
	r.Index("inc-2", "unrelated vendor invoice dispute", "vendor_access", time.Now())
	r.Refresh()

	matches := r.Similar(context.Background(), "room key card cloned front desk", 5)
	require.NotEmpty(t, matches)
	require.Equal(t, "inc-1", matches[0].IncidentID)
}

func TestRetriever_WindowExcludesOldDocuments(t *testing.T) {
	r := memory.NewRetriever(time.Hour)
	r.Index("inc-old", "payment card skimmer found at pos terminal", "payment_fraud", time.Now().Add(-48*time.Hour))
	r.Refresh()

	matches := r.Similar(context.Background(), "payment card skimmer pos terminal", 5)
	require.Empty(t, matches)
}

func TestAnalyzeEscalation_HighRate(t *testing.T) {
	incidents := make([]memory.IncidentSummary, 10)
	for i := range incidents {
		incidents[i] = memory.IncidentSummary{IncidentID: "inc", HumanInterventions: 1}
	}
	pattern := memory.AnalyzeEscalation(incidents)
	require.NotNil(t, pattern)
	require.Equal(t, "escalation", pattern.Type)
}

func TestAnalyzeEscalation_LowRateReturnsNil(t *testing.T) {
	incidents := []memory.IncidentSummary{
		{IncidentID: "a", HumanInterventions: 0},
		{IncidentID: "b", HumanInterventions: 0},
	}
	require.Nil(t, memory.AnalyzeEscalation(incidents))
}
