package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndGetIncident(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inc := incident.New("inc-1", incident.Metadata{
		Title:       "Cloned key card used at side entrance",
		Description: "Guest reported a duplicate key card in use.",
		Source:      "pms",
		OccurredAt:  time.Now(),
		Location:    "west_tower",
	})
	inc.SetClassification(incident.CategoryGuestAccess, 0.91)
	inc.SetPriority(incident.PriorityHigh, 7.5)
	inc.UpdateStep("classify")
	inc.UpdateStep("prioritize")

	require.NoError(t, s.SaveIncident(ctx, inc))

	row, err := s.GetIncident(ctx, "inc-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "inc-1", row.IncidentID)
	require.Equal(t, string(incident.CategoryGuestAccess), row.Category)
	require.Equal(t, string(incident.PriorityHigh), row.Priority)
	require.Equal(t, 1, row.WorkflowStepsCompleted)
}

func TestStore_GetIncidentMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	row, err := s.GetIncident(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestStore_SearchIncidentsFiltersByCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := incident.New("inc-a", incident.Metadata{Title: "a", Description: "a", OccurredAt: time.Now()})
	a.SetClassification(incident.CategoryPaymentFraud, 0.8)
	require.NoError(t, s.SaveIncident(ctx, a))

	b := incident.New("inc-b", incident.Metadata{Title: "b", Description: "b", OccurredAt: time.Now()})
	b.SetClassification(incident.CategoryGuestAccess, 0.8)
	require.NoError(t, s.SaveIncident(ctx, b))

	rows, err := s.SearchIncidents(ctx, store.SearchFilter{Category: string(incident.CategoryPaymentFraud)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "inc-a", rows[0].IncidentID)
}

func TestStore_ListOpenIncidentIDsExcludesResolved(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	open := incident.New("inc-open", incident.Metadata{Title: "t", Description: "d", OccurredAt: time.Now()})
	require.NoError(t, s.SaveIncident(ctx, open))

	resolved := incident.New("inc-resolved", incident.Metadata{Title: "t", Description: "d", OccurredAt: time.Now()})
	resolved.SetStatus(incident.StatusResolved)
	require.NoError(t, s.SaveIncident(ctx, resolved))

	ids, err := s.ListOpenIncidentIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"inc-open"}, ids)
}

func TestStore_HistorySequenceIncrements(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inc := incident.New("inc-hist", incident.Metadata{Title: "t", Description: "d", OccurredAt: time.Now()})
	require.NoError(t, s.SaveIncident(ctx, inc))
	require.NoError(t, s.RecordHistory(ctx, incident.HistoryRecord{IncidentID: "inc-hist", Kind: "note", Detail: "manual note"}))

	history, err := s.GetHistory(ctx, "inc-hist")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 0, history[0].Sequence)
	require.Equal(t, 1, history[1].Sequence)
}

func TestStore_RecordComplianceEventAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RecordComplianceEvent(ctx, store.ComplianceEvent{
		IncidentID:       "inc-1",
		Framework:        string(incident.FrameworkDPDP),
		EventType:        "notification_filed",
		Timestamp:        time.Now(),
		Data:             map[string]any{"deadline_hours": 72},
		ComplianceStatus: "on_time",
	})
	require.NoError(t, err)

	events, err := s.ComplianceEventsForIncident(ctx, "inc-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "on_time", events[0].ComplianceStatus)
}

func TestStore_RecordPerformanceMetricAndAverage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, v := range []float64{10, 20, 30} {
		err := s.RecordPerformanceMetric(ctx, store.PerformanceMetric{
			IncidentID: "inc-1",
			Name:       "processing_time_seconds",
			Value:      v,
			Timestamp:  time.Now(),
		})
		require.NoError(t, err)
	}

	avg, err := s.AverageMetric(ctx, "processing_time_seconds", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 20.0, avg)
}
