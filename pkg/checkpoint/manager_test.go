package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/checkpoint"
	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/session"
)

func TestManager_SaveAndLatest(t *testing.T) {
	store := session.NewMemoryStore(session.Config{RingSize: 5})
	mgr := checkpoint.NewManager(store, nil)
	ctx := context.Background()

	inc := incident.New("inc-1", incident.Metadata{Title: "suspicious card swipe"})
	inc.UpdateStep("classify")
	require.NoError(t, mgr.Save(ctx, inc, "classify", 1))

	inc.UpdateStep("prioritize")
	require.NoError(t, mgr.Save(ctx, inc, "prioritize", 2))

	latest, err := mgr.Latest(ctx, "inc-1")
	require.NoError(t, err)
	require.Equal(t, "prioritize", latest.Step)
	require.Equal(t, 2, latest.Sequence)
	require.Contains(t, latest.State.CompletedSteps(), "classify")
}

func TestManager_History(t *testing.T) {
	store := session.NewMemoryStore(session.Config{RingSize: 5})
	mgr := checkpoint.NewManager(store, nil)
	ctx := context.Background()

	inc := incident.New("inc-2", incident.Metadata{Title: "pii leak"})
	require.NoError(t, mgr.Save(ctx, inc, "classify", 1))
	require.NoError(t, mgr.Save(ctx, inc, "prioritize", 2))

	history, err := mgr.History(ctx, "inc-2")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "classify", history[0].Step)
}

func TestManager_Clear(t *testing.T) {
	store := session.NewMemoryStore(session.Config{RingSize: 5})
	mgr := checkpoint.NewManager(store, nil)
	ctx := context.Background()

	inc := incident.New("inc-3", incident.Metadata{Title: "vendor badge misuse"})
	require.NoError(t, mgr.Save(ctx, inc, "classify", 1))
	require.NoError(t, mgr.Clear(ctx, "inc-3"))

	_, err := mgr.Latest(ctx, "inc-3")
	require.Error(t, err)
}
