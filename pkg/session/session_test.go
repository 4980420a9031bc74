package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/session"
)

func checkpoint(id string, seq int) *incident.Checkpoint {
	return &incident.Checkpoint{IncidentID: id, Sequence: seq, Step: "classify", TakenAt: time.Now()}
}

func testStores(t *testing.T) map[string]session.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]session.Store{
		"memory": session.NewMemoryStore(session.Config{RingSize: 3}),
		"redis":  session.NewRedisStore(client, session.Config{RingSize: 3}),
	}
}

func TestStore_PutAndLatest(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "inc-1", checkpoint("inc-1", 1)))
			require.NoError(t, store.Put(ctx, "inc-1", checkpoint("inc-1", 2)))

			latest, err := store.Latest(ctx, "inc-1")
			require.NoError(t, err)
			require.Equal(t, 2, latest.Sequence)
		})
	}
}

func TestStore_RingBounded(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for seq := 1; seq <= 5; seq++ {
				require.NoError(t, store.Put(ctx, "inc-2", checkpoint("inc-2", seq)))
			}

			history, err := store.History(ctx, "inc-2")
			require.NoError(t, err)
			require.Len(t, history, 3)
			require.Equal(t, 3, history[0].Sequence)
			require.Equal(t, 5, history[2].Sequence)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Latest(context.Background(), "missing")
			require.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "inc-3", checkpoint("inc-3", 1)))
			require.NoError(t, store.Delete(ctx, "inc-3"))

			_, err := store.Latest(ctx, "inc-3")
			require.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}
