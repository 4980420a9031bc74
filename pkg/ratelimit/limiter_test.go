package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/ratelimit"
)

func TestLimiter_AllowsWithinBurst(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{
		Enabled: true,
		Rules:   []ratelimit.Rule{{System: "pms", Limit: 60, Window: time.Minute, Burst: 3}},
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "pms")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "pms")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestLimiter_UnknownSystemAlwaysAllowed(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{Enabled: true})
	res, err := l.Allow(context.Background(), "unregistered")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestLimiter_DisabledAlwaysAllowed(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{Enabled: false, Rules: []ratelimit.Rule{{System: "pms", Limit: 1, Window: time.Minute, Burst: 1}}})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "pms")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
}
