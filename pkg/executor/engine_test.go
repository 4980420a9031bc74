package executor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/executor"
	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/incident"
)

func TestEngine_DependentActionWaitsForParent(t *testing.T) {
	var mu sync.Mutex
	var order []string
	sys := newFakeSystem("pms", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		mu.Lock()
		order = append(order, action.ID)
		mu.Unlock()
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	eng := executor.New(reg, executor.DefaultConfig())

	plan := incident.DecisionPlan{
		ID: "plan-dependency",
		Actions: []incident.Action{
			{ID: "a", Type: incident.ActionTypeAccessRevoke, System: "pms", Timeout: time.Second},
			{ID: "b", Type: incident.ActionTypeAccessGrant, System: "pms", Timeout: time.Second, DependsOn: []string{"a"}},
		},
	}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 1.0, result.SuccessRate)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, executor.OutcomeComplete, result.Outcome)
}

func TestEngine_PerSystemConcurrencyCapsParallelism(t *testing.T) {
	var mu sync.Mutex
	current, max := 0, 0
	sys := newFakeSystem("notifications", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		mu.Lock()
		current++
		if current > max {
			max = current
		}
		mu.Unlock()
		time.Sleep(15 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	cfg := executor.DefaultConfig()
	cfg.PerSystemConcurrency = map[string]int{"notifications": 2}
	eng := executor.New(reg, cfg)

	actions := make([]incident.Action, 0, 6)
	for i := 0; i < 6; i++ {
		actions = append(actions, incident.Action{
			ID: fmt.Sprintf("n%d", i), Type: incident.ActionTypeNotification, System: "notifications", Timeout: time.Second,
		})
	}
	plan := incident.DecisionPlan{ID: "plan-concurrency", Actions: actions}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 1.0, result.SuccessRate)
	require.LessOrEqual(t, max, 2)
}

func TestEngine_RetriesTransientErrorThenSucceeds(t *testing.T) {
	sys := newFakeSystem("pms", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		if call < 3 {
			return external.Response{}, incident.Wrap(incident.KindExternalCall, errors.New("temporary"), true)
		}
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	cfg := executor.DefaultConfig()
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	eng := executor.New(reg, cfg)

	plan := incident.DecisionPlan{ID: "plan-retry", Actions: []incident.Action{
		{ID: "a", Type: incident.ActionTypeAccessRevoke, System: "pms", Timeout: time.Second},
	}}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.True(t, result.Results["a"].Succeeded)
	require.Equal(t, 3, sys.callCount("a"))
}

func TestEngine_NonRetryableErrorStopsImmediately(t *testing.T) {
	sys := newFakeSystem("pms", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		return external.Response{}, incident.Wrap(incident.KindValidation, errors.New("bad request"), false)
	})
	reg := external.NewRegistry(sys)
	eng := executor.New(reg, executor.DefaultConfig())

	plan := incident.DecisionPlan{ID: "plan-permanent", Actions: []incident.Action{
		{ID: "a", Type: incident.ActionTypeAccessRevoke, System: "pms", Timeout: time.Second},
	}}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.False(t, result.Results["a"].Succeeded)
	require.Equal(t, 1, sys.callCount("a"))
}

func TestEngine_BlockFailurePolicySkipsDependents(t *testing.T) {
	sys := newFakeSystem("access_control", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		if action.ID == "a" {
			return external.Response{}, incident.Wrap(incident.KindValidation, errors.New("denied"), false)
		}
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	eng := executor.New(reg, executor.DefaultConfig())

	plan := incident.DecisionPlan{ID: "plan-block", Actions: []incident.Action{
		{ID: "a", Type: incident.ActionTypeAccessRevoke, System: "access_control", Timeout: time.Second, FailurePolicy: incident.FailurePolicyBlock},
		{ID: "b", Type: incident.ActionTypeAccessGrant, System: "access_control", Timeout: time.Second, DependsOn: []string{"a"}},
	}}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.False(t, result.Results["a"].Succeeded)
	require.False(t, result.Results["b"].Succeeded)
	require.Equal(t, 0, sys.callCount("b"))
	require.Equal(t, executor.OutcomeEscalate, result.Outcome)
}

func TestEngine_ProceedFailurePolicyRunsDependents(t *testing.T) {
	sys := newFakeSystem("notifications", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		if action.ID == "notify-fail" {
			return external.Response{}, incident.Wrap(incident.KindExternalCall, errors.New("smtp down"), false)
		}
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	eng := executor.New(reg, executor.DefaultConfig())

	plan := incident.DecisionPlan{ID: "plan-proceed", Actions: []incident.Action{
		{ID: "notify-fail", Type: incident.ActionTypeNotification, System: "notifications", Timeout: time.Second, FailurePolicy: incident.FailurePolicyProceed},
		{ID: "notify-next", Type: incident.ActionTypeNotification, System: "notifications", Timeout: time.Second, DependsOn: []string{"notify-fail"}},
	}}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.False(t, result.Results["notify-fail"].Succeeded)
	require.True(t, result.Results["notify-next"].Succeeded)
	require.Equal(t, 1, sys.callCount("notify-next"))
}

func TestEngine_EscalatePolicyForcesEscalateOutcomeEvenWithHighSuccessRate(t *testing.T) {
	sys := newFakeSystem("pms", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		if action.ID == "escalate-me" {
			return external.Response{}, incident.Wrap(incident.KindValidation, errors.New("needs human review"), false)
		}
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	eng := executor.New(reg, executor.DefaultConfig())

	actions := []incident.Action{
		{ID: "escalate-me", Type: incident.ActionTypeComplianceFile, System: "pms", Timeout: time.Second, FailurePolicy: incident.FailurePolicyEscalate},
	}
	for i := 0; i < 4; i++ {
		actions = append(actions, incident.Action{
			ID: fmt.Sprintf("ok%d", i), Type: incident.ActionTypeAccessGrant, System: "pms", Timeout: time.Second,
		})
	}
	plan := incident.DecisionPlan{ID: "plan-escalate", Actions: actions}

	result, err := eng.Run(context.Background(), plan)
	require.NoError(t, err)
	require.InDelta(t, 0.8, result.SuccessRate, 0.001)
	require.Equal(t, executor.OutcomeEscalate, result.Outcome)
}

func TestEngine_AbortRollsBackCompletedActions(t *testing.T) {
	bStarted := make(chan struct{})
	sys := newFakeSystem("access_control", func(ctx context.Context, action incident.Action, call int) (external.Response, error) {
		switch action.ID {
		case "a":
			return external.Response{Succeeded: true, RollbackToken: "tok-a"}, nil
		case "b":
			close(bStarted)
			<-ctx.Done()
			return external.Response{}, ctx.Err()
		}
		return external.Response{Succeeded: true}, nil
	})
	reg := external.NewRegistry(sys)
	eng := executor.New(reg, executor.DefaultConfig())

	plan := incident.DecisionPlan{ID: "plan-abort", Actions: []incident.Action{
		{ID: "a", Type: incident.ActionTypeAccessRevoke, System: "access_control", Timeout: time.Second, RollbackPossible: true},
		{ID: "b", Type: incident.ActionTypeAccessGrant, System: "access_control", Timeout: time.Second, DependsOn: []string{"a"}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-bStarted
		cancel()
	}()

	result, err := eng.Run(ctx, plan)
	require.NoError(t, err)
	require.True(t, result.Aborted)
	require.Contains(t, result.RolledBack, "a")
	require.Contains(t, sys.rollbacks, "a:tok-a")
	require.True(t, result.Results["a"].RolledBack)
}

func TestEngine_EmptyPlanSucceedsTrivially(t *testing.T) {
	reg := external.NewRegistry()
	eng := executor.New(reg, executor.DefaultConfig())

	result, err := eng.Run(context.Background(), incident.DecisionPlan{ID: "plan-empty"})
	require.NoError(t, err)
	require.Equal(t, 1.0, result.SuccessRate)
	require.Equal(t, executor.OutcomeComplete, result.Outcome)
}

func TestEngine_UnknownDependencyIsRejected(t *testing.T) {
	reg := external.NewRegistry()
	eng := executor.New(reg, executor.DefaultConfig())

	plan := incident.DecisionPlan{ID: "plan-bad", Actions: []incident.Action{
		{ID: "a", System: "pms", DependsOn: []string{"missing"}},
	}}
	_, err := eng.Run(context.Background(), plan)
	require.Error(t, err)
	kind, ok := incident.KindOf(err)
	require.True(t, ok)
	require.Equal(t, incident.KindValidation, kind)
}
