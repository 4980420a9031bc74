package workflow_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/checkpoint"
	"github.com/sentinelstay/triage/pkg/decision"
	"github.com/sentinelstay/triage/pkg/executor"
	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/session"
	"github.com/sentinelstay/triage/pkg/tools"
	"github.com/sentinelstay/triage/pkg/workflow"
)

// scriptedLLM answers every tool adapter's CompleteJSON call with a
// canned, deterministic response keyed off the adapter's system
// prompt, so a full engine run never depends on a real model.
type scriptedLLM struct {
	category    string
	legalReview bool
}

func (s scriptedLLM) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "classifying hospitality security incidents"):
		return fmt.Sprintf(`{"category":%q,"confidence":0.9,"reasoning":"scripted","alternative_categories":[],"severity_indicators":[]}`, s.category), nil
	case strings.Contains(systemPrompt, "compliance officer"):
		return fmt.Sprintf(`{"violations":[],"recommendations":[],"requires_legal_review":%t,"requires_regulatory_notification":false}`, s.legalReview), nil
	case strings.Contains(systemPrompt, "risk analyst"):
		return `{"risk_score":4.5,"risk_factors":["scripted"],"potential_impact":"moderate","likelihood_score":0.4,"confidence_score":0.85}`, nil
	case strings.Contains(systemPrompt, "triage lead"):
		return `{"priority":"high","reasoning":"scripted priority","recommended_sla":"1 hour"}`, nil
	case strings.Contains(systemPrompt, "safety analyst"):
		return `{"violations":[]}`, nil
	case strings.Contains(systemPrompt, "one or two sentences"):
		return `{"reasoning":"scripted playbook fit"}`, nil
	case strings.Contains(systemPrompt, "incident response coordinator"):
		return `{"immediate_actions":["secure_area"],"investigation_steps":["review_logs"],"containment_measures":["revoke_access"],"notification_requirements":["front_office"],"documentation_requirements":["incident_report"],"follow_up_actions":["audit_review"]}`, nil
	}
	return "", fmt.Errorf("scriptedLLM: unscripted prompt: %s", systemPrompt)
}

// fakeSystem is a no-op external.System: every action succeeds and
// carries a rollback token, except notifications, which never do.
type fakeSystem struct{ name string }

func (f fakeSystem) Name() string { return f.name }

func (f fakeSystem) Execute(ctx context.Context, action incident.Action) (external.Response, error) {
	if f.name == "notifications" {
		return external.Response{Succeeded: true}, nil
	}
	return external.Response{Succeeded: true, RollbackToken: action.ID + "-token"}, nil
}

func (f fakeSystem) Rollback(ctx context.Context, action incident.Action, token string) error {
	return nil
}

func newTestDeps(llmClient scriptedLLM) *workflow.Deps {
	registry := external.NewRegistry(
		fakeSystem{name: "access_control"},
		fakeSystem{name: "pms"},
		fakeSystem{name: "notifications"},
	)
	return &workflow.Deps{
		Classifier:        tools.NewClassifier(llmClient, time.Second, nil),
		SafetyGuardrails:  tools.NewSafetyGuardrails(llmClient, time.Second, nil),
		ComplianceChecker: tools.NewComplianceChecker(llmClient, time.Second, nil),
		Prioritizer:       tools.NewPrioritizer(llmClient, time.Second, nil),
		PlaybookSelector:  tools.NewPlaybookSelector(llmClient, time.Second, nil),
		ResponseGenerator: tools.NewResponseGenerator(llmClient, time.Second, nil),
		RiskAssessor:      decision.NewRiskAssessor(),
		ImpactCalculator:  decision.NewBusinessImpactCalculator(),
		AutonomyAssessor:  decision.NewAutonomyAssessor(),
		PlanOptimizer:     decision.NewPlanOptimizer(),
		Executor:          executor.New(registry, executor.DefaultConfig()),
		Notifier:          fakeSystem{name: "notifications"},
		Checkpoints:       checkpoint.NewManager(session.NewMemoryStore(session.Config{}), nil),
	}
}

func newTestIncident(title, description string) *incident.Incident {
	return incident.New(workflow.NewIncidentID(), incident.Metadata{
		Title:       title,
		Description: description,
		OccurredAt:  time.Now(),
	})
}

func awaitTerminal(t *testing.T, engine *workflow.Engine, handle *workflow.RunHandle, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := handle.Await(ctx); err != nil {
		// Still pending - likely suspended for human approval, which is
		// not itself a test failure; callers check Status directly.
		st, statusErr := engine.Status(handle.IncidentID)
		require.NoError(t, statusErr)
		if st.Status() != incident.StatusAwaitingApproval {
			t.Fatalf("run %s did not reach a terminal or suspended state: %v", handle.IncidentID, err)
		}
	}
}

func TestEngine_ValidationFailureRoutesToHandleError(t *testing.T) {
	engine := workflow.New(workflow.NewGraph(), &workflow.Deps{}, workflow.Config{}, nil)
	defer engine.Stop()

	st := incident.New(workflow.NewIncidentID(), incident.Metadata{})
	handle, err := engine.Submit(st)
	require.NoError(t, err)

	awaitTerminal(t, engine, handle, 2*time.Second)

	require.Equal(t, incident.StatusFailed, st.Status())
	require.Contains(t, st.FailedSteps(), "validate-input")
	for _, c := range st.CompletedSteps() {
		require.NotEqual(t, "validate-input", c)
	}
}

func TestEngine_AutonomousOrApprovedRunReachesTerminalState(t *testing.T) {
	deps := newTestDeps(scriptedLLM{category: "guest_access", legalReview: false})
	engine := workflow.New(workflow.NewGraph(), deps, workflow.Config{}, nil)
	defer engine.Stop()

	st := newTestIncident("Guest key card anomaly", "A guest reports a keycard no longer opens their assigned room")
	handle, err := engine.Submit(st)
	require.NoError(t, err)

	awaitTerminal(t, engine, handle, 5*time.Second)

	if st.Status() == incident.StatusAwaitingApproval {
		pending := st.PendingInterventions()
		require.NotEmpty(t, pending)
		require.NoError(t, engine.Resolve(context.Background(), st.ID(), pending[0].ID, true, "test-operator", "approved for test"))
		require.Eventually(t, func() bool {
			return st.Status() == incident.StatusResolved || st.Status() == incident.StatusFailed
		}, 5*time.Second, 10*time.Millisecond)
	}

	require.Contains(t, []incident.Status{incident.StatusResolved, incident.StatusFailed}, st.Status())

	completed := make(map[string]bool)
	for _, c := range st.CompletedSteps() {
		completed[c] = true
	}
	for _, f := range st.FailedSteps() {
		require.False(t, completed[f], "step %q recorded as both completed and failed", f)
	}
}

func TestEngine_MandatoryLegalReviewSuspendsThenResolves(t *testing.T) {
	deps := newTestDeps(scriptedLLM{category: "pii_breach", legalReview: true})
	engine := workflow.New(workflow.NewGraph(), deps, workflow.Config{}, nil)
	defer engine.Stop()

	st := newTestIncident("Guest data exposure", "A housekeeping report exposed several guests' personal information")
	handle, err := engine.Submit(st)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Await(ctx)

	require.Equal(t, incident.StatusAwaitingApproval, st.Status())
	pending := st.PendingInterventions()
	require.NotEmpty(t, pending)

	require.NoError(t, engine.Resolve(context.Background(), st.ID(), pending[0].ID, false, "legal-team", "rejected in test"))
	require.Eventually(t, func() bool {
		return st.Status() == incident.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	require.Empty(t, st.PendingInterventions())
}

func TestEngine_SubmitReturnsErrQueueFullWhenBufferSaturated(t *testing.T) {
	blocker := &blockingLLM{started: make(chan struct{}), proceed: make(chan struct{})}
	deps := newTestDeps(scriptedLLM{category: "guest_access"})
	deps.Classifier = tools.NewClassifier(blocker, time.Minute, nil)

	engine := workflow.New(workflow.NewGraph(), deps, workflow.Config{WorkerCount: 1, QueueDepth: 1}, nil)
	defer func() {
		close(blocker.proceed)
		engine.Stop()
	}()

	first := newTestIncident("Guest key card anomaly", "A guest reports a lost access card")
	_, err := engine.Submit(first)
	require.NoError(t, err)

	select {
	case <-blocker.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started processing the first incident")
	}

	second := newTestIncident("Second incident", "fills the bounded queue")
	_, err = engine.Submit(second)
	require.NoError(t, err)

	third := newTestIncident("Third incident", "should be rejected")
	_, err = engine.Submit(third)
	require.ErrorIs(t, err, workflow.ErrQueueFull)
}

// blockingLLM blocks its first CompleteJSON call until proceed is
// closed, signalling started first so a test can synchronize on the
// worker having claimed the incident.
type blockingLLM struct {
	started chan struct{}
	proceed chan struct{}
	once    sync.Once
}

func (b *blockingLLM) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.proceed:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return `{"category":"guest_access","confidence":0.8,"reasoning":"unblocked","alternative_categories":[],"severity_indicators":[]}`, nil
}
