package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"

	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/incident"
)

// Engine runs a DecisionPlan's actions against a Registry of external
// systems, enforcing per-system and global concurrency, per-action
// deadlines, retries, failure policies, and rollback-on-abort.
type Engine struct {
	cfg       Config
	registry  *external.Registry
	globalSem *semaphore.Weighted
	systemSem map[string]*semaphore.Weighted
}

// New builds an Engine. Zero-valued Config fields fall back to
// DefaultConfig.
func New(registry *external.Registry, cfg Config) *Engine {
	cfg = cfg.withDefaults()

	systemSem := make(map[string]*semaphore.Weighted, len(cfg.PerSystemConcurrency))
	for system, n := range cfg.PerSystemConcurrency {
		if n <= 0 {
			n = 1
		}
		systemSem[system] = semaphore.NewWeighted(int64(n))
	}

	return &Engine{
		cfg:       cfg,
		registry:  registry,
		globalSem: semaphore.NewWeighted(int64(cfg.GlobalConcurrency)),
		systemSem: systemSem,
	}
}

type completion struct {
	id     string
	result incident.ActionResult
	token  string
}

// Run executes plan to completion or until ctx is cancelled. On
// cancellation it stops dispatching new actions, waits for in-flight
// ones to unwind, and rolls back whatever already succeeded in reverse
// completion order.
func (e *Engine) Run(ctx context.Context, plan incident.DecisionPlan) (PlanResult, error) {
	nodes, err := buildGraph(plan.Actions)
	if err != nil {
		return PlanResult{PlanID: plan.ID}, incident.Wrap(incident.KindValidation, err, false)
	}
	if len(nodes) == 0 {
		return PlanResult{
			PlanID:      plan.ID,
			Results:     map[string]incident.ActionResult{},
			Order:       []string{},
			SuccessRate: 1.0,
			Outcome:     OutcomeComplete,
		}, nil
	}

	// Everything below this point runs single-threaded on this
	// goroutine except the runOne calls dispatched into their own
	// goroutines, which only ever communicate back via completions -
	// so results/order/remaining/launched/skipped need no locking.
	completions := make(chan completion, len(nodes))
	var wg sync.WaitGroup

	results := make(map[string]incident.ActionResult, len(nodes))
	order := make([]string, 0, len(nodes))
	var entries []rollbackEntry
	remaining := make(map[string]int, len(nodes))
	skipped := make(map[string]bool, len(nodes))
	launched := make(map[string]bool, len(nodes))
	escalated := false

	for id, n := range nodes {
		remaining[id] = n.remaining
	}

	dispatch := func(id string) {
		if launched[id] || skipped[id] {
			return
		}
		launched[id] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			action := nodes[id].action
			result, token := e.runOne(ctx, action)
			completions <- completion{id: id, result: result, token: token}
		}()
	}

	var recordSkip func(id string)
	recordSkip = func(id string) {
		if skipped[id] || launched[id] {
			return
		}
		skipped[id] = true
		now := time.Now()
		results[id] = incident.ActionResult{
			ActionID:   id,
			Succeeded:  false,
			Err:        "blocked: an upstream dependency failed",
			StartedAt:  now,
			FinishedAt: now,
		}
		order = append(order, id)
		for _, dep := range nodes[id].dependents {
			recordSkip(dep)
		}
	}

	for id, n := range nodes {
		if n.remaining == 0 {
			dispatch(id)
		}
	}

runLoop:
	for len(order) < len(nodes) {
		select {
		case c := <-completions:
			results[c.id] = c.result
			order = append(order, c.id)
			if c.result.Succeeded && c.token != "" && nodes[c.id].action.RollbackPossible {
				entries = append(entries, rollbackEntry{action: nodes[c.id].action, token: c.token})
			}

			proceedGraph := c.result.Succeeded
			if !c.result.Succeeded {
				switch nodes[c.id].action.FailurePolicy {
				case incident.FailurePolicyProceed:
					proceedGraph = true
				case incident.FailurePolicyEscalate:
					escalated = true
					for _, dep := range nodes[c.id].dependents {
						recordSkip(dep)
					}
				default: // block, or unset - conservative default
					for _, dep := range nodes[c.id].dependents {
						recordSkip(dep)
					}
				}
			}

			if proceedGraph {
				for _, dep := range nodes[c.id].dependents {
					if skipped[dep] {
						continue
					}
					remaining[dep]--
					if remaining[dep] == 0 {
						dispatch(dep)
					}
				}
			}
		case <-ctx.Done():
			break runLoop
		}
	}

	wg.Wait()

	// ctx.Err() rather than a flag set only on the ctx.Done() select
	// branch: a completion that raced in just as ctx was cancelled can
	// still finish the loop normally, but the run is an abort either way
	// if the caller's context is done.
	aborted := ctx.Err() != nil

	var rolledBack []string
	if aborted && len(entries) > 0 {
		rollbackCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		rolledBack = e.rollbackAll(rollbackCtx, entries)
		cancel()
		for _, id := range rolledBack {
			if r, ok := results[id]; ok {
				r.RolledBack = true
				results[id] = r
			}
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	successRate := float64(succeeded) / float64(len(nodes))

	return PlanResult{
		PlanID:      plan.ID,
		Results:     results,
		Order:       order,
		RolledBack:  rolledBack,
		SuccessRate: successRate,
		Outcome:     outcomeFor(successRate, escalated),
		Aborted:     aborted,
	}, nil
}

// runOne runs a single action through its destination system: acquire
// concurrency slots, rate-limit, enforce the scaled deadline, and retry
// transient failures with exponential backoff. It returns the action's
// result and, on success, any rollback token the system issued.
func (e *Engine) runOne(ctx context.Context, action incident.Action) (incident.ActionResult, string) {
	start := time.Now()

	if err := e.acquire(ctx, action.System); err != nil {
		return incident.ActionResult{ActionID: action.ID, Succeeded: false, Err: err.Error(), StartedAt: start, FinishedAt: time.Now()}, ""
	}
	defer e.release(action.System)

	system, err := e.registry.Lookup(action.System)
	if err != nil {
		return incident.ActionResult{ActionID: action.ID, Succeeded: false, Err: err.Error(), StartedAt: start, FinishedAt: time.Now()}, ""
	}

	deadline := action.Timeout
	if deadline <= 0 {
		deadline = time.Minute
	}
	deadline = time.Duration(float64(deadline) * e.cfg.TimeoutMultiplier)
	actionCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if e.cfg.RateLimiter != nil {
		if err := e.cfg.RateLimiter.Wait(actionCtx, action.System); err != nil {
			return incident.ActionResult{ActionID: action.ID, Succeeded: false, Err: err.Error(), StartedAt: start, FinishedAt: time.Now()}, ""
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.RetryBaseDelay
	bo.MaxInterval = e.cfg.RetryMaxDelay

	resp, err := backoff.Retry(actionCtx, func() (external.Response, error) {
		r, execErr := system.Execute(actionCtx, action)
		if execErr != nil && !isRetryable(execErr) {
			return external.Response{}, backoff.Permanent(execErr)
		}
		return r, execErr
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(e.cfg.RetryMaxAttempts))

	finished := time.Now()
	if err != nil {
		return incident.ActionResult{ActionID: action.ID, Succeeded: false, Err: err.Error(), StartedAt: start, FinishedAt: finished}, ""
	}

	return incident.ActionResult{
		ActionID:   action.ID,
		Succeeded:  resp.Succeeded,
		StartedAt:  start,
		FinishedAt: finished,
	}, resp.RollbackToken
}

func (e *Engine) acquire(ctx context.Context, system string) error {
	if err := e.globalSem.Acquire(ctx, 1); err != nil {
		return err
	}
	if sem, ok := e.systemSem[system]; ok {
		if err := sem.Acquire(ctx, 1); err != nil {
			e.globalSem.Release(1)
			return err
		}
	}
	return nil
}

func (e *Engine) release(system string) {
	if sem, ok := e.systemSem[system]; ok {
		sem.Release(1)
	}
	e.globalSem.Release(1)
}

func isRetryable(err error) bool {
	var te *incident.TriageError
	if errors.As(err, &te) {
		return te.IsRetryable()
	}
	return false
}
