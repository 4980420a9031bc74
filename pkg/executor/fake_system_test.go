package executor_test

import (
	"context"
	"sync"

	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/incident"
)

// fakeSystem is a scriptable external.System used across this package's
// tests: execute decides the outcome per call (1-indexed) for a given
// action, and every Rollback call is recorded as "<action-id>:<token>".
type fakeSystem struct {
	name    string
	execute func(ctx context.Context, action incident.Action, call int) (external.Response, error)

	mu        sync.Mutex
	calls     map[string]int
	rollbacks []string
}

func newFakeSystem(name string, execute func(ctx context.Context, action incident.Action, call int) (external.Response, error)) *fakeSystem {
	return &fakeSystem{name: name, execute: execute, calls: make(map[string]int)}
}

func (f *fakeSystem) Name() string { return f.name }

func (f *fakeSystem) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeSystem) Execute(ctx context.Context, action incident.Action) (external.Response, error) {
	f.mu.Lock()
	f.calls[action.ID]++
	call := f.calls[action.ID]
	f.mu.Unlock()
	return f.execute(ctx, action, call)
}

func (f *fakeSystem) Rollback(ctx context.Context, action incident.Action, token string) error {
	f.mu.Lock()
	f.rollbacks = append(f.rollbacks, action.ID+":"+token)
	f.mu.Unlock()
	return nil
}
