package executor

import (
	"context"

	"github.com/sentinelstay/triage/pkg/incident"
)

// rollbackEntry is one succeeded, reversible action recorded during a
// run, in the order it completed.
type rollbackEntry struct {
	action incident.Action
	token  string
}

// rollbackAll invokes each recorded action's Rollback in reverse
// completion order, per spec.md §4.4: "on workflow-level abort ... the
// executor invokes rollbacks in reverse completion order". This is
// best-effort - a failed rollback is never retried and its error is
// discarded: the action is simply left out of the returned list, and
// the remaining rollbacks still run.
func (e *Engine) rollbackAll(ctx context.Context, entries []rollbackEntry) []string {
	rolledBack := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		system, err := e.registry.Lookup(entry.action.System)
		if err != nil {
			continue
		}
		if err := system.Rollback(ctx, entry.action, entry.token); err != nil {
			continue
		}
		rolledBack = append(rolledBack, entry.action.ID)
	}
	return rolledBack
}
