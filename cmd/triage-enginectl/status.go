package main

import "fmt"

// StatusCmd reports a single incident's current in-memory state. Only
// useful against a long-running `serve` process that still holds the
// incident in its run table; once an engine process exits, status
// must come from `search` against the persistent store instead.
type StatusCmd struct {
	IncidentID string `arg:"" help:"Incident ID to look up."`
}

func (c *StatusCmd) Run(rc *runContext) error {
	stack, err := rc.buildStack()
	if err != nil {
		return err
	}
	defer stack.store.Close()

	st, err := stack.engine.Status(c.IncidentID)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	return printIncidentSummary(st)
}
