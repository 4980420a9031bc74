package main

import (
	"context"
	"fmt"
)

// ResolveCmd approves or rejects a pending human-intervention request,
// unblocking the engine's human-approval-gate node for that incident.
type ResolveCmd struct {
	IncidentID string `arg:"" help:"Incident ID the pending request belongs to."`
	RequestID  string `arg:"" help:"Pending intervention request ID, from 'status'."`
	Approve    bool   `help:"Approve the request (omit to reject)."`
	By         string `help:"Identity of the approving/rejecting operator." default:"cli-operator"`
	Note       string `help:"Optional note recorded with the decision."`
}

func (c *ResolveCmd) Run(rc *runContext) error {
	stack, err := rc.buildStack()
	if err != nil {
		return err
	}
	defer stack.engine.Stop()
	defer stack.store.Close()

	if err := stack.engine.Resolve(context.Background(), c.IncidentID, c.RequestID, c.Approve, c.By, c.Note); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	st, err := stack.engine.Status(c.IncidentID)
	if err != nil {
		return fmt.Errorf("status after resolve: %w", err)
	}
	return printIncidentSummary(st)
}
