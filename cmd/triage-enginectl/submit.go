package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/workflow"
)

// SubmitCmd submits one incident and blocks until the run reaches a
// terminal or human-approval-suspended state (or the timeout elapses).
type SubmitCmd struct {
	Title       string        `required:"" help:"Short incident title."`
	Description string        `required:"" help:"Full incident description, as reported."`
	Source      string        `help:"Where the report came from (e.g. front_desk, cctv, guest_app)." default:"cli"`
	Location    string        `help:"Property location (room number, area)."`
	GuestCount  int           `name:"guests" help:"Number of guests affected."`
	SystemCount int           `name:"systems" help:"Number of systems affected."`
	Timeout     time.Duration `help:"How long to wait for a terminal state before giving up." default:"2m"`
}

func (c *SubmitCmd) Run(rc *runContext) error {
	stack, err := rc.buildStack()
	if err != nil {
		return err
	}
	defer stack.engine.Stop()
	defer stack.store.Close()

	st := incident.New(workflow.NewIncidentID(), incident.Metadata{
		Title:       c.Title,
		Description: c.Description,
		Source:      c.Source,
		Location:    c.Location,
		GuestCount:  c.GuestCount,
		SystemCount: c.SystemCount,
		OccurredAt:  time.Now(),
	})

	handle, err := stack.engine.Submit(st)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	if err := handle.Await(ctx); err != nil && st.Status() != incident.StatusAwaitingApproval {
		return fmt.Errorf("incident %s did not reach a terminal state: %w", st.ID(), err)
	}

	return printIncidentSummary(st)
}

func printIncidentSummary(st *incident.Incident) error {
	category, confidence := st.Classification()
	priority, _ := st.Priority()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"incident_id":               st.ID(),
		"status":                    st.Status(),
		"category":                  category,
		"classification_confidence": confidence,
		"priority":                  priority,
		"completed_steps":           st.CompletedSteps(),
		"failed_steps":              st.FailedSteps(),
		"pending_interventions":     st.PendingInterventions(),
	})
}
