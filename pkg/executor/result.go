package executor

import "github.com/sentinelstay/triage/pkg/incident"

// Outcome bands a plan run's automation_success_rate into the three
// tiers the workflow's outcome-monitoring node reacts to.
type Outcome string

const (
	OutcomeComplete             Outcome = "complete"
	OutcomeCompleteWithWarnings Outcome = "complete_with_warnings"
	OutcomeEscalate             Outcome = "escalate"
)

// outcomeFor bands a successful/planned ratio per spec.md §4.4: 0.8 and
// above completes cleanly, 0.5 up to 0.8 completes with warnings,
// anything lower escalates to a human.
func outcomeFor(successRate float64, escalated bool) Outcome {
	switch {
	case escalated:
		return OutcomeEscalate
	case successRate >= 0.8:
		return OutcomeComplete
	case successRate >= 0.5:
		return OutcomeCompleteWithWarnings
	default:
		return OutcomeEscalate
	}
}

// PlanResult is the executor's full accounting of one plan run.
type PlanResult struct {
	PlanID      string                           `json:"plan_id"`
	Results     map[string]incident.ActionResult `json:"results"`
	Order       []string                         `json:"order"`
	RolledBack  []string                         `json:"rolled_back"`
	SuccessRate float64                          `json:"success_rate"`
	Outcome     Outcome                          `json:"outcome"`
	Aborted     bool                             `json:"aborted"`
}
