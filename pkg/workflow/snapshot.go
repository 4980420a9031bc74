package workflow

import (
	"time"

	"github.com/sentinelstay/triage/pkg/executor"
	"github.com/sentinelstay/triage/pkg/incident"
)

// IncidentSnapshot is the summary the "update-metrics" node hands to
// Deps.Metrics once a run reaches a terminal state: everything
// pkg/metrics needs to score the seven evaluation dimensions without
// importing pkg/workflow's internal node machinery.
type IncidentSnapshot struct {
	IncidentID  string
	Category    incident.Category
	Priority    incident.Priority
	Status      incident.Status

	SubmittedAt time.Time
	ResolvedAt  time.Time

	CompletedSteps []string
	FailedSteps    []string

	HumanInterventions int

	ClassificationConfidence float64
	SafetyPassed             bool
	ComplianceSatisfied      bool
	RequiresLegalReview      bool

	PlannedActions    int
	SuccessfulActions int
	AutomationOutcome executor.Outcome

	// Scope fields feed pkg/metrics' cost-avoidance scaling, grounded on
	// impact_tracker.py's affected_guests/affected_systems multipliers.
	GuestsAffected      int
	SystemsAffected     int
	EstimatedLossRupees float64
}

func newSnapshot(st *incident.Incident) IncidentSnapshot {
	meta := st.Metadata()
	priority, _ := st.Priority()
	category, confidence := st.Classification()

	// HasToolResult("human_approval") records at most one resolved
	// decision per incident (AddToolResult overwrites by tool name);
	// that is the unit spec.md §4.7's efficiency formula penalizes.
	humanInterventions := len(st.PendingInterventions())
	if st.HasToolResult("human_approval") {
		humanInterventions++
	}

	snap := IncidentSnapshot{
		IncidentID:               st.ID(),
		Category:                 category,
		Priority:                 priority,
		Status:                   st.Status(),
		SubmittedAt:              meta.OccurredAt,
		ResolvedAt:               st.UpdatedAt(),
		CompletedSteps:           st.CompletedSteps(),
		FailedSteps:              st.FailedSteps(),
		HumanInterventions:       humanInterventions,
		ClassificationConfidence: confidence,
		GuestsAffected:           meta.GuestCount,
		SystemsAffected:          meta.SystemCount,
		EstimatedLossRupees:      meta.EstimatedLossRupees,
	}

	if tr, ok := st.ToolResult("safety_guardrails"); ok {
		snap.SafetyPassed = asBool(tr.Data["passed"])
	}
	if tr, ok := st.ToolResult("compliance_check"); ok {
		snap.ComplianceSatisfied = len(asStringSlice(tr.Data["violations"])) == 0
		snap.RequiresLegalReview = asBool(tr.Data["requires_legal_review"])
	}

	actions := st.ActionLog()
	snap.PlannedActions = len(actions)
	for _, a := range actions {
		if a.Succeeded {
			snap.SuccessfulActions++
		}
	}

	return snap
}
