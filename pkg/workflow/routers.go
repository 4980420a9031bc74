package workflow

import "github.com/sentinelstay/triage/pkg/incident"

// safetyRouter implements spec.md §4.1's safety-router → {continue,
// reject, human-review}, reading only the "safety_guardrails" tool
// result safety-check recorded - never re-querying the LLM on replay,
// per spec.md §4.5.
func safetyRouter(st *incident.Incident) string {
	tr, ok := st.ToolResult("safety_guardrails")
	if !ok {
		return NodeHandleError
	}
	passed, _ := tr.Data["passed"].(bool)
	requiresReview, _ := tr.Data["requires_human_review"].(bool)

	if !passed {
		return NodeHandleError
	}
	if requiresReview {
		return "human-approval-gate"
	}
	return "prioritize"
}

// complianceRouter implements compliance-router → {approved,
// requires-approval, rejected}.
func complianceRouter(st *incident.Incident) string {
	tr, ok := st.ToolResult("compliance_check")
	if !ok {
		return NodeHandleError
	}
	legalReview, _ := tr.Data["requires_legal_review"].(bool)

	autonomy, hasAutonomy := st.ToolResult("autonomy")
	canProceed := hasAutonomy
	if hasAutonomy {
		if v, ok := autonomy.Data["can_proceed_autonomously"].(bool); ok {
			canProceed = v
		}
	}

	if legalReview || !canProceed {
		return "human-approval-gate"
	}
	return "generate-response"
}

// approvalRouter implements approval-router → {approved, rejected,
// pending}. The "pending" branch loops back into the gate itself, per
// spec.md §4.1.
func approvalRouter(st *incident.Incident) string {
	if len(st.PendingInterventions()) > 0 {
		return "human-approval-gate"
	}
	tr, ok := st.ToolResult("human_approval")
	if !ok {
		return "human-approval-gate"
	}
	approved, _ := tr.Data["approved"].(bool)
	if !approved {
		return NodeHandleError
	}
	return "generate-response"
}
