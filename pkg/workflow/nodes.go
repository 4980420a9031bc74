package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelstay/triage/pkg/executor"
	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools"
)

func nodeValidateInput(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	meta := st.Metadata()
	if strings.TrimSpace(meta.Title) == "" || strings.TrimSpace(meta.Description) == "" {
		return Failed(incident.Wrap(incident.KindValidation,
			fmt.Errorf("incident %s: title and description are required", st.ID()), false)), nil
	}
	return Complete(), nil
}

func nodeClassify(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("classification") {
		return Complete(), nil
	}
	out, err := deps.Classifier.Classify(ctx, tools.ClassificationInput{Metadata: st.Metadata()})
	if err != nil {
		return Failed(err), nil
	}
	st.SetClassification(out.Category, out.Confidence)
	st.AddToolResult("classification", out.Confidence, map[string]any{
		"category":               out.Category,
		"confidence":             out.Confidence,
		"reasoning":              out.Reasoning,
		"alternative_categories": out.AlternativeCategories,
		"severity_indicators":    out.SeverityIndicators,
	})
	return Complete(), nil
}

func nodeAssessRisk(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("risk_assessment") {
		return Complete(), nil
	}
	category, _ := st.Classification()
	risk := deps.RiskAssessor.Analyze(st.Metadata(), category)
	st.AddToolResult("risk_assessment", 1.0, riskVectorsToMap(risk))
	return Complete(), nil
}

func nodeSafetyCheck(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("safety_guardrails") {
		return Complete(), nil
	}
	category, _ := st.Classification()
	riskTR, _ := st.ToolResult("risk_assessment")
	overallRisk := riskVectorsFrom(riskTR.Data).OverallRiskScore()

	out, err := deps.SafetyGuardrails.Check(ctx, st.Metadata().Description, category, overallRisk)
	if err != nil {
		return Failed(err), nil
	}

	violationTypes := make([]string, 0, len(out.Violations))
	for _, v := range out.Violations {
		violationTypes = append(violationTypes, v.ViolationType+":"+v.Severity)
	}

	st.AddToolResult("safety_guardrails", 1.0, map[string]any{
		"passed":                out.Passed,
		"overall_risk_level":    out.OverallRiskLevel,
		"violations":            violationTypes,
		"content_flags":         out.ContentFlags,
		"requires_human_review": out.RequiresHumanReview,
		"review_reason":         out.ReviewReason,
		"sanitized_content":     out.SanitizedContent,
		"risk_factors":          out.RiskFactors,
		"recommendations":       out.Recommendations,
	})
	return Complete(), nil
}

func nodePrioritize(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("prioritization") {
		return Complete(), nil
	}
	category, _ := st.Classification()
	out, err := deps.Prioritizer.Prioritize(ctx, category, st.Metadata())
	if err != nil {
		return Failed(err), nil
	}
	st.SetPriority(out.Priority, out.RiskAssessment.RiskScore)
	st.AddToolResult("prioritization", out.RiskAssessment.ConfidenceScore, map[string]any{
		"priority":                   out.Priority,
		"reasoning":                  out.Reasoning,
		"recommended_sla":            out.RecommendedSLA,
		"stakeholders_to_notify":     out.StakeholdersToNotify,
		"immediate_actions_required": out.ImmediateActionsRequired,
		"risk_score":                 out.RiskAssessment.RiskScore,
		"risk_factors":               out.RiskAssessment.RiskFactors,
		"mitigation_urgency":         out.RiskAssessment.MitigationUrgency,
		"potential_impact":           out.RiskAssessment.PotentialImpact,
		"likelihood_score":           out.RiskAssessment.LikelihoodScore,
		"confidence_score":           out.RiskAssessment.ConfidenceScore,
	})
	return Complete(), nil
}

// nodeSelectPlaybook picks the playbook and, since priority is now
// known, also runs the business-impact, autonomy, and plan-scoring
// stages of the decision engine in one step - deferred this far
// because spec.md §4.3's impact calculation needs priority, which
// isn't available until the prioritize node just before this one.
func nodeSelectPlaybook(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.Plan() != nil {
		return Complete(), nil
	}

	category, confidence := st.Classification()
	priority, _ := st.Priority()
	meta := st.Metadata()

	prioritizationTR, _ := st.ToolResult("prioritization")
	riskAssessment := tools.RiskAssessment{
		RiskScore:         asFloat(prioritizationTR.Data["risk_score"]),
		RiskFactors:       asStringSlice(prioritizationTR.Data["risk_factors"]),
		MitigationUrgency: incident.Priority(asString(prioritizationTR.Data["mitigation_urgency"])),
		PotentialImpact:   asString(prioritizationTR.Data["potential_impact"]),
		LikelihoodScore:   asFloat(prioritizationTR.Data["likelihood_score"]),
		ConfidenceScore:   asFloat(prioritizationTR.Data["confidence_score"]),
	}

	playbookOut, err := deps.PlaybookSelector.Select(ctx, category, priority, riskAssessment)
	if err != nil {
		return Failed(err), nil
	}
	st.AddToolResult("playbook_selection", 1.0, map[string]any{
		"playbook_id":                  playbookOut.Playbook.ID,
		"selection_reasoning":          playbookOut.SelectionReasoning,
		"customization_notes":          playbookOut.CustomizationNotes,
		"estimated_completion_minutes": playbookOut.EstimatedCompletionTime.Minutes(),
	})

	riskTR, _ := st.ToolResult("risk_assessment")
	risk := riskVectorsFrom(riskTR.Data)
	impact := deps.ImpactCalculator.Calculate(meta, category, priority, deps.now())
	autonomy := deps.AutonomyAssessor.Assess(meta, category, confidence, impact, risk)

	plans := deps.PlanOptimizer.GeneratePlans(playbookOut.Playbook, impact, risk)
	selected, err := deps.PlanOptimizer.SelectOptimal(plans)
	if err != nil {
		return Failed(err), nil
	}
	st.SetPlan(&selected)

	st.AddToolResult("autonomy", autonomy.Confidence, map[string]any{
		"can_proceed_autonomously": autonomy.CanProceedAutonomously,
		"reasoning":                autonomy.Reasoning,
		"override_conditions_met":  autonomy.OverrideConditionsMet,
		"criteria_scores":          autonomy.CriteriaScores,
		"total_impact_score":       impact.TotalImpactScore(),
		"requires_approval":        !autonomy.CanProceedAutonomously,
	})
	return Complete(), nil
}

func nodeComplianceCheck(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("compliance_check") {
		return Complete(), nil
	}
	category, _ := st.Classification()
	out, err := deps.ComplianceChecker.Check(ctx, category, st.Metadata())
	if err != nil {
		return Failed(err), nil
	}
	st.SetFrameworks(out.ApplicableFrameworks)
	st.AddToolResult("compliance_check", 1.0, map[string]any{
		"applicable_frameworks":            out.ApplicableFrameworks,
		"violations":                        out.Violations,
		"requires_legal_review":             out.RequiresLegalReview,
		"requires_regulatory_notification":  out.RequiresRegulatoryNotification,
		"notification_deadlines":            out.NotificationDeadlines,
		"documentation_requirements":        out.DocumentationRequirements,
		"risk_mitigation_actions":           out.RiskMitigationActions,
	})
	return Complete(), nil
}

// nodeHumanApprovalGate is reached only when a router upstream
// determined review is required, or in a resumed run after Resolve.
// It never re-invokes an LLM - it reads the tool results that already
// justified the pause, per spec.md §4.5.
func nodeHumanApprovalGate(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if pending := st.PendingInterventions(); len(pending) > 0 {
		return Suspended(pending[0].RequestType, pending[0].Reason), nil
	}
	if st.HasToolResult("human_approval") {
		return Complete(), nil
	}

	requestType, reason := approvalReasonFrom(st)
	st.RequestIntervention(requestType, reason)
	return Suspended(requestType, reason), nil
}

// approvalReasonFrom explains why the gate opened, reading whichever
// upstream tool result triggered it.
func approvalReasonFrom(st *incident.Incident) (requestType, reason string) {
	if safetyTR, ok := st.ToolResult("safety_guardrails"); ok && asBool(safetyTR.Data["requires_human_review"]) {
		return "safety_review", asString(safetyTR.Data["review_reason"])
	}
	if complianceTR, ok := st.ToolResult("compliance_check"); ok && asBool(complianceTR.Data["requires_legal_review"]) {
		return "legal_review", "compliance check flagged a required legal review"
	}
	if autonomyTR, ok := st.ToolResult("autonomy"); ok {
		return "autonomy_override", asString(autonomyTR.Data["reasoning"])
	}
	return "manual_review", "workflow routed to human approval"
}

func nodeGenerateResponse(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("response_generation") {
		return Complete(), nil
	}
	category, _ := st.Classification()
	priority, _ := st.Priority()

	safetyTR, _ := st.ToolResult("safety_guardrails")
	complianceTR, _ := st.ToolResult("compliance_check")

	in := tools.ResponseGenerationInput{
		Category:                       category,
		Priority:                       priority,
		Description:                    st.Metadata().Description,
		RequiresLegalReview:            asBool(complianceTR.Data["requires_legal_review"]),
		RequiresRegulatoryNotification: asBool(complianceTR.Data["requires_regulatory_notification"]),
		RequiresHumanReview:            asBool(safetyTR.Data["requires_human_review"]),
		HumanReviewReason:              asString(safetyTR.Data["review_reason"]),
	}
	out, err := deps.ResponseGenerator.Generate(ctx, in)
	if err != nil {
		return Failed(err), nil
	}
	st.AddToolResult("response_generation", 1.0, map[string]any{
		"immediate_actions":          out.ImmediateActions,
		"investigation_steps":        out.InvestigationSteps,
		"containment_measures":       out.ContainmentMeasures,
		"notification_requirements":  out.NotificationRequirements,
		"documentation_requirements": out.DocumentationRequirements,
		"follow_up_actions":          out.FollowUpActions,
	})
	return Complete(), nil
}

// nodeExecuteImmediateActions drives the selected plan through the
// executor and bands its automation_success_rate per spec.md §4.4's
// outcome-monitoring rule: an escalate outcome (below 0.5) raises an
// execution_escalation intervention and suspends the run at this node
// instead of completing silently. After Resolve the run re-enters this
// node, which completes on the execution result it already recorded.
func nodeExecuteImmediateActions(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if st.HasToolResult("execution") {
		return Complete(), nil
	}
	plan := st.Plan()
	if plan == nil {
		return Failed(incident.Wrap(incident.KindInternal,
			fmt.Errorf("incident %s: no plan selected before execution", st.ID()), false)), nil
	}
	if deps.Executor == nil {
		st.AddToolResult("execution", 1.0, map[string]any{"outcome": string(executor.OutcomeComplete), "success_rate": 1.0})
		return Complete(), nil
	}

	result, err := deps.Executor.Run(ctx, *plan)
	if err != nil {
		return Failed(err), nil
	}
	for _, id := range result.Order {
		if r, ok := result.Results[id]; ok {
			st.RecordAction(r)
		}
	}
	st.AddToolResult("execution", result.SuccessRate, map[string]any{
		"outcome":      string(result.Outcome),
		"success_rate": result.SuccessRate,
		"aborted":      result.Aborted,
		"rolled_back":  result.RolledBack,
	})

	if result.Aborted {
		return Failed(incident.Wrap(incident.KindInternal,
			fmt.Errorf("incident %s: execution aborted", st.ID()), false)), nil
	}
	if result.Outcome == executor.OutcomeEscalate {
		st.RequestIntervention("execution_escalation", "automation success rate fell below the escalation threshold")
		return Suspended("execution_escalation", "automation success rate fell below the escalation threshold"), nil
	}
	return Complete(), nil
}

func nodeDocument(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if deps.Store == nil {
		return Complete(), nil
	}
	if err := deps.Store.SaveIncident(ctx, st); err != nil {
		return Failed(err), nil
	}
	if err := deps.Store.RecordHistory(ctx, incident.HistoryRecord{
		IncidentID: st.ID(),
		Sequence:   len(st.CompletedSteps()),
		Step:       "document",
		Kind:       "snapshot",
		Detail:     "persisted incident record",
		At:         deps.now(),
	}); err != nil {
		return Failed(err), nil
	}
	return Complete(), nil
}

// nodeNotify delivers stakeholder notifications beyond whatever
// notification actions the plan itself already scheduled through the
// executor - e.g. a stakeholder list the prioritizer flagged that
// isn't itself an action in the plan.
func nodeNotify(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if deps.Notifier == nil {
		return Complete(), nil
	}
	prioritizationTR, _ := st.ToolResult("prioritization")
	stakeholders := asStringSlice(prioritizationTR.Data["stakeholders_to_notify"])
	if len(stakeholders) == 0 {
		return Complete(), nil
	}

	action := incident.Action{
		ID:          st.ID() + "-stakeholder-notify",
		Type:        incident.ActionTypeNotification,
		System:      deps.Notifier.Name(),
		Description: "Notify stakeholders: " + strings.Join(stakeholders, ", "),
	}
	resp, err := deps.Notifier.Execute(ctx, action)
	succeeded := err == nil && resp.Succeeded
	st.AddToolResult("stakeholder_notification", 1.0, map[string]any{
		"succeeded":    succeeded,
		"stakeholders": stakeholders,
	})
	// External-service failures inside a node are not fatal by
	// themselves - spec.md §4.1's failure semantics.
	return Complete(), nil
}

func nodeScheduleFollowup(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	if deps.Store == nil {
		return Complete(), nil
	}
	responseTR, _ := st.ToolResult("response_generation")
	followUps := asStringSlice(responseTR.Data["follow_up_actions"])
	if len(followUps) == 0 {
		return Complete(), nil
	}
	if err := deps.Store.RecordHistory(ctx, incident.HistoryRecord{
		IncidentID: st.ID(),
		Sequence:   len(st.CompletedSteps()) + 1,
		Step:       "schedule-followup",
		Kind:       "follow_up",
		Detail:     strings.Join(followUps, "; "),
		At:         deps.now(),
	}); err != nil {
		return Failed(err), nil
	}
	return Complete(), nil
}

func nodeUpdateMetrics(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	st.Finish(incident.StatusResolved)
	snap := newSnapshot(st)
	if executionTR, ok := st.ToolResult("execution"); ok {
		snap.AutomationOutcome = executor.Outcome(asString(executionTR.Data["outcome"]))
	}
	if deps.Metrics != nil {
		deps.Metrics.RecordIncident(snap)
	}
	return Complete(), nil
}

// nodeHandleError is the terminal redirect target for any Failed
// outcome. The failing step was already recorded into failed_steps by
// the engine before routing here; this node finalizes status and hands
// the failed run's snapshot to Deps.Metrics.
func nodeHandleError(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error) {
	st.Finish(incident.StatusFailed)
	if deps.Metrics != nil {
		deps.Metrics.RecordIncident(newSnapshot(st))
	}
	return Complete(), nil
}
