package decision

import (
	"fmt"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
)

// actionSystem maps an action type to the destination system
// pkg/executor rate-limits against, grounded on the three systems
// spec.md §5 names (access_control, pms, notifications).
var actionSystem = map[incident.ActionType]string{
	incident.ActionTypeAccessRevoke:     "access_control",
	incident.ActionTypeAccessGrant:      "access_control",
	incident.ActionTypeAccountLock:      "access_control",
	incident.ActionTypeComplianceFile:   "pms",
	incident.ActionTypeEvidencePreserve: "pms",
	incident.ActionTypeNotification:     "notifications",
}

// actionDurations is a per-action-type execution estimate, independent
// of the playbook's overall completion-time budget.
var actionDurations = map[incident.ActionType]time.Duration{
	incident.ActionTypeAccessRevoke:     2 * time.Minute,
	incident.ActionTypeAccessGrant:      2 * time.Minute,
	incident.ActionTypeAccountLock:      1 * time.Minute,
	incident.ActionTypeNotification:     30 * time.Second,
	incident.ActionTypeEvidencePreserve: 5 * time.Minute,
	incident.ActionTypeComplianceFile:   10 * time.Minute,
}

// actionFailurePolicies mirrors spec.md §4.4's default failure_policy
// table: block for access-control/lockdown actions, proceed for
// notifications, escalate for compliance-report actions. Evidence
// preservation has no explicit default named there and falls back to
// block, same as access-control.
var actionFailurePolicies = map[incident.ActionType]incident.FailurePolicy{
	incident.ActionTypeAccessRevoke:     incident.FailurePolicyBlock,
	incident.ActionTypeAccessGrant:      incident.FailurePolicyBlock,
	incident.ActionTypeAccountLock:      incident.FailurePolicyBlock,
	incident.ActionTypeEvidencePreserve: incident.FailurePolicyBlock,
	incident.ActionTypeNotification:     incident.FailurePolicyProceed,
	incident.ActionTypeComplianceFile:   incident.FailurePolicyEscalate,
}

var actionDescriptions = map[incident.ActionType]string{
	incident.ActionTypeAccessRevoke:     "Revoke access credentials implicated in the incident",
	incident.ActionTypeAccessGrant:      "Grant temporary access required for incident response",
	incident.ActionTypeAccountLock:      "Lock the affected account pending investigation",
	incident.ActionTypeNotification:     "Notify the stakeholders required for this category",
	incident.ActionTypeEvidencePreserve: "Preserve logs and records as evidence",
	incident.ActionTypeComplianceFile:   "File the compliance record for this incident",
}

// scopeVariant names the three candidate scopes PlanOptimizer derives
// from a playbook's required actions.
type scopeVariant string

const (
	scopeMinimal         scopeVariant = "minimal"
	scopeStandard        scopeVariant = "standard"
	scopeFullContainment scopeVariant = "full_containment"
)

const (
	weightEffectiveness  = 0.35
	weightEfficiency     = 0.20
	weightRiskMitigation = 0.25
	weightComplexity     = 0.10
	weightResource       = 0.10
)

// PlanOptimizer generates and scores candidate DecisionPlans for an
// incident's selected playbook. The Python ActionOptimizer this is
// grounded on (generate_action_plans) is a stub returning an empty
// list, so the candidate generation here is this module's own design:
// three scope variants of the playbook's required actions, scored the
// way _select_optimal_plan scores whatever plans it is handed.
type PlanOptimizer struct{}

// NewPlanOptimizer builds a PlanOptimizer.
func NewPlanOptimizer() *PlanOptimizer {
	return &PlanOptimizer{}
}

// GeneratePlans returns one DecisionPlan per scope variant, each scored
// against the given impact and risk assessment.
func (o *PlanOptimizer) GeneratePlans(playbook incident.Playbook, impact BusinessImpact, risk RiskVectors) []incident.DecisionPlan {
	variants := candidateActionSets(playbook)

	plans := make([]incident.DecisionPlan, 0, len(variants))
	for _, v := range variants {
		actions := buildActions(playbook.ID, v.variant, v.actions)

		plan := incident.DecisionPlan{
			ID:         fmt.Sprintf("%s-%s", playbook.ID, v.variant),
			PlaybookID: playbook.ID,
			Actions:    actions,
		}
		plan.EffectivenessScore = effectivenessScore(v.actions, playbook)
		plan.EfficiencyScore = efficiencyScore(actions)
		plan.RiskMitigationScore = riskMitigationScore(v.actions, risk)
		plan.ComplexityScore = complexityScore(actions)
		plan.ResourceScore = resourceScore(actions)
		plan.TotalScore = weightedTotal(plan)
		plan.RequiresApproval = impact.FinancialImpact > financialOverrideThreshold || risk.RequiresManagementApproval

		plans = append(plans, plan)
	}
	return plans
}

// SelectOptimal picks the highest-TotalScore plan, breaking ties first
// by lower complexity (higher ComplexityScore, since that field already
// stores 1-complexity) and then by lower total estimated duration,
// mirroring _select_optimal_plan's max-by-score selection plus
// spec.md §4.3's tie-break rule.
func (o *PlanOptimizer) SelectOptimal(plans []incident.DecisionPlan) (incident.DecisionPlan, error) {
	if len(plans) == 0 {
		return incident.DecisionPlan{}, incident.Wrap(incident.KindValidation, fmt.Errorf("no candidate plans to optimize"), false)
	}

	best := plans[0]
	for _, p := range plans[1:] {
		if isBetterPlan(p, best) {
			best = p
		}
	}
	return best, nil
}

func isBetterPlan(candidate, current incident.DecisionPlan) bool {
	if candidate.TotalScore != current.TotalScore {
		return candidate.TotalScore > current.TotalScore
	}
	if candidate.ComplexityScore != current.ComplexityScore {
		return candidate.ComplexityScore > current.ComplexityScore
	}
	return totalDuration(candidate.Actions) < totalDuration(current.Actions)
}

type actionSet struct {
	variant scopeVariant
	actions []incident.ActionType
}

// candidateActionSets derives the minimal/standard/full-containment
// scopes from a playbook's required actions in a fixed order, so
// GeneratePlans is deterministic regardless of map iteration.
func candidateActionSets(playbook incident.Playbook) []actionSet {
	standard := append([]incident.ActionType(nil), playbook.RequiredActions...)

	minimalCount := (len(standard) + 1) / 2
	if minimalCount < 1 && len(standard) > 0 {
		minimalCount = 1
	}
	minimal := append([]incident.ActionType(nil), standard[:minimalCount]...)

	full := append([]incident.ActionType(nil), standard...)
	for _, extra := range []incident.ActionType{
		incident.ActionTypeAccessRevoke,
		incident.ActionTypeAccountLock,
		incident.ActionTypeEvidencePreserve,
	} {
		if !hasActionType(full, extra) {
			full = append(full, extra)
		}
	}

	return []actionSet{
		{scopeMinimal, minimal},
		{scopeStandard, standard},
		{scopeFullContainment, full},
	}
}

func hasActionType(actions []incident.ActionType, want incident.ActionType) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

// buildActions turns an ordered action-type list into a dependency
// chain of incident.Action - each action depends on the one before it,
// so the executor runs the plan in the order it was reasoned about.
// RollbackPossible is forced false for notifications, matching the
// decision recorded for spec.md's rollback Open Question.
func buildActions(playbookID string, variant scopeVariant, types []incident.ActionType) []incident.Action {
	actions := make([]incident.Action, 0, len(types))
	var previousID string
	for i, t := range types {
		id := fmt.Sprintf("%s-%s-%d", playbookID, variant, i+1)
		a := incident.Action{
			ID:               id,
			Type:             t,
			System:           actionSystem[t],
			Description:      actionDescriptions[t],
			RollbackPossible: t != incident.ActionTypeNotification,
			Timeout:          actionDurations[t],
			FailurePolicy:    actionFailurePolicies[t],
		}
		if previousID != "" {
			a.DependsOn = []string{previousID}
		}
		actions = append(actions, a)
		previousID = id
	}
	return actions
}

// effectivenessScore rewards coverage of the playbook's originally
// required actions, capped at 1.0.
func effectivenessScore(actionTypes []incident.ActionType, playbook incident.Playbook) float64 {
	if len(playbook.RequiredActions) == 0 {
		return 0.5
	}
	ratio := 0.5 + 0.5*float64(len(actionTypes))/float64(len(playbook.RequiredActions))
	if ratio > 1.0 {
		return 1.0
	}
	return ratio
}

// efficiencyScore penalizes plans whose total estimated duration is
// longer, matching the intuition that more actions cost more time.
func efficiencyScore(actions []incident.Action) float64 {
	hours := totalDuration(actions).Hours()
	return 1.0 / (1.0 + hours)
}

// riskMitigationContribution maps an action type to the risk dimension
// it primarily addresses, grounded loosely on _evaluate_risk_mitigation.
var riskMitigationContribution = map[incident.ActionType]func(RiskVectors) float64{
	incident.ActionTypeAccessRevoke:     func(r RiskVectors) float64 { return r.GuestSafetyRisk },
	incident.ActionTypeAccessGrant:      func(r RiskVectors) float64 { return r.OperationalRisk },
	incident.ActionTypeAccountLock:      func(r RiskVectors) float64 { return r.FinancialRisk },
	incident.ActionTypeNotification:     func(r RiskVectors) float64 { return r.ReputationRisk },
	incident.ActionTypeEvidencePreserve: func(r RiskVectors) float64 { return r.LegalComplianceRisk },
	incident.ActionTypeComplianceFile:   func(r RiskVectors) float64 { return r.LegalComplianceRisk },
}

func riskMitigationScore(actionTypes []incident.ActionType, risk RiskVectors) float64 {
	var total float64
	var count float64
	for _, t := range actionTypes {
		if f, ok := riskMitigationContribution[t]; ok {
			total += f(risk)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / count
}

// complexityScore is stored as 1-rawComplexity so every plan score in
// incident.DecisionPlan reads "higher is better", matching
// effectiveness/efficiency/risk-mitigation/resource.
func complexityScore(actions []incident.Action) float64 {
	raw := float64(len(actions)) / 6.0
	if raw > 1.0 {
		raw = 1.0
	}
	return 1.0 - raw
}

// resourceScore penalizes plans that touch more distinct destination
// systems concurrently, since pkg/executor rate-limits each one
// independently.
func resourceScore(actions []incident.Action) float64 {
	systems := make(map[string]struct{})
	for _, a := range actions {
		systems[a.System] = struct{}{}
	}
	score := 1.0 - float64(len(systems)-1)*0.15
	if score < 0 {
		return 0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

func totalDuration(actions []incident.Action) time.Duration {
	var total time.Duration
	for _, a := range actions {
		total += a.Timeout
	}
	return total
}

func weightedTotal(p incident.DecisionPlan) float64 {
	return weightEffectiveness*p.EffectivenessScore +
		weightEfficiency*p.EfficiencyScore +
		weightRiskMitigation*p.RiskMitigationScore +
		weightComplexity*p.ComplexityScore +
		weightResource*p.ResourceScore
}
