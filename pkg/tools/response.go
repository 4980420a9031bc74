package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools/llm"
)

// ResponsePlan is the generated response for an incident, grounded on
// response_generator.py's IncidentResponse.
type ResponsePlan struct {
	ImmediateActions         []string
	InvestigationSteps       []string
	ContainmentMeasures      []string
	NotificationRequirements []string
	DocumentationRequirements []string
	FollowUpActions          []string
}

// ResponseGenerationInput carries everything the generator needs to
// build a plan deterministically - no timestamps or random draws, so
// the same input always yields the same plan.
type ResponseGenerationInput struct {
	Category                     incident.Category
	Priority                     incident.Priority
	Description                  string
	RequiresLegalReview          bool
	RequiresRegulatoryNotification bool
	RequiresHumanReview          bool
	HumanReviewReason            string
}

// categoryActions mirrors response_generator.py's
// _get_category_specific_actions table, condensed to the categories
// with distinct hospitality handling; categories absent here receive
// only the priority- and compliance-driven enhancements.
var categoryActions = map[incident.Category]ResponsePlan{
	incident.CategoryGuestAccess: {
		ImmediateActions:   []string{"Verify current guest access status and disable if necessary", "Check security footage for unauthorized access patterns"},
		InvestigationSteps: []string{"Review guest checkout procedures and timing", "Analyze access control logs for the affected period", "Interview housekeeping and front desk staff"},
		ContainmentMeasures: []string{"Update access control systems to prevent further unauthorized access", "Implement additional verification procedures for checkout process"},
		NotificationRequirements: []string{"Notify front office manager and housekeeping supervisor", "Inform affected guests if privacy may have been compromised"},
		DocumentationRequirements: []string{"Document access control system logs and configurations", "Record guest interaction history and checkout procedures"},
		FollowUpActions:    []string{"Review and update guest access policies", "Provide additional training to front desk staff"},
	},
	incident.CategoryPaymentFraud: {
		ImmediateActions:   []string{"Suspend affected payment terminals and flag transactions for review"},
		InvestigationSteps: []string{"Conduct fraud pattern analysis across recent transactions", "Reconcile disputed charges with the payment processor"},
		ContainmentMeasures: []string{"Implement additional fraud controls on affected payment channels"},
		NotificationRequirements: []string{"Notify payment processors of suspected fraud", "Notify affected guests whose cards may be compromised"},
		DocumentationRequirements: []string{"File regulatory fraud reports as required", "Preserve transaction logs and terminal audit trails"},
		FollowUpActions:    []string{"Coordinate with card networks on reissued cards", "Review point-of-sale security configuration"},
	},
	incident.CategoryPIIBreach: {
		ImmediateActions:   []string{"Contain the breach by revoking exposed data access"},
		InvestigationSteps: []string{"Assess scope of data exposure and affected guest count"},
		ContainmentMeasures: []string{"Implement remediation for the exposed data store"},
		NotificationRequirements: []string{"Notify privacy officer of the breach scope"},
		DocumentationRequirements: []string{"Prepare breach notification documentation for regulators"},
		FollowUpActions:    []string{"Conduct lessons-learned review and update security controls"},
	},
	incident.CategoryCyberSecurity: {
		ImmediateActions:   []string{"Activate incident response team", "Isolate affected systems from the network"},
		InvestigationSteps: []string{"Collect forensic evidence from affected systems", "Analyze attack vectors and entry points"},
		ContainmentMeasures: []string{"Implement network containment and monitoring enhancements"},
		NotificationRequirements: []string{"Notify IT security leadership"},
		DocumentationRequirements: []string{"Document forensic timeline and affected system inventory"},
		FollowUpActions:    []string{"Conduct post-incident review and harden affected systems"},
	},
}

// ResponseGenerator produces the incident response plan; it is
// idempotent - the same ResponseGenerationInput always produces the
// same plan, with or without a model configured.
type ResponseGenerator struct {
	base
	llm llm.Client
}

// NewResponseGenerator builds a ResponseGenerator.
func NewResponseGenerator(client llm.Client, timeout time.Duration, recorder Recorder) *ResponseGenerator {
	return &ResponseGenerator{base: newBase("response_generation", timeout, recorder), llm: client}
}

// Generate builds the response plan for in.
func (g *ResponseGenerator) Generate(ctx context.Context, in ResponseGenerationInput) (ResponsePlan, error) {
	var out ResponsePlan
	_, err := g.invoke(ctx, func(ctx context.Context) (float64, error) {
		out = g.generateLocked(ctx, in)
		return 1.0, nil
	})
	if err != nil {
		return ResponsePlan{}, incident.Wrap(incident.KindToolFailure, err, false)
	}
	return out, nil
}

func (g *ResponseGenerator) generateLocked(ctx context.Context, in ResponseGenerationInput) ResponsePlan {
	plan := g.fallbackPlan(in)

	if g.llm != nil {
		if parsed, ok := g.planFromLLM(ctx, in); ok {
			plan = parsed
		}
	}

	return enhancePlan(plan, in)
}

func (g *ResponseGenerator) planFromLLM(ctx context.Context, in ResponseGenerationInput) (ResponsePlan, bool) {
	raw, err := g.llm.CompleteJSON(ctx, responseSystemPrompt, responseUserPrompt(in))
	if err != nil {
		return ResponsePlan{}, false
	}
	var parsed struct {
		ImmediateActions          []string `json:"immediate_actions"`
		InvestigationSteps        []string `json:"investigation_steps"`
		ContainmentMeasures       []string `json:"containment_measures"`
		NotificationRequirements  []string `json:"notification_requirements"`
		DocumentationRequirements []string `json:"documentation_requirements"`
		FollowUpActions           []string `json:"follow_up_actions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ResponsePlan{}, false
	}
	return ResponsePlan{
		ImmediateActions:          parsed.ImmediateActions,
		InvestigationSteps:        parsed.InvestigationSteps,
		ContainmentMeasures:       parsed.ContainmentMeasures,
		NotificationRequirements:  parsed.NotificationRequirements,
		DocumentationRequirements: parsed.DocumentationRequirements,
		FollowUpActions:           parsed.FollowUpActions,
	}, true
}

// fallbackPlan provides a minimal deterministic plan when no model is
// configured or its response cannot be parsed, grounded on
// response_generator.py's _generate_fallback_response.
func (g *ResponseGenerator) fallbackPlan(in ResponseGenerationInput) ResponsePlan {
	immediate := []string{"Assess incident scope and stabilize the situation", "Notify security team of the incident"}
	if in.Priority == incident.PriorityCritical {
		immediate = append([]string{"URGENT: Executive notification required immediately"}, immediate...)
	}
	return ResponsePlan{
		ImmediateActions:          immediate,
		InvestigationSteps:        []string{"Conduct detailed incident analysis", "Document timeline of events"},
		ContainmentMeasures:       []string{"Implement standard containment measures for " + string(in.Category)},
		NotificationRequirements:  []string{"Notify affected stakeholders per standard protocol"},
		DocumentationRequirements: []string{"Create incident report", "Catalog evidence"},
		FollowUpActions:           []string{"Review incident response effectiveness"},
	}
}

// enhancePlan layers priority-, category-, compliance-, and safety-driven
// additions onto a base plan, deduplicating each section, grounded on
// response_generator.py's _enhance_response_plan.
func enhancePlan(plan ResponsePlan, in ResponseGenerationInput) ResponsePlan {
	if in.Priority == incident.PriorityCritical || in.Priority == incident.PriorityHigh {
		plan.ImmediateActions = prependUnique(plan.ImmediateActions, "Executive notification within 30 minutes")
	}

	if extra, ok := categoryActions[in.Category]; ok {
		plan.ImmediateActions = appendUnique(plan.ImmediateActions, extra.ImmediateActions...)
		plan.InvestigationSteps = appendUnique(plan.InvestigationSteps, extra.InvestigationSteps...)
		plan.ContainmentMeasures = appendUnique(plan.ContainmentMeasures, extra.ContainmentMeasures...)
		plan.NotificationRequirements = appendUnique(plan.NotificationRequirements, extra.NotificationRequirements...)
		plan.DocumentationRequirements = appendUnique(plan.DocumentationRequirements, extra.DocumentationRequirements...)
		plan.FollowUpActions = appendUnique(plan.FollowUpActions, extra.FollowUpActions...)
	}

	if in.RequiresRegulatoryNotification {
		plan.NotificationRequirements = appendUnique(plan.NotificationRequirements, "Prepare and submit regulatory notifications within required timeframes")
	}
	if in.RequiresLegalReview {
		plan.ImmediateActions = appendUnique(plan.ImmediateActions, "Coordinate with legal team for compliance review and guidance")
	}
	if in.RequiresHumanReview {
		reason := in.HumanReviewReason
		if reason == "" {
			reason = "Safety concerns"
		}
		plan.ImmediateActions = prependUnique(plan.ImmediateActions, "Escalate to security manager for human review: "+reason)
	}

	return plan
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, d := range dst {
		seen[d] = true
	}
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			dst = append(dst, item)
		}
	}
	return dst
}

func prependUnique(dst []string, item string) []string {
	for _, d := range dst {
		if d == item {
			return dst
		}
	}
	return append([]string{item}, dst...)
}

const responseSystemPrompt = `You are a hospitality security incident response coordinator. Respond with JSON only: {"immediate_actions","investigation_steps","containment_measures","notification_requirements","documentation_requirements","follow_up_actions"}, each a list of short action strings.`

func responseUserPrompt(in ResponseGenerationInput) string {
	return "CATEGORY: " + string(in.Category) + "\nPRIORITY: " + string(in.Priority) + "\nDESCRIPTION: " + in.Description
}
