package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools/llm"
)

// RiskAssessment is the prioritizer's scored view of how dangerous an
// incident is, independent of any SLA or stakeholder decision.
type RiskAssessment struct {
	RiskScore        float64
	RiskFactors      []string
	MitigationUrgency incident.Priority
	PotentialImpact  string
	LikelihoodScore  float64
	ConfidenceScore  float64
}

// PrioritizationOutput is the prioritizer's final answer, grounded on
// prioritization.py's PrioritizationResult.
type PrioritizationOutput struct {
	Priority                  incident.Priority
	Reasoning                 string
	RiskAssessment             RiskAssessment
	RecommendedSLA             string
	StakeholdersToNotify       []string
	ImmediateActionsRequired   bool
}

var slaMapping = map[incident.Priority]string{
	incident.PriorityCritical:      "15 minutes",
	incident.PriorityHigh:          "1 hour",
	incident.PriorityMedium:        "4 hours",
	incident.PriorityLow:           "24 hours",
	incident.PriorityInformational: "72 hours",
}

var categoryRiskScores = map[incident.Category]float64{
	incident.CategoryCyberSecurity:   7.0,
	incident.CategoryPIIBreach:       8.0,
	incident.CategoryPaymentFraud:    7.5,
	incident.CategoryPhysicalSecurity: 6.0,
	incident.CategoryGuestAccess:     5.5,
	incident.CategoryCompliance:      6.5,
	incident.CategoryOpsSecurity:     4.0,
	incident.CategoryVendorAccess:    5.0,
}

var categoryStakeholders = map[incident.Category][]string{
	incident.CategoryPaymentFraud:    {"finance_team", "revenue_manager"},
	incident.CategoryPIIBreach:       {"privacy_officer", "legal_team"},
	incident.CategoryCyberSecurity:   {"it_security", "it_manager"},
	incident.CategoryCompliance:      {"compliance_officer", "legal_team"},
	incident.CategoryGuestAccess:     {"front_office", "housekeeping_manager"},
	incident.CategoryVendorAccess:    {"procurement", "vendor_manager"},
}

// Prioritizer bands incident risk and derives SLA and stakeholder
// notification lists.
type Prioritizer struct {
	base
	llm llm.Client
}

// NewPrioritizer builds a Prioritizer. A nil llm.Client runs the
// category-based fallback on every call.
func NewPrioritizer(client llm.Client, timeout time.Duration, recorder Recorder) *Prioritizer {
	return &Prioritizer{base: newBase("prioritization", timeout, recorder), llm: client}
}

// Prioritize scores and bands an incident, falling back to
// category-keyed heuristics when no model is configured or its
// response cannot be parsed.
func (p *Prioritizer) Prioritize(ctx context.Context, category incident.Category, meta incident.Metadata) (PrioritizationOutput, error) {
	var out PrioritizationOutput
	_, err := p.invoke(ctx, func(ctx context.Context) (float64, error) {
		out = p.prioritizeLocked(ctx, category, meta)
		return out.RiskAssessment.ConfidenceScore, nil
	})
	if err != nil {
		return PrioritizationOutput{}, incident.Wrap(incident.KindToolFailure, err, false)
	}
	return out, nil
}

func (p *Prioritizer) prioritizeLocked(ctx context.Context, category incident.Category, meta incident.Metadata) PrioritizationOutput {
	risk := p.fallbackRiskAssessment(category)

	if p.llm != nil {
		if parsed, ok := p.riskFromLLM(ctx, category, meta); ok {
			risk = parsed
		}
	}

	if p.llm != nil {
		if out, ok := p.prioritizeFromLLM(ctx, category, risk, meta); ok {
			return out
		}
	}

	return p.fallbackPrioritization(category, risk, "model unavailable or unparseable")
}

func (p *Prioritizer) riskFromLLM(ctx context.Context, category incident.Category, meta incident.Metadata) (RiskAssessment, bool) {
	raw, err := p.llm.CompleteJSON(ctx, riskAssessmentSystemPrompt, riskAssessmentUserPrompt(category, meta))
	if err != nil {
		return RiskAssessment{}, false
	}
	var parsed struct {
		RiskScore       float64  `json:"risk_score"`
		RiskFactors     []string `json:"risk_factors"`
		PotentialImpact string   `json:"potential_impact"`
		LikelihoodScore float64  `json:"likelihood_score"`
		ConfidenceScore float64  `json:"confidence_score"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return RiskAssessment{}, false
	}

	riskScore := clamp(parsed.RiskScore, 0, 10)
	return RiskAssessment{
		RiskScore:        riskScore,
		RiskFactors:      parsed.RiskFactors,
		MitigationUrgency: priorityForRiskScore(riskScore),
		PotentialImpact:  parsed.PotentialImpact,
		LikelihoodScore:  clamp(parsed.LikelihoodScore, 0, 10),
		ConfidenceScore:  clamp(parsed.ConfidenceScore, 0, 1),
	}, true
}

func (p *Prioritizer) prioritizeFromLLM(ctx context.Context, category incident.Category, risk RiskAssessment, meta incident.Metadata) (PrioritizationOutput, bool) {
	raw, err := p.llm.CompleteJSON(ctx, prioritizationSystemPrompt, prioritizationUserPrompt(category, risk))
	if err != nil {
		return PrioritizationOutput{}, false
	}
	var parsed struct {
		Priority       string   `json:"priority"`
		Reasoning      string   `json:"reasoning"`
		RecommendedSLA string   `json:"recommended_sla"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return PrioritizationOutput{}, false
	}

	priority := incident.Priority(parsed.Priority)
	if _, ok := slaMapping[priority]; !ok {
		priority = risk.MitigationUrgency
	}

	sla := parsed.RecommendedSLA
	if sla == "" {
		sla = slaMapping[priority]
	}

	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = fmt.Sprintf("Prioritized as %s based on risk assessment", priority)
	}

	return PrioritizationOutput{
		Priority:                priority,
		Reasoning:               reasoning,
		RiskAssessment:          risk,
		RecommendedSLA:          sla,
		StakeholdersToNotify:    determineStakeholders(priority, category),
		ImmediateActionsRequired: priority == incident.PriorityCritical || priority == incident.PriorityHigh,
	}, true
}

// fallbackRiskAssessment scores risk by category alone, grounded on
// prioritization.py's _fallback_risk_assessment category table.
func (p *Prioritizer) fallbackRiskAssessment(category incident.Category) RiskAssessment {
	score, ok := categoryRiskScores[category]
	if !ok {
		score = 5.0
	}

	var priority incident.Priority
	switch {
	case score >= 7.0:
		priority = incident.PriorityHigh
	case score >= 5.0:
		priority = incident.PriorityMedium
	default:
		priority = incident.PriorityLow
	}

	return RiskAssessment{
		RiskScore:        score,
		RiskFactors:      []string{fmt.Sprintf("fallback_assessment_%s", category), "llm_parsing_error"},
		MitigationUrgency: priority,
		PotentialImpact:  fmt.Sprintf("Estimated %s impact based on category %s", priority, category),
		LikelihoodScore:  5.0,
		ConfidenceScore:  0.5,
	}
}

func (p *Prioritizer) fallbackPrioritization(category incident.Category, risk RiskAssessment, reason string) PrioritizationOutput {
	priority := risk.MitigationUrgency
	return PrioritizationOutput{
		Priority:                priority,
		Reasoning:               fmt.Sprintf("Fallback prioritization (%s). Based on risk score %.1f", reason, risk.RiskScore),
		RiskAssessment:          risk,
		RecommendedSLA:          slaMapping[priority],
		StakeholdersToNotify:    determineStakeholders(priority, category),
		ImmediateActionsRequired: priority == incident.PriorityCritical || priority == incident.PriorityHigh,
	}
}

func priorityForRiskScore(score float64) incident.Priority {
	switch {
	case score >= 8.0:
		return incident.PriorityCritical
	case score >= 6.0:
		return incident.PriorityHigh
	case score >= 4.0:
		return incident.PriorityMedium
	case score >= 2.0:
		return incident.PriorityLow
	default:
		return incident.PriorityInformational
	}
}

// determineStakeholders builds priority-based plus category-specific
// notification lists, deduplicated while preserving insertion order.
func determineStakeholders(priority incident.Priority, category incident.Category) []string {
	var ordered []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			ordered = append(ordered, name)
		}
	}

	add("security_team")
	switch priority {
	case incident.PriorityCritical:
		add("security_manager")
		add("operations_manager")
		add("general_manager")
	case incident.PriorityHigh:
		add("security_manager")
		add("operations_manager")
	case incident.PriorityMedium:
		add("security_manager")
	}

	for _, s := range categoryStakeholders[category] {
		add(s)
	}
	return ordered
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const riskAssessmentSystemPrompt = `You are a hospitality security risk analyst. Score the incident's risk 0-10 and respond with JSON only: {"risk_score","risk_factors","potential_impact","likelihood_score","confidence_score"}.`

func riskAssessmentUserPrompt(category incident.Category, meta incident.Metadata) string {
	return fmt.Sprintf("CATEGORY: %s\nTITLE: %s\nDESCRIPTION: %s\nLOCATION: %s\nESTIMATED LOSS: %.2f",
		category, meta.Title, meta.Description, meta.Location, meta.EstimatedLossRupees)
}

const prioritizationSystemPrompt = `You are a hospitality security triage lead assigning incident priority (critical, high, medium, low, informational). Respond with JSON only: {"priority","reasoning","recommended_sla"}.`

func prioritizationUserPrompt(category incident.Category, risk RiskAssessment) string {
	return fmt.Sprintf("CATEGORY: %s\nRISK SCORE: %.1f/10\nRISK FACTORS: %v\nLIKELIHOOD: %.1f/10",
		category, risk.RiskScore, risk.RiskFactors, risk.LikelihoodScore)
}
