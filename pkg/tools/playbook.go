package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools/llm"
)

// PlaybookOutput is the selector's answer for one incident, grounded
// on playbook_selector.py's PlaybookSelectionResult.
type PlaybookOutput struct {
	Playbook                incident.Playbook
	SelectionReasoning      string
	CustomizationNotes      []string
	EstimatedCompletionTime time.Duration
}

// playbookCatalog holds the canned response for each category the
// original catalog defines; categories absent here (vendor_access,
// compliance) fall back to the operational-security playbook exactly
// as the Python catalog does when no entry matches.
var playbookCatalog = map[incident.Category]incident.Playbook{
	incident.CategoryGuestAccess: {
		ID:                     "guest_access_standard",
		Category:               incident.CategoryGuestAccess,
		Name:                   "Guest Access Incident Response",
		RequiredActions:        []incident.ActionType{incident.ActionTypeAccessRevoke, incident.ActionTypeNotification, incident.ActionTypeComplianceFile},
		BaseTimeout:            30 * time.Minute,
		NotifyExecutivesAtRisk: 8.0,
	},
	incident.CategoryPaymentFraud: {
		ID:                     "payment_fraud_response",
		Category:               incident.CategoryPaymentFraud,
		Name:                   "Payment Fraud Incident Response",
		RequiredActions:        []incident.ActionType{incident.ActionTypeAccountLock, incident.ActionTypeEvidencePreserve, incident.ActionTypeNotification, incident.ActionTypeComplianceFile},
		BaseTimeout:            15 * time.Minute,
		NotifyExecutivesAtRisk: 8.0,
	},
	incident.CategoryPIIBreach: {
		ID:                     "pii_breach_response",
		Category:               incident.CategoryPIIBreach,
		Name:                   "Personal Data Breach Response",
		RequiredActions:        []incident.ActionType{incident.ActionTypeAccessRevoke, incident.ActionTypeEvidencePreserve, incident.ActionTypeNotification, incident.ActionTypeComplianceFile},
		BaseTimeout:            30 * time.Minute,
		NotifyExecutivesAtRisk: 7.0,
	},
	incident.CategoryCyberSecurity: {
		ID:                     "cybersecurity_response",
		Category:               incident.CategoryCyberSecurity,
		Name:                   "Cybersecurity Incident Response",
		RequiredActions:        []incident.ActionType{incident.ActionTypeAccountLock, incident.ActionTypeEvidencePreserve, incident.ActionTypeNotification, incident.ActionTypeComplianceFile},
		BaseTimeout:            15 * time.Minute,
		NotifyExecutivesAtRisk: 8.0,
	},
	incident.CategoryPhysicalSecurity: {
		ID:                     "physical_security",
		Category:               incident.CategoryPhysicalSecurity,
		Name:                   "Physical Security Incident Response",
		RequiredActions:        []incident.ActionType{incident.ActionTypeAccessRevoke, incident.ActionTypeEvidencePreserve, incident.ActionTypeNotification},
		BaseTimeout:            15 * time.Minute,
		NotifyExecutivesAtRisk: 9.0,
	},
	incident.CategoryOpsSecurity: {
		ID:                     "operational_security",
		Category:               incident.CategoryOpsSecurity,
		Name:                   "Operational Security Incident Response",
		RequiredActions:        []incident.ActionType{incident.ActionTypeNotification, incident.ActionTypeComplianceFile},
		BaseTimeout:            60 * time.Minute,
		NotifyExecutivesAtRisk: 8.0,
	},
}

// perActionMinutes estimates completion time per required action by
// priority, grounded on playbook_selector.py's _estimate_completion_time
// base_time_per_action table.
var perActionMinutes = map[incident.Priority]time.Duration{
	incident.PriorityCritical:      15 * time.Minute,
	incident.PriorityHigh:          30 * time.Minute,
	incident.PriorityMedium:        60 * time.Minute,
	incident.PriorityLow:           120 * time.Minute,
	incident.PriorityInformational: 240 * time.Minute,
}

// PlaybookSelector picks and customizes the response playbook for an
// incident's category, priority, and risk score.
type PlaybookSelector struct {
	base
	llm llm.Client
}

// NewPlaybookSelector builds a PlaybookSelector. The llm.Client, when
// set, only supplies the human-readable selection reasoning - playbook
// choice itself is a deterministic catalog lookup, never an LLM guess.
func NewPlaybookSelector(client llm.Client, timeout time.Duration, recorder Recorder) *PlaybookSelector {
	return &PlaybookSelector{base: newBase("playbook_selection", timeout, recorder), llm: client}
}

// Select returns the customized playbook for category/priority/risk.
func (s *PlaybookSelector) Select(ctx context.Context, category incident.Category, priority incident.Priority, risk RiskAssessment) (PlaybookOutput, error) {
	var out PlaybookOutput
	_, err := s.invoke(ctx, func(ctx context.Context) (float64, error) {
		out = s.selectLocked(ctx, category, priority, risk)
		return 1.0, nil
	})
	if err != nil {
		return PlaybookOutput{}, incident.Wrap(incident.KindToolFailure, err, false)
	}
	return out, nil
}

func (s *PlaybookSelector) selectLocked(ctx context.Context, category incident.Category, priority incident.Priority, risk RiskAssessment) PlaybookOutput {
	playbook, ok := playbookCatalog[category]
	if !ok {
		playbook = playbookCatalog[incident.CategoryOpsSecurity]
	}

	var notes []string
	playbook.BaseTimeout = scaleTimeout(playbook.BaseTimeout, priority)

	if risk.RiskScore >= playbook.NotifyExecutivesAtRisk {
		if !hasAction(playbook.RequiredActions, incident.ActionTypeNotification) {
			playbook.RequiredActions = append(playbook.RequiredActions, incident.ActionTypeNotification)
		}
		notes = append(notes, "executive_notification_added")
	}

	reasoning := fmt.Sprintf("Selected %s based on category %s", playbook.Name, category)
	if s.llm != nil {
		if raw, err := s.llm.CompleteJSON(ctx, playbookSystemPrompt, playbookUserPrompt(category, priority, risk, playbook)); err == nil {
			var parsed struct {
				Reasoning string `json:"reasoning"`
			}
			if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil && parsed.Reasoning != "" {
				reasoning = parsed.Reasoning
			}
		}
	}

	minutesPerAction, ok := perActionMinutes[priority]
	if !ok {
		minutesPerAction = time.Hour
	}

	return PlaybookOutput{
		Playbook:                playbook,
		SelectionReasoning:      reasoning,
		CustomizationNotes:      notes,
		EstimatedCompletionTime: minutesPerAction * time.Duration(len(playbook.RequiredActions)),
	}
}

// scaleTimeout halves critical-incident timeouts (floor 5 minutes) and
// doubles low/informational timeouts (cap 8 hours), per
// playbook_selector.py's _customize_playbook.
func scaleTimeout(base time.Duration, priority incident.Priority) time.Duration {
	switch priority {
	case incident.PriorityCritical:
		scaled := base / 2
		if scaled < 5*time.Minute {
			return 5 * time.Minute
		}
		return scaled
	case incident.PriorityLow, incident.PriorityInformational:
		scaled := base * 2
		if scaled > 8*time.Hour {
			return 8 * time.Hour
		}
		return scaled
	default:
		return base
	}
}

func hasAction(actions []incident.ActionType, want incident.ActionType) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

const playbookSystemPrompt = `You are a hospitality security incident response coordinator. Respond with JSON only: {"reasoning": "one or two sentences on why this playbook fits this incident"}.`

func playbookUserPrompt(category incident.Category, priority incident.Priority, risk RiskAssessment, playbook incident.Playbook) string {
	return fmt.Sprintf("CATEGORY: %s\nPRIORITY: %s\nRISK SCORE: %.1f/10\nPLAYBOOK: %s", category, priority, risk.RiskScore, playbook.Name)
}
