package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/tools/llm"
)

// SafetyViolation is one detected issue with incident content,
// grounded on safety_guardrails.py's SafetyViolation.
type SafetyViolation struct {
	ViolationType   string
	Severity        string
	Description     string
	DetectedContent string
	Recommendation  string
}

// SafetyCheckOutput is the guardrails tool's verdict, grounded on
// safety_guardrails.py's SafetyCheckResult.
type SafetyCheckOutput struct {
	Passed              bool
	OverallRiskLevel    string
	Violations          []SafetyViolation
	ContentFlags        []string
	RequiresHumanReview bool
	ReviewReason        string
	SanitizedContent    string
	RiskFactors         []string
	Recommendations     []string
}

var piiPatterns = map[string]*regexp.Regexp{
	"credit_card": regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|3[0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
	"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"phone":       regexp.MustCompile(`(\+?[1-9]\d{1,14}|\(\d{3}\)\s?\d{3}-?\d{4}|\d{3}-?\d{3}-?\d{4})`),
	"aadhaar":     regexp.MustCompile(`\b[2-9][0-9]{3}\s?[0-9]{4}\s?[0-9]{4}\b`),
	"pan":         regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`),
	"passport":    regexp.MustCompile(`\b[A-PR-WY][1-9]\d\s?\d{4}[1-9]\b|\b[A-Z]{1,2}[0-9]{6,9}\b`),
	"ip_address":  regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
	"room_number": regexp.MustCompile(`(?i)\broom\s*[#:]?\s*(\d{3,4}[a-z]?)\b|\b\d{3,4}[a-z]?\s*room\b`),
}

// highSeverityPII gets a "high" violation severity; every other PII
// type is "medium".
var highSeverityPII = map[string]bool{"credit_card": true, "aadhaar": true, "passport": true}

var threatIndicators = map[string][]string{
	"violence":          {"attack", "assault", "violence", "threat", "weapon", "harm", "injury", "blood", "fight", "aggression", "danger", "emergency"},
	"security_breach":   {"unauthorized", "breach", "compromise", "infiltration", "intrusion", "hack", "malware", "ransomware", "phishing", "exploit"},
	"fraud":             {"fraud", "scam", "deception", "fake", "counterfeit", "forgery", "identity theft", "credit card fraud", "billing fraud"},
	"privacy_violation": {"data leak", "exposure", "unauthorized access", "privacy breach", "personal information", "confidential", "sensitive data"},
	"hospitality_threats": {"guest safety", "property damage", "theft", "burglary", "trespassing", "vandalism", "disruption", "evacuation", "lockdown"},
}

var inappropriateKeywords = []string{"discriminat", "harassment", "threat", "violence", "illegal", "unauthorized", "malicious", "harmful"}

// SafetyGuardrails runs content validation, PII detection, and threat
// scoring against an incident description before it is allowed to
// proceed automatically.
type SafetyGuardrails struct {
	base
	llm llm.Client
}

// NewSafetyGuardrails builds a SafetyGuardrails checker.
func NewSafetyGuardrails(client llm.Client, timeout time.Duration, recorder Recorder) *SafetyGuardrails {
	return &SafetyGuardrails{base: newBase("safety_guardrails", timeout, recorder), llm: client}
}

// Check runs the safety pipeline against description, escalating to
// the LLM for a fuller review when the deterministic checks surface
// anything, the risk score is elevated, or the category always
// requires one.
func (s *SafetyGuardrails) Check(ctx context.Context, description string, category incident.Category, riskScore float64) (SafetyCheckOutput, error) {
	var out SafetyCheckOutput
	_, err := s.invoke(ctx, func(ctx context.Context) (float64, error) {
		out = s.checkLocked(ctx, description, category, riskScore)
		return 1.0, nil
	})
	if err != nil {
		return SafetyCheckOutput{}, incident.Wrap(incident.KindToolFailure, err, false)
	}
	return out, nil
}

func (s *SafetyGuardrails) checkLocked(ctx context.Context, description string, category incident.Category, riskScore float64) SafetyCheckOutput {
	violations := s.checkContentSafety(description)
	piiViolations := s.detectPIIExposure(description)
	threatViolations := s.assessThreatIndicators(description, category)
	all := append(append(violations, piiViolations...), threatViolations...)

	needsLLM := riskScore >= 6.0 || len(all) > 0 || category == incident.CategoryPIIBreach || category == incident.CategoryCyberSecurity
	if s.llm != nil && needsLLM {
		if extra, ok := s.llmAssessment(ctx, description, category, riskScore); ok {
			all = append(all, extra...)
		} else {
			all = append(all, SafetyViolation{
				ViolationType:  "assessment_error",
				Severity:       "high",
				Description:    "Safety assessment failed to parse",
				Recommendation: "Manual safety review required",
			})
		}
	}

	var critical, high int
	for _, v := range all {
		switch v.Severity {
		case "critical":
			critical++
		case "high":
			high++
		}
	}

	riskLevel := "low"
	switch {
	case critical > 0:
		riskLevel = "critical"
	case high > 0:
		riskLevel = "high"
	case len(all) > 0:
		riskLevel = "medium"
	}

	requiresReview := critical > 0 || high > 2 || riskScore >= 8.0 || category == incident.CategoryPIIBreach
	reason := ""
	switch {
	case critical > 0:
		reason = "Critical safety violations detected"
	case high > 2:
		reason = "Multiple high-severity safety concerns require review"
	case riskScore >= 8.0:
		reason = fmt.Sprintf("High risk score (%.1f/10) requires human oversight", riskScore)
	case category == incident.CategoryPIIBreach:
		reason = "PII breach incidents require mandatory human review"
	}

	sanitized := ""
	if len(piiViolations) > 0 {
		sanitized = SanitizeText(description)
	}

	flags := make([]string, 0, len(all))
	factors := make([]string, 0, len(all))
	for _, v := range all {
		flags = append(flags, v.ViolationType)
		factors = append(factors, v.ViolationType)
	}

	return SafetyCheckOutput{
		Passed:              critical == 0,
		OverallRiskLevel:    riskLevel,
		Violations:          all,
		ContentFlags:        dedupe(flags),
		RequiresHumanReview: requiresReview,
		ReviewReason:        reason,
		SanitizedContent:    sanitized,
		RiskFactors:         factors,
		Recommendations:     generateSafetyRecommendations(all, category, riskScore),
	}
}

func (s *SafetyGuardrails) llmAssessment(ctx context.Context, description string, category incident.Category, riskScore float64) ([]SafetyViolation, bool) {
	raw, err := s.llm.CompleteJSON(ctx, safetySystemPrompt, safetyUserPrompt(description, category, riskScore))
	if err != nil {
		return nil, false
	}
	var parsed struct {
		Violations []struct {
			ViolationType   string `json:"violation_type"`
			Severity        string `json:"severity"`
			Description     string `json:"description"`
			DetectedContent string `json:"detected_content"`
			Recommendation  string `json:"recommendation"`
		} `json:"violations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	out := make([]SafetyViolation, 0, len(parsed.Violations))
	for _, v := range parsed.Violations {
		out = append(out, SafetyViolation{
			ViolationType:   v.ViolationType,
			Severity:        v.Severity,
			Description:     v.Description,
			DetectedContent: v.DetectedContent,
			Recommendation:  v.Recommendation,
		})
	}
	return out, true
}

func (s *SafetyGuardrails) checkContentSafety(content string) []SafetyViolation {
	lower := strings.ToLower(content)
	var violations []SafetyViolation
	for _, kw := range inappropriateKeywords {
		if strings.Contains(lower, kw) {
			violations = append(violations, SafetyViolation{
				ViolationType:   "inappropriate_content",
				Severity:        "medium",
				Description:     fmt.Sprintf("Potentially inappropriate content detected: %s", kw),
				DetectedContent: kw,
				Recommendation:  "Review content for appropriateness",
			})
		}
	}
	return violations
}

func (s *SafetyGuardrails) detectPIIExposure(content string) []SafetyViolation {
	var violations []SafetyViolation
	for _, piiType := range orderedPIITypes() {
		matches := piiPatterns[piiType].FindAllString(content, -1)
		if len(matches) == 0 {
			continue
		}
		severity := "medium"
		if highSeverityPII[piiType] {
			severity = "high"
		}
		label := strings.ReplaceAll(piiType, "_", " ")
		violations = append(violations, SafetyViolation{
			ViolationType:   "pii_exposure_" + piiType,
			Severity:        severity,
			Description:     fmt.Sprintf("Potential %s exposure detected", label),
			DetectedContent: fmt.Sprintf("%d instances found", len(matches)),
			Recommendation:  fmt.Sprintf("Redact or mask %s information", label),
		})
	}
	return violations
}

func (s *SafetyGuardrails) assessThreatIndicators(content string, category incident.Category) []SafetyViolation {
	lower := strings.ToLower(content)
	var violations []SafetyViolation
	for _, threatType := range orderedThreatTypes() {
		count := 0
		for _, indicator := range threatIndicators[threatType] {
			if strings.Contains(lower, indicator) {
				count++
			}
		}
		if count == 0 {
			continue
		}

		severity := "medium"
		switch {
		case threatType == "violence" || count >= 3:
			severity = "critical"
		case (threatType == "security_breach" || threatType == "fraud") &&
			(category == incident.CategoryCyberSecurity || category == incident.CategoryPaymentFraud):
			severity = "high"
		}

		label := strings.ReplaceAll(threatType, "_", " ")
		violations = append(violations, SafetyViolation{
			ViolationType:   "threat_indicator_" + threatType,
			Severity:        severity,
			Description:     fmt.Sprintf("Threat indicators detected: %s", label),
			DetectedContent: fmt.Sprintf("%d indicators found", count),
			Recommendation:  fmt.Sprintf("Assess and respond to %s indicators", label),
		})
	}
	return violations
}

// SanitizeText masks detected PII, keeping the first four and last
// four digits of a credit-card number and the first character plus
// domain of an email address; every other PII type is fully masked.
func SanitizeText(content string) string {
	sanitized := content
	for _, piiType := range orderedPIITypes() {
		sanitized = piiPatterns[piiType].ReplaceAllStringFunc(sanitized, func(match string) string {
			switch piiType {
			case "credit_card":
				if len(match) >= 8 {
					return match[:4] + strings.Repeat("*", len(match)-8) + match[len(match)-4:]
				}
				return strings.Repeat("*", len(match))
			case "email":
				parts := strings.SplitN(match, "@", 2)
				if len(parts) == 2 && len(parts[0]) > 0 {
					return string(parts[0][0]) + strings.Repeat("*", len(parts[0])-1) + "@" + parts[1]
				}
				return strings.Repeat("*", len(match))
			default:
				return strings.Repeat("*", len(match))
			}
		})
	}
	// Later patterns (phone, aadhaar) also match the digits a masked card
	// keeps. Every mask preserves length, so those digits are restored
	// from the card spans found in the original content.
	out := []byte(sanitized)
	for _, loc := range piiPatterns["credit_card"].FindAllStringIndex(content, -1) {
		if loc[1]-loc[0] >= 8 {
			copy(out[loc[0]:], content[loc[0]:loc[0]+4])
			copy(out[loc[1]-4:], content[loc[1]-4:loc[1]])
		}
	}
	return string(out)
}

func generateSafetyRecommendations(violations []SafetyViolation, category incident.Category, riskScore float64) []string {
	var recs []string
	for _, v := range violations {
		if v.Severity == "critical" {
			recs = append(recs, "Immediate escalation required for critical safety violations")
			break
		}
	}
	for _, v := range violations {
		if strings.Contains(v.ViolationType, "pii_exposure") {
			recs = append(recs, "Implement PII redaction and data minimization procedures", "Review data handling policies and staff training")
			break
		}
	}
	for _, v := range violations {
		if strings.Contains(v.ViolationType, "threat_indicator") {
			recs = append(recs, "Activate threat response procedures", "Coordinate with security team for threat assessment")
			break
		}
	}
	if category == incident.CategoryPIIBreach {
		recs = append(recs, "Conduct privacy impact assessment", "Review data protection compliance requirements")
	}
	if category == incident.CategoryCyberSecurity {
		recs = append(recs, "Implement cyber security incident response plan", "Isolate affected systems pending investigation")
	}
	if riskScore >= 8.0 {
		recs = append(recs, "Executive notification required for high-risk incident", "Consider external expert consultation")
	}
	return dedupe(recs)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

func orderedPIITypes() []string {
	return []string{"credit_card", "email", "phone", "aadhaar", "pan", "passport", "ip_address", "room_number"}
}

func orderedThreatTypes() []string {
	return []string{"violence", "security_breach", "fraud", "privacy_violation", "hospitality_threats"}
}

const safetySystemPrompt = `You are a hospitality security safety analyst. Assess the incident for safety risks, PII exposure, and threat content. Respond with JSON only: {"violations": [{"violation_type","severity","description","detected_content","recommendation"}]}.`

func safetyUserPrompt(description string, category incident.Category, riskScore float64) string {
	return fmt.Sprintf("DESCRIPTION: %s\nCATEGORY: %s\nRISK SCORE: %.1f/10", description, category, riskScore)
}
