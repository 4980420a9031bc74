package memory

import (
	"fmt"
	"time"
)

// IncidentSummary is the minimal per-incident projection the pattern
// analyzers need; pkg/store.Store.ListClosedSince produces these.
type IncidentSummary struct {
	IncidentID         string
	Category           string
	Location           string
	CreatedAt          time.Time
	RiskScore          float64
	HumanInterventions int
}

// Pattern is one detected recurring characteristic across a set of
// incidents, surfaced to the response generator and the metrics
// report.
type Pattern struct {
	ID              string
	Type            string
	Description     string
	Confidence      float64
	IncidentIDs     []string
	Characteristics map[string]any
	Recommendation  string
}

// AnalyzeTemporal flags a day-of-week concentration of incidents,
// grounded on memory_retriever.py's _analyze_temporal_patterns: at
// least 10 incidents required, peak day must carry over 30% of the
// total.
func AnalyzeTemporal(incidents []IncidentSummary) *Pattern {
	if len(incidents) < 10 {
		return nil
	}

	dayCounts := make(map[string]int)
	for _, inc := range incidents {
		dayCounts[inc.CreatedAt.Weekday().String()]++
	}

	var peakDay string
	var peakCount int
	for day, count := range dayCounts {
		if count > peakCount {
			peakDay, peakCount = day, count
		}
	}

	total := len(incidents)
	if float64(peakCount) <= float64(total)*0.3 {
		return nil
	}

	return &Pattern{
		ID:              "temporal_" + peakDay,
		Type:            "temporal",
		Description:     fmt.Sprintf("Incidents peak on %s (%d/%d)", peakDay, peakCount, total),
		Confidence:      float64(peakCount) / float64(total),
		IncidentIDs:     ids(incidents),
		Characteristics: map[string]any{"peak_day": peakDay, "distribution": dayCounts},
		Recommendation:  fmt.Sprintf("Increased readiness recommended for %s", peakDay),
	}
}

// AnalyzeEscalation flags a high rate of human-intervention requests,
// grounded on _analyze_escalation_patterns: threshold 40%.
func AnalyzeEscalation(incidents []IncidentSummary) *Pattern {
	if len(incidents) == 0 {
		return nil
	}

	var escalated []IncidentSummary
	for _, inc := range incidents {
		if inc.HumanInterventions > 0 {
			escalated = append(escalated, inc)
		}
	}

	rate := float64(len(escalated)) / float64(len(incidents))
	if rate <= 0.4 {
		return nil
	}

	return &Pattern{
		ID:              "high_escalation",
		Type:            "escalation",
		Description:     fmt.Sprintf("High escalation rate: %.1f%%", rate*100),
		Confidence:      rate,
		IncidentIDs:     ids(escalated),
		Characteristics: map[string]any{"escalation_rate": rate},
		Recommendation:  "Prepare for potential escalation and human review",
	}
}

// AnalyzeCategoryRisk flags a category whose average risk score
// exceeds 7.0, grounded on _analyze_category_patterns.
func AnalyzeCategoryRisk(incidents []IncidentSummary, category string) *Pattern {
	var sum float64
	var n int
	for _, inc := range incidents {
		if inc.RiskScore > 0 {
			sum += inc.RiskScore
			n++
		}
	}
	if n == 0 {
		return nil
	}

	avg := sum / float64(n)
	if avg <= 7.0 {
		return nil
	}

	confidence := avg / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &Pattern{
		ID:              "high_risk_" + category,
		Type:            "risk",
		Description:     fmt.Sprintf("High average risk score for %s: %.1f", category, avg),
		Confidence:      confidence,
		IncidentIDs:     ids(incidents),
		Characteristics: map[string]any{"avg_risk_score": avg},
		Recommendation:  "Enhanced risk assessment and containment measures recommended",
	}
}

// AnalyzeLocation flags a location with more than two incidents,
// grounded on _analyze_location_patterns.
func AnalyzeLocation(incidents []IncidentSummary, location string) *Pattern {
	var matching []IncidentSummary
	for _, inc := range incidents {
		if inc.Location == location {
			matching = append(matching, inc)
		}
	}
	if len(matching) <= 2 {
		return nil
	}

	return &Pattern{
		ID:              "location_" + location,
		Type:            "location",
		Description:     fmt.Sprintf("Multiple incidents at %s", location),
		Confidence:      float64(len(matching)) / float64(len(incidents)),
		IncidentIDs:     ids(matching),
		Characteristics: map[string]any{"location": location, "incident_count": len(matching)},
		Recommendation:  fmt.Sprintf("Review security measures and procedures for %s", location),
	}
}

func ids(incidents []IncidentSummary) []string {
	out := make([]string, len(incidents))
	for i, inc := range incidents {
		out[i] = inc.IncidentID
	}
	return out
}
