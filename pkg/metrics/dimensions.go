// Package metrics scores each terminated incident against spec.md
// §4.7's seven weighted evaluation dimensions and its ROI formula, and
// exports the results as Prometheus gauges - grounded on
// evaluation/metrics_tracker.py's PerformanceMetrics/QualityMetrics and
// business/impact_tracker.py's IncidentROI.
package metrics

import (
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
)

// Dimensions is one incident's score on each of spec.md §4.7's seven
// axes, each in [0, 1].
type Dimensions struct {
	Accuracy     float64
	Completeness float64
	Timeliness   float64
	Safety       float64
	Compliance   float64
	Efficiency   float64
	Quality      float64
}

// Dimension weights, summing to 1.0, per spec.md §4.7's defaults.
const (
	weightAccuracy     = 0.20
	weightCompleteness = 0.18
	weightTimeliness   = 0.15
	weightSafety       = 0.20
	weightCompliance   = 0.15
	weightEfficiency   = 0.07
	weightQuality      = 0.05
)

// Overall returns the weighted sum of d's seven dimensions.
func (d Dimensions) Overall() float64 {
	return weightAccuracy*d.Accuracy +
		weightCompleteness*d.Completeness +
		weightTimeliness*d.Timeliness +
		weightSafety*d.Safety +
		weightCompliance*d.Compliance +
		weightEfficiency*d.Efficiency +
		weightQuality*d.Quality
}

// Grade bands the overall score into a letter grade, per spec.md
// §4.7: A >= 0.9, B >= 0.8, C >= 0.7, D >= 0.6, F otherwise.
func (d Dimensions) Grade() string {
	switch overall := d.Overall(); {
	case overall >= 0.9:
		return "A"
	case overall >= 0.8:
		return "B"
	case overall >= 0.7:
		return "C"
	case overall >= 0.6:
		return "D"
	default:
		return "F"
	}
}

// slaByPriority mirrors spec.md §4.7's SLA table (critical 15m, high
// 1h, medium 4h, low 24h, informational 72h).
var slaByPriority = map[incident.Priority]time.Duration{
	incident.PriorityCritical:      15 * time.Minute,
	incident.PriorityHigh:          time.Hour,
	incident.PriorityMedium:        4 * time.Hour,
	incident.PriorityLow:           24 * time.Hour,
	incident.PriorityInformational: 72 * time.Hour,
}

// timelinessScore bands elapsed against the priority's SLA: 1.0 at or
// under 50% of the SLA, 0.9 up to 100%, 0.7 up to 150%, 0.5 up to
// 200%, 0.2 beyond that.
func timelinessScore(priority incident.Priority, elapsed time.Duration) float64 {
	sla, ok := slaByPriority[priority]
	if !ok || sla <= 0 {
		sla = 4 * time.Hour
	}
	ratio := float64(elapsed) / float64(sla)
	switch {
	case ratio <= 0.5:
		return 1.0
	case ratio <= 1.0:
		return 0.9
	case ratio <= 1.5:
		return 0.7
	case ratio <= 2.0:
		return 0.5
	default:
		return 0.2
	}
}

// efficiencyScore combines automation rate (penalized 0.2 per human
// intervention, floored at 0) with the workflow's step success ratio,
// per spec.md §4.7.
func efficiencyScore(humanInterventions int, completedSteps, failedSteps int) float64 {
	automationRate := 1.0 - 0.2*float64(humanInterventions)
	if automationRate < 0 {
		automationRate = 0
	}

	total := completedSteps + failedSteps
	stepSuccessRatio := 1.0
	if total > 0 {
		stepSuccessRatio = float64(completedSteps) / float64(total)
	}

	return automationRate * stepSuccessRatio
}
