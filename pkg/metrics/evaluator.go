package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/workflow"
)

// Result is one incident's final scorecard: its seven-dimension grade
// plus the ROI accounting, kept together so a caller can retrieve both
// with one Evaluator.Result lookup.
type Result struct {
	IncidentID string
	Category   incident.Category
	Priority   incident.Priority
	Status     incident.Status
	Dimensions Dimensions
	ROI        ROI
}

// Evaluator implements workflow.MetricsRecorder: it scores every
// terminated incident against spec.md §4.7's seven weighted
// dimensions and ROI formula, keeps the latest Result per incident for
// query, and exports running aggregates as Prometheus gauges -
// grounded on pkg/observability/metrics.go's registration idiom.
type Evaluator struct {
	mu      sync.RWMutex
	results map[string]Result

	overall      *prometheus.GaugeVec
	dimension    *prometheus.GaugeVec
	roiPercent   *prometheus.GaugeVec
	costAvoided  *prometheus.GaugeVec
	gradeCounter *prometheus.CounterVec
	evaluated    prometheus.Counter
}

// NewEvaluator builds an Evaluator and registers its gauges against
// registry. Passing nil creates a private registry, matching
// observability.NewMetrics' behavior when metrics are disabled -
// callers that want no Prometheus dependency can still use Evaluator's
// RecordIncident/Result methods without scraping anything.
func NewEvaluator(registry *prometheus.Registry) *Evaluator {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Evaluator{
		results: make(map[string]Result),
		overall: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "triage",
			Subsystem: "evaluation",
			Name:      "overall_score",
			Help:      "Weighted overall evaluation score for the most recently terminated incident, by category and priority.",
		}, []string{"category", "priority"}),
		dimension: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "triage",
			Subsystem: "evaluation",
			Name:      "dimension_score",
			Help:      "Per-dimension evaluation score for the most recently terminated incident.",
		}, []string{"dimension", "category"}),
		roiPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "triage",
			Subsystem: "roi",
			Name:      "percent",
			Help:      "ROI percentage ((returns - investment) / investment) for the most recently terminated incident.",
		}, []string{"category"}),
		costAvoided: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "triage",
			Subsystem: "roi",
			Name:      "cost_avoidance_rupees",
			Help:      "Estimated cost avoidance in rupees for the most recently terminated incident.",
		}, []string{"category"}),
		gradeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "evaluation",
			Name:      "grades_total",
			Help:      "Total number of incidents evaluated, by letter grade.",
		}, []string{"grade"}),
		evaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "evaluation",
			Name:      "incidents_total",
			Help:      "Total number of incidents scored.",
		}),
	}

	registry.MustRegister(e.overall, e.dimension, e.roiPercent, e.costAvoided, e.gradeCounter, e.evaluated)
	return e
}

// RecordIncident implements workflow.MetricsRecorder. It is called
// from the "update-metrics" node once a run reaches a terminal state.
func (e *Evaluator) RecordIncident(snap workflow.IncidentSnapshot) {
	result := e.score(snap)

	e.mu.Lock()
	e.results[snap.IncidentID] = result
	e.mu.Unlock()

	category := string(snap.Category)
	e.overall.WithLabelValues(category, string(snap.Priority)).Set(result.Dimensions.Overall())
	e.dimension.WithLabelValues("accuracy", category).Set(result.Dimensions.Accuracy)
	e.dimension.WithLabelValues("completeness", category).Set(result.Dimensions.Completeness)
	e.dimension.WithLabelValues("timeliness", category).Set(result.Dimensions.Timeliness)
	e.dimension.WithLabelValues("safety", category).Set(result.Dimensions.Safety)
	e.dimension.WithLabelValues("compliance", category).Set(result.Dimensions.Compliance)
	e.dimension.WithLabelValues("efficiency", category).Set(result.Dimensions.Efficiency)
	e.dimension.WithLabelValues("quality", category).Set(result.Dimensions.Quality)
	e.roiPercent.WithLabelValues(category).Set(result.ROI.Percent)
	e.costAvoided.WithLabelValues(category).Set(result.ROI.Returns.CostAvoidance)
	e.gradeCounter.WithLabelValues(result.Dimensions.Grade()).Inc()
	e.evaluated.Inc()
}

// Result returns the most recently recorded scorecard for an
// incident, if any.
func (e *Evaluator) Result(incidentID string) (Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.results[incidentID]
	return r, ok
}

// score computes dimensions and ROI for a terminated incident's
// snapshot, per spec.md §4.7.
func (e *Evaluator) score(snap workflow.IncidentSnapshot) Result {
	resolvedAt := snap.ResolvedAt
	elapsed := resolvedAt.Sub(snap.SubmittedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	totalSteps := len(snap.CompletedSteps) + len(snap.FailedSteps)
	completeness := 1.0
	if totalSteps > 0 {
		completeness = float64(len(snap.CompletedSteps)) / float64(totalSteps)
	}

	safety := 0.0
	if snap.SafetyPassed {
		safety = 1.0
	}
	compliance := 0.0
	switch {
	case snap.ComplianceSatisfied:
		compliance = 1.0
	case snap.RequiresLegalReview:
		// Escalating to legal review when warranted is the correct,
		// safety-first outcome even though it isn't a clean pass.
		compliance = 0.6
	}

	quality := 1.0
	if snap.Status == incident.StatusFailed {
		quality = 0.4
	}

	dims := Dimensions{
		Accuracy:     snap.ClassificationConfidence,
		Completeness: completeness,
		Timeliness:   timelinessScore(snap.Priority, elapsed),
		Safety:       safety,
		Compliance:   compliance,
		Efficiency:   efficiencyScore(snap.HumanInterventions, len(snap.CompletedSteps), len(snap.FailedSteps)),
		Quality:      quality,
	}

	roi := calculateROI(roiInputs{
		category:            snap.Category,
		priority:            snap.Priority,
		guestsAffected:      snap.GuestsAffected,
		systemsAffected:     snap.SystemsAffected,
		estimatedLossRupees: snap.EstimatedLossRupees,
		humanInterventions:  snap.HumanInterventions,
		plannedActions:      snap.PlannedActions,
		successfulActions:   snap.SuccessfulActions,
		requiresLegalReview: snap.RequiresLegalReview,
		complianceSatisfied: snap.ComplianceSatisfied,
	})

	return Result{
		IncidentID: snap.IncidentID,
		Category:   snap.Category,
		Priority:   snap.Priority,
		Status:     snap.Status,
		Dimensions: dims,
		ROI:        roi,
	}
}
