package workflow

import (
	"time"

	"github.com/sentinelstay/triage/pkg/checkpoint"
	"github.com/sentinelstay/triage/pkg/decision"
	"github.com/sentinelstay/triage/pkg/executor"
	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/memory"
	"github.com/sentinelstay/triage/pkg/store"
	"github.com/sentinelstay/triage/pkg/tools"
)

// MetricsRecorder receives the final state of every completed run. It
// is declared locally - not imported from pkg/metrics - so pkg/metrics
// can depend on pkg/workflow's result types without an import cycle.
type MetricsRecorder interface {
	RecordIncident(snap IncidentSnapshot)
}

// Deps aggregates every collaborator a node may call. A *Deps is shared
// read-only across all in-flight incidents; none of its fields mutate
// after construction.
type Deps struct {
	Classifier        *tools.Classifier
	SafetyGuardrails  *tools.SafetyGuardrails
	ComplianceChecker *tools.ComplianceChecker
	Prioritizer       *tools.Prioritizer
	PlaybookSelector  *tools.PlaybookSelector
	ResponseGenerator *tools.ResponseGenerator

	RiskAssessor      *decision.RiskAssessor
	ImpactCalculator  *decision.BusinessImpactCalculator
	AutonomyAssessor  *decision.AutonomyAssessor
	PlanOptimizer     *decision.PlanOptimizer

	Executor  *executor.Engine
	Retriever *memory.Retriever

	// Store persists final state and audit history. Nil is valid - a
	// workflow can run without a persistent store, e.g. in tests.
	Store *store.Store

	// Notifier delivers stakeholder notifications from the "notify"
	// node, distinct from any notification actions the plan itself
	// schedules through Executor.
	Notifier external.System

	Checkpoints *checkpoint.Manager
	Metrics     MetricsRecorder

	// WorkflowTimeout bounds an entire run's wall-clock time, per
	// spec.md §5 (default 30 minutes).
	WorkflowTimeout time.Duration

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
