// Package incident defines the core data model threaded through the
// triage workflow: an Incident, the playbook and plan attached to it,
// and the history/checkpoint records derived from it.
package incident

import "time"

// Priority mirrors the banding produced by the prioritization tool.
type Priority string

const (
	PriorityCritical      Priority = "critical"
	PriorityHigh          Priority = "high"
	PriorityMedium        Priority = "medium"
	PriorityLow           Priority = "low"
	PriorityInformational Priority = "informational"
)

// Category is the classification tool's output label.
type Category string

const (
	CategoryGuestAccess     Category = "guest_access"
	CategoryPaymentFraud    Category = "payment_fraud"
	CategoryPIIBreach       Category = "pii_breach"
	CategoryOpsSecurity     Category = "ops_security"
	CategoryVendorAccess    Category = "vendor_access"
	CategoryPhysicalSecurity Category = "physical_security"
	CategoryCyberSecurity   Category = "cyber_security"
	CategoryCompliance      Category = "compliance"
)

// ComplianceFramework is one of the regulatory regimes the compliance
// checker can flag an incident against.
type ComplianceFramework string

const (
	FrameworkDPDP    ComplianceFramework = "dpdp"
	FrameworkGDPR    ComplianceFramework = "gdpr"
	FrameworkPCIDSS  ComplianceFramework = "pci_dss"
	FrameworkCCPA    ComplianceFramework = "ccpa"
	FrameworkSOX     ComplianceFramework = "sox"
	FrameworkHIPAA   ComplianceFramework = "hipaa"
)

// Status tracks where an incident currently sits in the workflow.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusInProgress       Status = "in_progress"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusResolved         Status = "resolved"
	StatusFailed           Status = "failed"
)

// Metadata is the immutable-after-submission description of what
// happened, supplied by the caller that opened the incident.
type Metadata struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Source         string            `json:"source"`
	OccurredAt     time.Time         `json:"occurred_at"`
	Location       string            `json:"location,omitempty"`
	GuestCount     int               `json:"guest_count,omitempty"`
	SystemCount    int               `json:"system_count,omitempty"`
	EstimatedLossRupees float64      `json:"estimated_loss_rupees,omitempty"`
	// PropertyType carries forward-compatible per-property historical
	// success context. Not yet consumed by the autonomy scorer — see
	// SPEC_FULL.md Open Question 1.
	PropertyType string            `json:"property_type,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// ToolResult captures one tool adapter's output against an incident,
// recorded exactly once per incident (checkpoint replay never
// re-invokes a tool that has already produced a result).
type ToolResult struct {
	Tool       string                 `json:"tool"`
	Recorded   time.Time              `json:"recorded"`
	Confidence float64                `json:"confidence"`
	Data       map[string]any         `json:"data"`
}

// InterventionRequest is an open ask for a human decision, created by
// the workflow's human-approval gate.
type InterventionRequest struct {
	ID          string    `json:"id"`
	RequestType string    `json:"request_type"`
	Reason      string    `json:"reason"`
	Requested   time.Time `json:"requested"`
	Resolved    bool      `json:"resolved"`
	Approved    bool      `json:"approved"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  string    `json:"resolved_by,omitempty"`
	Note        string    `json:"note,omitempty"`
}

// ActionType names the kind of remediation step a plan action performs.
type ActionType string

const (
	ActionTypeAccessRevoke     ActionType = "access_revoke"
	ActionTypeAccessGrant      ActionType = "access_grant"
	ActionTypeNotification     ActionType = "notification"
	ActionTypeAccountLock      ActionType = "account_lock"
	ActionTypeEvidencePreserve ActionType = "evidence_preserve"
	ActionTypeComplianceFile   ActionType = "compliance_file"
)

// FailurePolicy tells the executor what to do with an action's
// dependents when the action itself fails.
type FailurePolicy string

const (
	// FailurePolicyBlock cancels every dependent action.
	FailurePolicyBlock FailurePolicy = "block"
	// FailurePolicyProceed lets dependents run as if the action had
	// succeeded.
	FailurePolicyProceed FailurePolicy = "proceed"
	// FailurePolicyEscalate cancels dependents and re-enters the
	// workflow's human-approval gate.
	FailurePolicyEscalate FailurePolicy = "escalate"
)

// Action is one step of a DecisionPlan.
type Action struct {
	ID               string        `json:"id"`
	Type             ActionType    `json:"type"`
	System           string        `json:"system"`
	Description      string        `json:"description"`
	DependsOn        []string      `json:"depends_on,omitempty"`
	RollbackPossible bool          `json:"rollback_possible"`
	Timeout          time.Duration `json:"timeout"`
	FailurePolicy    FailurePolicy `json:"failure_policy"`
}

// DecisionPlan is one candidate remediation plan scored by the decision
// engine; the selected plan's actions are what the executor runs.
type DecisionPlan struct {
	ID               string    `json:"id"`
	PlaybookID       string    `json:"playbook_id"`
	Actions          []Action  `json:"actions"`
	EffectivenessScore float64 `json:"effectiveness_score"`
	EfficiencyScore    float64 `json:"efficiency_score"`
	RiskMitigationScore float64 `json:"risk_mitigation_score"`
	ComplexityScore    float64 `json:"complexity_score"`
	ResourceScore      float64 `json:"resource_score"`
	TotalScore         float64 `json:"total_score"`
	RequiresApproval   bool    `json:"requires_approval"`
}

// Playbook is a catalog entry describing the canned response to a
// category of incident.
type Playbook struct {
	ID                      string        `json:"id"`
	Category                Category      `json:"category"`
	Name                    string        `json:"name"`
	RequiredActions         []ActionType  `json:"required_actions"`
	BaseTimeout             time.Duration `json:"base_timeout"`
	NotifyExecutivesAtRisk  float64       `json:"notify_executives_at_risk"`
}

// ActionResult is the executor's record of one action's outcome.
type ActionResult struct {
	ActionID   string    `json:"action_id"`
	Succeeded  bool      `json:"succeeded"`
	Err        string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	RolledBack bool      `json:"rolled_back"`
}

// HistoryRecord is one append-only audit entry persisted for an
// incident: a step transition, a tool result, or an action outcome.
type HistoryRecord struct {
	IncidentID string    `json:"incident_id"`
	Sequence   int       `json:"sequence"`
	Step       string    `json:"step"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	At         time.Time `json:"at"`
}

// Checkpoint is a persisted snapshot of an Incident taken after a
// workflow step, used to resume a suspended or crashed run.
type Checkpoint struct {
	IncidentID string    `json:"incident_id"`
	Sequence   int       `json:"sequence"`
	Step       string    `json:"step"`
	State      *Incident `json:"state"`
	TakenAt    time.Time `json:"taken_at"`
}
