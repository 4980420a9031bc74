package incident

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// Incident is the single mutable record threaded through the workflow
// engine, tool adapters, decision engine, and executor. All mutation
// goes through its methods so completed/failed step lists and pending
// approvals stay consistent with each other.
type Incident struct {
	mu sync.RWMutex

	id       string
	metadata Metadata
	status   Status

	currentStep    string
	completedSteps []string
	failedSteps    []string

	toolResults map[string]ToolResult

	interventions  []InterventionRequest
	riskScore      float64
	priority       Priority
	category       Category
	categoryConf   float64
	frameworks     []ComplianceFramework

	plan       *DecisionPlan
	actionLog  []ActionResult

	createdAt time.Time
	updatedAt time.Time
}

// New creates a freshly submitted Incident. id must already be unique
// (callers generate it, typically via google/uuid, before calling New).
func New(id string, meta Metadata) *Incident {
	now := time.Now()
	return &Incident{
		id:             id,
		metadata:       meta,
		status:         StatusSubmitted,
		completedSteps: []string{},
		failedSteps:    []string{},
		toolResults:    map[string]ToolResult{},
		createdAt:      now,
		updatedAt:      now,
	}
}

func (inc *Incident) ID() string { return inc.id }

func (inc *Incident) Metadata() Metadata {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.metadata
}

func (inc *Incident) Status() Status {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.status
}

func (inc *Incident) CurrentStep() string {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.currentStep
}

func (inc *Incident) CompletedSteps() []string {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	out := make([]string, len(inc.completedSteps))
	copy(out, inc.completedSteps)
	return out
}

func (inc *Incident) FailedSteps() []string {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	out := make([]string, len(inc.failedSteps))
	copy(out, inc.failedSteps)
	return out
}

// UpdateStep marks currentStep as completed (if one was set) and
// advances to next, matching IncidentState.update_step: a step is
// recorded as completed only once it is left, never on entry.
func (inc *Incident) UpdateStep(next string) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.currentStep != "" {
		inc.completedSteps = append(inc.completedSteps, inc.currentStep)
	}
	inc.currentStep = next
	inc.status = StatusInProgress
	inc.updatedAt = time.Now()
}

// MarkStepFailed records the current step as failed without advancing;
// callers re-raise the originating error after calling this.
func (inc *Incident) MarkStepFailed(reason string) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.failedSteps = append(inc.failedSteps, inc.currentStep)
	inc.status = StatusFailed
	inc.updatedAt = time.Now()
}

// AdvanceAfterFailure moves to next without marking the current step
// completed - used when the current step was just recorded failed by
// MarkStepFailed, so it must not also land in completedSteps
// (completed_steps and failed_steps stay disjoint).
func (inc *Incident) AdvanceAfterFailure(next string) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.currentStep = next
	inc.updatedAt = time.Now()
}

// Finish flushes the current step into completedSteps (a terminal node
// has no successor step to trigger the usual UpdateStep flush) and
// sets the final status, unless the run already failed.
func (inc *Incident) Finish(status Status) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.currentStep != "" {
		inc.completedSteps = append(inc.completedSteps, inc.currentStep)
	}
	if inc.status != StatusFailed {
		inc.status = status
	}
	inc.updatedAt = time.Now()
}

// AddToolResult records a tool's output exactly once per tool name.
// Re-recording under the same name overwrites — callers must check
// HasToolResult before invoking a tool on checkpoint replay.
func (inc *Incident) AddToolResult(tool string, confidence float64, data map[string]any) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.toolResults[tool] = ToolResult{Tool: tool, Recorded: time.Now(), Confidence: confidence, Data: data}
	inc.updatedAt = time.Now()
}

func (inc *Incident) HasToolResult(tool string) bool {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	_, ok := inc.toolResults[tool]
	return ok
}

func (inc *Incident) ToolResult(tool string) (ToolResult, bool) {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	r, ok := inc.toolResults[tool]
	return r, ok
}

// RequestIntervention opens a pending human-approval request and
// suspends the incident.
func (inc *Incident) RequestIntervention(requestType, reason string) InterventionRequest {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	req := InterventionRequest{
		ID:          requestID(inc.id, len(inc.interventions)),
		RequestType: requestType,
		Reason:      reason,
		Requested:   time.Now(),
	}
	inc.interventions = append(inc.interventions, req)
	inc.status = StatusAwaitingApproval
	inc.updatedAt = time.Now()
	return req
}

// ApproveIntervention resolves the named pending request. approved
// false records a rejection, not an error.
func (inc *Incident) ApproveIntervention(requestID string, approved bool, by, note string) bool {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	for i := range inc.interventions {
		if inc.interventions[i].ID == requestID && !inc.interventions[i].Resolved {
			inc.interventions[i].Resolved = true
			inc.interventions[i].Approved = approved
			inc.interventions[i].ResolvedAt = time.Now()
			inc.interventions[i].ResolvedBy = by
			inc.interventions[i].Note = note
			if inc.hasUnresolvedLocked() {
				inc.status = StatusAwaitingApproval
			} else {
				inc.status = StatusInProgress
			}
			inc.updatedAt = time.Now()
			return true
		}
	}
	return false
}

func (inc *Incident) hasUnresolvedLocked() bool {
	for _, r := range inc.interventions {
		if !r.Resolved {
			return true
		}
	}
	return false
}

func (inc *Incident) PendingInterventions() []InterventionRequest {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	var out []InterventionRequest
	for _, r := range inc.interventions {
		if !r.Resolved {
			out = append(out, r)
		}
	}
	return out
}

func (inc *Incident) SetClassification(cat Category, confidence float64) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.category = cat
	inc.categoryConf = confidence
	inc.updatedAt = time.Now()
}

func (inc *Incident) Classification() (Category, float64) {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.category, inc.categoryConf
}

func (inc *Incident) SetPriority(p Priority, riskScore float64) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.priority = p
	inc.riskScore = riskScore
	inc.updatedAt = time.Now()
}

func (inc *Incident) Priority() (Priority, float64) {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.priority, inc.riskScore
}

func (inc *Incident) SetFrameworks(fw []ComplianceFramework) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.frameworks = fw
	inc.updatedAt = time.Now()
}

func (inc *Incident) Frameworks() []ComplianceFramework {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	out := make([]ComplianceFramework, len(inc.frameworks))
	copy(out, inc.frameworks)
	return out
}

func (inc *Incident) SetPlan(p *DecisionPlan) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.plan = p
	inc.updatedAt = time.Now()
}

func (inc *Incident) Plan() *DecisionPlan {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.plan
}

func (inc *Incident) RecordAction(r ActionResult) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.actionLog = append(inc.actionLog, r)
	inc.updatedAt = time.Now()
}

func (inc *Incident) ActionLog() []ActionResult {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	out := make([]ActionResult, len(inc.actionLog))
	copy(out, inc.actionLog)
	return out
}

func (inc *Incident) SetStatus(s Status) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.status = s
	inc.updatedAt = time.Now()
}

func (inc *Incident) UpdatedAt() time.Time {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return inc.updatedAt
}

func (inc *Incident) CreatedAt() time.Time { return inc.createdAt }

func requestID(incidentID string, n int) string {
	return incidentID + "-hitl-" + strconv.Itoa(n)
}

// incidentWire is the on-the-wire shape of an Incident, used only by
// MarshalJSON/UnmarshalJSON since every field above is unexported.
// RedisStore needs this to checkpoint an Incident at all; the in-process
// MemoryStore never serializes and so never exercises this path.
type incidentWire struct {
	ID             string                 `json:"id"`
	Metadata       Metadata               `json:"metadata"`
	Status         Status                 `json:"status"`
	CurrentStep    string                 `json:"current_step"`
	CompletedSteps []string               `json:"completed_steps"`
	FailedSteps    []string               `json:"failed_steps"`
	ToolResults    map[string]ToolResult  `json:"tool_results"`
	Interventions  []InterventionRequest  `json:"interventions"`
	RiskScore      float64                `json:"risk_score"`
	Priority       Priority               `json:"priority"`
	Category       Category               `json:"category"`
	CategoryConf   float64                `json:"category_confidence"`
	Frameworks     []ComplianceFramework  `json:"frameworks"`
	Plan           *DecisionPlan          `json:"plan"`
	ActionLog      []ActionResult         `json:"action_log"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (inc *Incident) MarshalJSON() ([]byte, error) {
	inc.mu.RLock()
	defer inc.mu.RUnlock()
	return json.Marshal(incidentWire{
		ID:             inc.id,
		Metadata:       inc.metadata,
		Status:         inc.status,
		CurrentStep:    inc.currentStep,
		CompletedSteps: inc.completedSteps,
		FailedSteps:    inc.failedSteps,
		ToolResults:    inc.toolResults,
		Interventions:  inc.interventions,
		RiskScore:      inc.riskScore,
		Priority:       inc.priority,
		Category:       inc.category,
		CategoryConf:   inc.categoryConf,
		Frameworks:     inc.frameworks,
		Plan:           inc.plan,
		ActionLog:      inc.actionLog,
		CreatedAt:      inc.createdAt,
		UpdatedAt:      inc.updatedAt,
	})
}

func (inc *Incident) UnmarshalJSON(data []byte) error {
	var w incidentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.id = w.ID
	inc.metadata = w.Metadata
	inc.status = w.Status
	inc.currentStep = w.CurrentStep
	inc.completedSteps = w.CompletedSteps
	inc.failedSteps = w.FailedSteps
	inc.toolResults = w.ToolResults
	if inc.toolResults == nil {
		inc.toolResults = map[string]ToolResult{}
	}
	inc.interventions = w.Interventions
	inc.riskScore = w.RiskScore
	inc.priority = w.Priority
	inc.category = w.Category
	inc.categoryConf = w.CategoryConf
	inc.frameworks = w.Frameworks
	inc.plan = w.Plan
	inc.actionLog = w.ActionLog
	inc.createdAt = w.CreatedAt
	inc.updatedAt = w.UpdatedAt
	return nil
}
