package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/memory"
)

// IncidentRow is the flat row representation of an incident.Incident,
// grounded on persistent_storage.py's IncidentRecord dataclass.
type IncidentRow struct {
	IncidentID               string       `db:"incident_id"`
	Title                    string       `db:"title"`
	Description              string       `db:"description"`
	Category                 string       `db:"category"`
	Priority                 string       `db:"priority"`
	Status                   string       `db:"status"`
	CreatedAt                time.Time    `db:"created_at"`
	UpdatedAt                time.Time    `db:"updated_at"`
	ResolvedAt               sql.NullTime `db:"resolved_at"`
	RiskScore                float64      `db:"risk_score"`
	ClassificationConfidence float64      `db:"classification_confidence"`
	ProcessingTimeSeconds    float64      `db:"processing_time_seconds"`
	HumanInterventions       int          `db:"human_interventions"`
	WorkflowStepsCompleted   int          `db:"workflow_steps_completed"`
	WorkflowStepsFailed      int          `db:"workflow_steps_failed"`
	MetadataJSON             string       `db:"metadata_json"`
	ToolResultsJSON          string       `db:"tool_results_json"`
	ResponsePlanJSON         string       `db:"response_plan_json"`
	QualityScoresJSON        string       `db:"quality_scores_json"`
	ComplianceFrameworks     string       `db:"compliance_frameworks"`
	SafetyViolations         int          `db:"safety_violations"`
	RequiresFollowup         bool         `db:"requires_followup"`
}

// rowFromIncident flattens an Incident through its exported accessors;
// it never touches unexported fields directly.
func rowFromIncident(inc *incident.Incident) (IncidentRow, error) {
	meta := inc.Metadata()
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return IncidentRow{}, fmt.Errorf("store: marshal metadata: %w", err)
	}

	toolResults := map[string]incident.ToolResult{}
	for _, tool := range []string{"classification", "prioritization", "playbook_selection", "response_generation", "safety_guardrails", "compliance_check"} {
		if r, ok := inc.ToolResult(tool); ok {
			toolResults[tool] = r
		}
	}
	toolJSON, err := json.Marshal(toolResults)
	if err != nil {
		return IncidentRow{}, fmt.Errorf("store: marshal tool results: %w", err)
	}

	plan := inc.Plan()
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return IncidentRow{}, fmt.Errorf("store: marshal plan: %w", err)
	}

	actionLog := inc.ActionLog()
	qualityJSON, err := json.Marshal(actionLog)
	if err != nil {
		return IncidentRow{}, fmt.Errorf("store: marshal action log: %w", err)
	}

	category, classificationConf := inc.Classification()
	priority, riskScore := inc.Priority()
	frameworks := inc.Frameworks()
	fwNames := make([]string, len(frameworks))
	for i, fw := range frameworks {
		fwNames[i] = string(fw)
	}

	var resolvedAt sql.NullTime
	status := inc.Status()
	if status == incident.StatusResolved || status == incident.StatusFailed {
		resolvedAt = sql.NullTime{Time: inc.UpdatedAt(), Valid: true}
	}

	safetyViolations := 0
	for _, r := range toolResults {
		if r.Tool == "safety_guardrails" {
			if v, ok := r.Data["violations"].([]string); ok {
				safetyViolations = len(v)
			}
		}
	}

	return IncidentRow{
		IncidentID:               inc.ID(),
		Title:                    meta.Title,
		Description:              meta.Description,
		Category:                 string(category),
		Priority:                 string(priority),
		Status:                   string(status),
		CreatedAt:                inc.CreatedAt(),
		UpdatedAt:                inc.UpdatedAt(),
		ResolvedAt:               resolvedAt,
		RiskScore:                riskScore,
		ClassificationConfidence: classificationConf,
		ProcessingTimeSeconds:    inc.UpdatedAt().Sub(inc.CreatedAt()).Seconds(),
		HumanInterventions:       len(inc.PendingInterventions()),
		WorkflowStepsCompleted:   len(inc.CompletedSteps()),
		WorkflowStepsFailed:      len(inc.FailedSteps()),
		MetadataJSON:             string(metaJSON),
		ToolResultsJSON:          string(toolJSON),
		ResponsePlanJSON:         string(planJSON),
		QualityScoresJSON:        string(qualityJSON),
		ComplianceFrameworks:     strings.Join(fwNames, ","),
		SafetyViolations:         safetyViolations,
		RequiresFollowup:         status == incident.StatusAwaitingApproval,
	}, nil
}

const incidentColumns = `incident_id, title, description, category, priority, status,
	created_at, updated_at, resolved_at, risk_score, classification_confidence,
	processing_time_seconds, human_interventions, workflow_steps_completed,
	workflow_steps_failed, metadata_json, tool_results_json, response_plan_json,
	quality_scores_json, compliance_frameworks, safety_violations, requires_followup`

// SaveIncident upserts the incident's current state, grounded on
// persistent_storage.py's store_incident (insert-or-update by
// incident_id).
func (s *Store) SaveIncident(ctx context.Context, inc *incident.Incident) error {
	row, err := rowFromIncident(inc)
	if err != nil {
		return err
	}

	var stmt string
	switch s.driver {
	case DriverPostgres:
		stmt = `INSERT INTO incidents (` + incidentColumns + `)
			VALUES (:incident_id, :title, :description, :category, :priority, :status,
				:created_at, :updated_at, :resolved_at, :risk_score, :classification_confidence,
				:processing_time_seconds, :human_interventions, :workflow_steps_completed,
				:workflow_steps_failed, :metadata_json, :tool_results_json, :response_plan_json,
				:quality_scores_json, :compliance_frameworks, :safety_violations, :requires_followup)
			ON CONFLICT (incident_id) DO UPDATE SET
				title = EXCLUDED.title, description = EXCLUDED.description,
				category = EXCLUDED.category, priority = EXCLUDED.priority, status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at, resolved_at = EXCLUDED.resolved_at,
				risk_score = EXCLUDED.risk_score, classification_confidence = EXCLUDED.classification_confidence,
				processing_time_seconds = EXCLUDED.processing_time_seconds,
				human_interventions = EXCLUDED.human_interventions,
				workflow_steps_completed = EXCLUDED.workflow_steps_completed,
				workflow_steps_failed = EXCLUDED.workflow_steps_failed,
				metadata_json = EXCLUDED.metadata_json, tool_results_json = EXCLUDED.tool_results_json,
				response_plan_json = EXCLUDED.response_plan_json, quality_scores_json = EXCLUDED.quality_scores_json,
				compliance_frameworks = EXCLUDED.compliance_frameworks,
				safety_violations = EXCLUDED.safety_violations, requires_followup = EXCLUDED.requires_followup`
	default:
		stmt = `INSERT INTO incidents (` + incidentColumns + `)
			VALUES (:incident_id, :title, :description, :category, :priority, :status,
				:created_at, :updated_at, :resolved_at, :risk_score, :classification_confidence,
				:processing_time_seconds, :human_interventions, :workflow_steps_completed,
				:workflow_steps_failed, :metadata_json, :tool_results_json, :response_plan_json,
				:quality_scores_json, :compliance_frameworks, :safety_violations, :requires_followup)
			ON CONFLICT (incident_id) DO UPDATE SET
				title = excluded.title, description = excluded.description,
				category = excluded.category, priority = excluded.priority, status = excluded.status,
				updated_at = excluded.updated_at, resolved_at = excluded.resolved_at,
				risk_score = excluded.risk_score, classification_confidence = excluded.classification_confidence,
				processing_time_seconds = excluded.processing_time_seconds,
				human_interventions = excluded.human_interventions,
				workflow_steps_completed = excluded.workflow_steps_completed,
				workflow_steps_failed = excluded.workflow_steps_failed,
				metadata_json = excluded.metadata_json, tool_results_json = excluded.tool_results_json,
				response_plan_json = excluded.response_plan_json, quality_scores_json = excluded.quality_scores_json,
				compliance_frameworks = excluded.compliance_frameworks,
				safety_violations = excluded.safety_violations, requires_followup = excluded.requires_followup`
	}

	if _, err := s.db.NamedExecContext(ctx, stmt, row); err != nil {
		return fmt.Errorf("store: save incident %s: %w", inc.ID(), err)
	}
	return s.recordHistoryLocked(ctx, inc.ID(), "state_saved", row.Status)
}

// GetIncident returns the stored row for incidentID, not an
// incident.Incident - callers that need the live object reconstruct it
// from checkpoint.Manager instead; this is the query-side projection
// used by search, analytics, and the API surface.
func (s *Store) GetIncident(ctx context.Context, incidentID string) (*IncidentRow, error) {
	var row IncidentRow
	query := s.db.Rebind(`SELECT ` + incidentColumns + ` FROM incidents WHERE incident_id = $1`)
	err := s.db.GetContext(ctx, &row, query, incidentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get incident %s: %w", incidentID, err)
	}
	return &row, nil
}

// SearchFilter narrows SearchIncidents; zero-value fields are ignored.
type SearchFilter struct {
	Category string
	Priority string
	Status   string
	Since    time.Time
	Limit    int
}

// SearchIncidents filters incidents by the supplied criteria, grounded
// on persistent_storage.py's search_incidents.
func (s *Store) SearchIncidents(ctx context.Context, f SearchFilter) ([]IncidentRow, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	var args []any
	arg := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if f.Category != "" {
		arg("category", f.Category)
	}
	if f.Priority != "" {
		arg("priority", f.Priority)
	}
	if f.Status != "" {
		arg("status", f.Status)
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	query = s.db.Rebind(query)
	var rows []IncidentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("store: search incidents: %w", err)
	}
	return rows, nil
}

// ListOpenIncidentIDs satisfies checkpoint.RecoverableIncidentIDs:
// incidents not yet resolved or failed are candidates for startup
// recovery.
func (s *Store) ListOpenIncidentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT incident_id FROM incidents WHERE status NOT IN ('resolved', 'failed') ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list open incidents: %w", err)
	}
	return ids, nil
}

// ListClosedSince returns a summary projection of resolved/failed
// incidents since cutoff, the input the memory pattern analyzers
// consume.
func (s *Store) ListClosedSince(ctx context.Context, cutoff time.Time) ([]memory.IncidentSummary, error) {
	rows, err := s.SearchIncidents(ctx, SearchFilter{Since: cutoff})
	if err != nil {
		return nil, err
	}

	out := make([]memory.IncidentSummary, 0, len(rows))
	for _, row := range rows {
		if row.Status != string(incident.StatusResolved) && row.Status != string(incident.StatusFailed) {
			continue
		}
		var meta incident.Metadata
		_ = json.Unmarshal([]byte(row.MetadataJSON), &meta)
		out = append(out, memory.IncidentSummary{
			IncidentID:         row.IncidentID,
			Category:           row.Category,
			Location:           meta.Location,
			CreatedAt:          row.CreatedAt,
			RiskScore:          row.RiskScore,
			HumanInterventions: row.HumanInterventions,
		})
	}
	return out, nil
}

// RecordHistory appends one audit entry for an incident, grounded on
// persistent_storage.py's _record_incident_history. Sequence numbers
// are assigned by counting existing rows for the incident.
func (s *Store) RecordHistory(ctx context.Context, rec incident.HistoryRecord) error {
	return s.recordHistoryLocked(ctx, rec.IncidentID, rec.Kind, rec.Detail)
}

func (s *Store) recordHistoryLocked(ctx context.Context, incidentID, changeType, changeData string) error {
	var seq int
	err := s.db.GetContext(ctx, &seq,
		s.db.Rebind(`SELECT COUNT(*) FROM incident_history WHERE incident_id = $1`), incidentID)
	if err != nil {
		return fmt.Errorf("store: sequence history %s: %w", incidentID, err)
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO incident_history (incident_id, sequence, timestamp, change_type, change_data)
			VALUES ($1, $2, $3, $4, $5)`),
		incidentID, seq, time.Now(), changeType, changeData)
	if err != nil {
		return fmt.Errorf("store: record history %s: %w", incidentID, err)
	}
	return nil
}

// GetHistory returns every history row for an incident in sequence
// order.
func (s *Store) GetHistory(ctx context.Context, incidentID string) ([]incident.HistoryRecord, error) {
	type historyRow struct {
		IncidentID string    `db:"incident_id"`
		Sequence   int       `db:"sequence"`
		Timestamp  time.Time `db:"timestamp"`
		ChangeType string    `db:"change_type"`
		ChangeData string    `db:"change_data"`
	}
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT incident_id, sequence, timestamp, change_type, change_data
			FROM incident_history WHERE incident_id = $1 ORDER BY sequence`), incidentID)
	if err != nil {
		return nil, fmt.Errorf("store: get history %s: %w", incidentID, err)
	}

	out := make([]incident.HistoryRecord, len(rows))
	for i, r := range rows {
		out[i] = incident.HistoryRecord{
			IncidentID: r.IncidentID,
			Sequence:   r.Sequence,
			Kind:       r.ChangeType,
			Detail:     r.ChangeData,
			At:         r.Timestamp,
		}
	}
	return out, nil
}

// CleanupOldRecords deletes incident_history and performance_metrics
// rows timestamped before cutoff, for every incident whatever its
// status, grounded on persistent_storage.py's cleanup_old_records.
// Incident rows and compliance_events rows are not deleted.
func (s *Store) CleanupOldRecords(ctx context.Context, cutoff time.Time) error {
	stmts := []string{
		`DELETE FROM incident_history WHERE timestamp < $1`,
		`DELETE FROM performance_metrics WHERE metric_timestamp < $1`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(stmt), cutoff); err != nil {
			return fmt.Errorf("store: cleanup old records: %w", err)
		}
	}
	return nil
}
