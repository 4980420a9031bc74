package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ComplianceEvent is one compliance-framework-relevant occurrence
// against an incident - a notification filed, a deadline missed, a
// determination made - grounded on persistent_storage.py's
// record_compliance_event.
type ComplianceEvent struct {
	IncidentID        string
	Framework         string
	EventType         string
	Timestamp         time.Time
	Data              map[string]any
	ComplianceStatus  string
}

// RecordComplianceEvent inserts one compliance_events row.
func (s *Store) RecordComplianceEvent(ctx context.Context, ev ComplianceEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("store: marshal compliance event data: %w", err)
	}

	stmt := s.db.Rebind(`INSERT INTO compliance_events
		(incident_id, framework, event_type, event_timestamp, event_data, compliance_status)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	_, err = s.db.ExecContext(ctx, stmt, ev.IncidentID, ev.Framework, ev.EventType, ev.Timestamp, string(data), ev.ComplianceStatus)
	if err != nil {
		return fmt.Errorf("store: record compliance event %s: %w", ev.IncidentID, err)
	}
	return nil
}

// ComplianceEventsForIncident returns every compliance event recorded
// against incidentID, most recent first.
func (s *Store) ComplianceEventsForIncident(ctx context.Context, incidentID string) ([]ComplianceEvent, error) {
	type row struct {
		IncidentID       string    `db:"incident_id"`
		Framework        string    `db:"framework"`
		EventType        string    `db:"event_type"`
		EventTimestamp   time.Time `db:"event_timestamp"`
		EventData        string    `db:"event_data"`
		ComplianceStatus string    `db:"compliance_status"`
	}
	var rows []row
	stmt := s.db.Rebind(`SELECT incident_id, framework, event_type, event_timestamp, event_data, compliance_status
		FROM compliance_events WHERE incident_id = $1 ORDER BY event_timestamp DESC`)
	if err := s.db.SelectContext(ctx, &rows, stmt, incidentID); err != nil {
		return nil, fmt.Errorf("store: compliance events for %s: %w", incidentID, err)
	}

	out := make([]ComplianceEvent, len(rows))
	for i, r := range rows {
		var data map[string]any
		_ = json.Unmarshal([]byte(r.EventData), &data)
		out[i] = ComplianceEvent{
			IncidentID:       r.IncidentID,
			Framework:        r.Framework,
			EventType:        r.EventType,
			Timestamp:        r.EventTimestamp,
			Data:             data,
			ComplianceStatus: r.ComplianceStatus,
		}
	}
	return out, nil
}
