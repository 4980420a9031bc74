package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PerformanceMetric is one named measurement recorded against an
// incident - processing latency, quality score, ROI - grounded on
// persistent_storage.py's record_performance_metric.
type PerformanceMetric struct {
	IncidentID string
	Name       string
	Value      float64
	Timestamp  time.Time
	Context    map[string]any
}

// RecordPerformanceMetric inserts one performance_metrics row.
func (s *Store) RecordPerformanceMetric(ctx context.Context, m PerformanceMetric) error {
	data, err := json.Marshal(m.Context)
	if err != nil {
		return fmt.Errorf("store: marshal metric context: %w", err)
	}

	stmt := s.db.Rebind(`INSERT INTO performance_metrics
		(incident_id, metric_name, metric_value, metric_timestamp, metric_context)
		VALUES ($1, $2, $3, $4, $5)`)
	_, err = s.db.ExecContext(ctx, stmt, m.IncidentID, m.Name, m.Value, m.Timestamp, string(data))
	if err != nil {
		return fmt.Errorf("store: record performance metric %s/%s: %w", m.IncidentID, m.Name, err)
	}
	return nil
}

// AverageMetric returns the mean value of metric name recorded since
// cutoff across all incidents, or 0 when none was recorded.
func (s *Store) AverageMetric(ctx context.Context, name string, cutoff time.Time) (float64, error) {
	var avg float64
	stmt := s.db.Rebind(`SELECT COALESCE(AVG(metric_value), 0) FROM performance_metrics
		WHERE metric_name = $1 AND metric_timestamp >= $2`)
	if err := s.db.GetContext(ctx, &avg, stmt, name, cutoff); err != nil {
		return 0, fmt.Errorf("store: average metric %s: %w", name, err)
	}
	return avg, nil
}

// AnalyticsBucket is one aggregated rollup row, grounded on
// persistent_storage.py's _generate_analytics.
type AnalyticsBucket struct {
	DateBucket         string
	BucketType         string
	Category           string
	Priority           string
	TotalIncidents      int
	ResolvedIncidents   int
	EscalatedIncidents  int
	AvgProcessingTime  float64
	AvgRiskScore       float64
	AvgQualityScore    float64
}

// RefreshDailyAnalytics recomputes the daily incident_analytics rollup
// for dateBucket (format "2006-01-02") from the incidents table.
func (s *Store) RefreshDailyAnalytics(ctx context.Context, dateBucket string) error {
	type agg struct {
		Category           string  `db:"category"`
		Priority           string  `db:"priority"`
		Total              int     `db:"total"`
		Resolved           int     `db:"resolved"`
		Escalated          int     `db:"escalated"`
		AvgProcessingTime  float64 `db:"avg_processing_time"`
		AvgRiskScore       float64 `db:"avg_risk_score"`
	}

	var aggs []agg
	stmt := s.db.Rebind(`SELECT category, priority,
		COUNT(*) as total,
		SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END) as resolved,
		SUM(CASE WHEN human_interventions > 0 THEN 1 ELSE 0 END) as escalated,
		COALESCE(AVG(processing_time_seconds), 0) as avg_processing_time,
		COALESCE(AVG(risk_score), 0) as avg_risk_score
		FROM incidents WHERE substr(created_at, 1, 10) = $1
		GROUP BY category, priority`)
	if err := s.db.SelectContext(ctx, &aggs, stmt, dateBucket); err != nil {
		return fmt.Errorf("store: aggregate analytics %s: %w", dateBucket, err)
	}

	upsert := s.analyticsUpsertStatement()
	for _, a := range aggs {
		_, err := s.db.ExecContext(ctx, s.db.Rebind(upsert),
			dateBucket, "daily", a.Category, a.Priority,
			a.Total, a.Resolved, a.Escalated, a.AvgProcessingTime, a.AvgRiskScore, 0.0, time.Now())
		if err != nil {
			return fmt.Errorf("store: upsert analytics %s/%s: %w", a.Category, a.Priority, err)
		}
	}
	return nil
}

func (s *Store) analyticsUpsertStatement() string {
	conflictClause := "ON CONFLICT (date_bucket, bucket_type, category, priority)"
	setClause := "total_incidents = $5, resolved_incidents = $6, escalated_incidents = $7, avg_processing_time = $8, avg_risk_score = $9, avg_quality_score = $10, updated_at = $11"
	if s.driver != DriverPostgres {
		setClause = "total_incidents = excluded.total_incidents, resolved_incidents = excluded.resolved_incidents, escalated_incidents = excluded.escalated_incidents, avg_processing_time = excluded.avg_processing_time, avg_risk_score = excluded.avg_risk_score, avg_quality_score = excluded.avg_quality_score, updated_at = excluded.updated_at"
	}
	return `INSERT INTO incident_analytics
		(date_bucket, bucket_type, category, priority, total_incidents, resolved_incidents, escalated_incidents, avg_processing_time, avg_risk_score, avg_quality_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		` + conflictClause + ` DO UPDATE SET ` + setClause
}

// GetAnalytics returns the daily rollup rows for dateBucket.
func (s *Store) GetAnalytics(ctx context.Context, dateBucket string) ([]AnalyticsBucket, error) {
	type row struct {
		DateBucket         string  `db:"date_bucket"`
		BucketType         string  `db:"bucket_type"`
		Category           string  `db:"category"`
		Priority           string  `db:"priority"`
		TotalIncidents     int     `db:"total_incidents"`
		ResolvedIncidents  int     `db:"resolved_incidents"`
		EscalatedIncidents int     `db:"escalated_incidents"`
		AvgProcessingTime  float64 `db:"avg_processing_time"`
		AvgRiskScore       float64 `db:"avg_risk_score"`
		AvgQualityScore    float64 `db:"avg_quality_score"`
	}
	var rows []row
	stmt := s.db.Rebind(`SELECT date_bucket, bucket_type, category, priority, total_incidents,
		resolved_incidents, escalated_incidents, avg_processing_time, avg_risk_score, avg_quality_score
		FROM incident_analytics WHERE date_bucket = $1`)
	if err := s.db.SelectContext(ctx, &rows, stmt, dateBucket); err != nil {
		return nil, fmt.Errorf("store: get analytics %s: %w", dateBucket, err)
	}

	out := make([]AnalyticsBucket, len(rows))
	for i, r := range rows {
		out[i] = AnalyticsBucket{
			DateBucket:         r.DateBucket,
			BucketType:         r.BucketType,
			Category:           r.Category,
			Priority:           r.Priority,
			TotalIncidents:     r.TotalIncidents,
			ResolvedIncidents:  r.ResolvedIncidents,
			EscalatedIncidents: r.EscalatedIncidents,
			AvgProcessingTime:  r.AvgProcessingTime,
			AvgRiskScore:       r.AvgRiskScore,
			AvgQualityScore:    r.AvgQualityScore,
		}
	}
	return out, nil
}
