// Package store is the durable, queryable record of every incident the
// engine has ever handled: the five-table schema of spec.md §4.6
// (incidents, incident_history, incident_analytics, compliance_events,
// performance_metrics) over database/sql via sqlx, grounded on
// persistent_storage.py's _create_tables/_create_indexes.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver selects the SQL dialect. Postgres is the production driver;
// SQLite serves local development and tests (both are teacher
// dependencies - see DESIGN.md).
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Store wraps a *sqlx.DB with the dialect-specific SQL this package
// needs (autoincrement syntax, upsert syntax, placeholder style).
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// Open connects to dsn using driver and verifies the connection.
func Open(driver Driver, dsn string) (*Store, error) {
	sqlDriver := "postgres"
	if driver == DriverSQLite {
		sqlDriver = "sqlite3"
	}

	db, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the five tables and their indexes if they do not
// already exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) autoincrementPK() string {
	if s.driver == DriverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (s *Store) schemaStatements() []string {
	pk := s.autoincrementPK()
	return []string{
		`CREATE TABLE IF NOT EXISTS incidents (
			incident_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT,
			priority TEXT,
			status TEXT DEFAULT 'active',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			resolved_at TIMESTAMP,
			risk_score REAL,
			classification_confidence REAL,
			processing_time_seconds REAL,
			human_interventions INTEGER DEFAULT 0,
			workflow_steps_completed INTEGER DEFAULT 0,
			workflow_steps_failed INTEGER DEFAULT 0,
			metadata_json TEXT DEFAULT '{}',
			tool_results_json TEXT DEFAULT '{}',
			response_plan_json TEXT DEFAULT '{}',
			quality_scores_json TEXT DEFAULT '{}',
			compliance_frameworks TEXT DEFAULT '',
			safety_violations INTEGER DEFAULT 0,
			requires_followup BOOLEAN DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_category ON incidents (category)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_priority ON incidents (priority)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents (status)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_created_at ON incidents (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_risk_score ON incidents (risk_score)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS incident_history (
			id %s,
			incident_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			change_type TEXT NOT NULL,
			change_data TEXT,
			FOREIGN KEY (incident_id) REFERENCES incidents (incident_id)
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_history_incident_id ON incident_history (incident_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_timestamp ON incident_history (timestamp)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS incident_analytics (
			id %s,
			date_bucket TEXT NOT NULL,
			bucket_type TEXT NOT NULL,
			category TEXT,
			priority TEXT,
			total_incidents INTEGER DEFAULT 0,
			resolved_incidents INTEGER DEFAULT 0,
			escalated_incidents INTEGER DEFAULT 0,
			avg_processing_time REAL,
			avg_risk_score REAL,
			avg_quality_score REAL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(date_bucket, bucket_type, category, priority)
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_analytics_date_bucket ON incident_analytics (date_bucket)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS compliance_events (
			id %s,
			incident_id TEXT NOT NULL,
			framework TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_timestamp TIMESTAMP NOT NULL,
			event_data TEXT DEFAULT '{}',
			compliance_status TEXT,
			FOREIGN KEY (incident_id) REFERENCES incidents (incident_id)
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_compliance_incident ON compliance_events (incident_id)`,
		`CREATE INDEX IF NOT EXISTS idx_compliance_framework ON compliance_events (framework)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS performance_metrics (
			id %s,
			incident_id TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			metric_value REAL NOT NULL,
			metric_timestamp TIMESTAMP NOT NULL,
			metric_context TEXT DEFAULT '{}',
			FOREIGN KEY (incident_id) REFERENCES incidents (incident_id)
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_metrics_incident ON performance_metrics (incident_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_name ON performance_metrics (metric_name)`,
	}
}
