package config

import "time"

// EngineConfig is the fully-resolved configuration for a running
// triage engine instance.
type EngineConfig struct {
	Workflow   WorkflowConfig  `yaml:"workflow" validate:"required"`
	Store      StoreConfig     `yaml:"store" validate:"required"`
	Session    SessionConfig   `yaml:"session" validate:"required"`
	RateLimits []RateLimitRule `yaml:"rate_limits"`
	Logging    LoggingConfig   `yaml:"logging"`
	LLM        LLMConfig       `yaml:"llm"`
	External   ExternalConfig  `yaml:"external"`
	Tracing    TracingConfig   `yaml:"tracing"`
}

// TracingConfig controls the OpenTelemetry tracer provider registered at
// startup for pkg/workflow node spans and pkg/external client spans.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// ExternalConfig configures the REST endpoints pkg/external dispatches
// remediation actions against.
type ExternalConfig struct {
	AccessControl EndpointConfig `yaml:"access_control"`
	PMS           EndpointConfig `yaml:"pms"`
	Notifications EndpointConfig `yaml:"notifications"`
}

// EndpointConfig mirrors pkg/external.EndpointConfig's shape so it can
// be populated straight from YAML/env without that package needing
// validator/koanf struct tags of its own.
type EndpointConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// WorkflowConfig tunes the engine's worker pool and checkpoint cadence.
type WorkflowConfig struct {
	WorkerCount         int           `yaml:"worker_count" validate:"min=1"`
	QueueDepth          int           `yaml:"queue_depth" validate:"min=1"`
	CheckpointEvery     int           `yaml:"checkpoint_every_step" validate:"min=1"`
	SuspendPollInterval time.Duration `yaml:"suspend_poll_interval"`
	AuditRetentionDays  int           `yaml:"audit_retention_days"`
}

// StoreConfig selects and configures the persistent store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Backend                   string        `yaml:"backend" validate:"oneof=memory redis"`
	Addr                      string        `yaml:"addr"`
	TTL                       time.Duration `yaml:"ttl"`
	MaxCheckpointsPerIncident int           `yaml:"max_checkpoints_per_incident" validate:"min=1"`
}

// RateLimitRule configures the token bucket for one destination system.
type RateLimitRule struct {
	System         string        `yaml:"system" validate:"required"`
	RequestsPerMin int           `yaml:"requests_per_min" validate:"min=1"`
	Burst          int           `yaml:"burst" validate:"min=1"`
	Timeout        time.Duration `yaml:"timeout"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=simple verbose"`
}

// LLMConfig configures the pkg/tools/llm collaborator.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Defaults returns a config safe to run against an in-memory session
// store and a local sqlite file, suitable for development and tests.
func Defaults() *EngineConfig {
	return &EngineConfig{
		Workflow: WorkflowConfig{
			WorkerCount:         16,
			QueueDepth:          1024,
			CheckpointEvery:     1,
			SuspendPollInterval: 2 * time.Second,
			AuditRetentionDays:  0,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "file:triage.db?_foreign_keys=on",
		},
		Session: SessionConfig{
			Backend:                   "memory",
			TTL:                       24 * time.Hour,
			MaxCheckpointsPerIncident: 50,
		},
		RateLimits: []RateLimitRule{
			{System: "pms", RequestsPerMin: 60, Burst: 10, Timeout: 10 * time.Second},
			{System: "access_control", RequestsPerMin: 30, Burst: 5, Timeout: 10 * time.Second},
			{System: "notifications", RequestsPerMin: 120, Burst: 20, Timeout: 5 * time.Second},
		},
		Logging: LoggingConfig{Level: "info", Format: "simple"},
		LLM:     LLMConfig{Provider: "genai", Model: "gemini-2.0-flash", RequestTimeout: 30 * time.Second},
		External: ExternalConfig{
			AccessControl: EndpointConfig{BaseURL: "http://localhost:9001", Timeout: 10 * time.Second},
			PMS:           EndpointConfig{BaseURL: "http://localhost:9002", Timeout: 10 * time.Second},
			Notifications: EndpointConfig{BaseURL: "http://localhost:9003", Timeout: 5 * time.Second},
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "triage-engine",
			SamplingRate: 1.0,
		},
	}
}
