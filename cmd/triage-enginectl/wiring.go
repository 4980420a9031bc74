package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelstay/triage/pkg/checkpoint"
	"github.com/sentinelstay/triage/pkg/config"
	"github.com/sentinelstay/triage/pkg/decision"
	"github.com/sentinelstay/triage/pkg/executor"
	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/logger"
	"github.com/sentinelstay/triage/pkg/metrics"
	"github.com/sentinelstay/triage/pkg/ratelimit"
	"github.com/sentinelstay/triage/pkg/session"
	"github.com/sentinelstay/triage/pkg/store"
	"github.com/sentinelstay/triage/pkg/tools"
	"github.com/sentinelstay/triage/pkg/tools/llm"
	"github.com/sentinelstay/triage/pkg/workflow"
)

// runContext carries the parsed top-level flags into every subcommand
// and lazily builds the shared collaborators (store, session backend,
// tool adapters, executor, workflow graph) each subcommand needs.
type runContext struct {
	cli *CLI
}

// engineStack is every long-lived collaborator a subcommand might
// touch, built once from EngineConfig.
type engineStack struct {
	cfg       *config.EngineConfig
	store     *store.Store
	evaluator *metrics.Evaluator
	engine    *workflow.Engine
	log       *slog.Logger
}

func (rc *runContext) loadConfig() (*config.EngineConfig, error) {
	return config.Load(config.LoaderOptions{Path: rc.cli.Config})
}

func (rc *runContext) initLogger() *slog.Logger {
	level, _ := logger.ParseLevel(rc.cli.LogLevel)
	out := os.Stderr
	if rc.cli.LogFile != "" {
		f, _, err := logger.OpenLogFile(rc.cli.LogFile)
		if err == nil {
			out = f
		}
	}
	logger.Init(level, out, rc.cli.LogFormat)
	return logger.GetLogger()
}

// buildStack wires every collaborator the workflow engine needs from a
// resolved EngineConfig, following cmd/hector's pattern of assembling
// collaborators in main before handing them to a long-lived runtime
// object.
func (rc *runContext) buildStack() (*engineStack, error) {
	cfg, err := rc.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := rc.initLogger()

	st, err := store.Open(store.Driver(cfg.Store.Driver), cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sessionStore, err := buildSessionStore(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("build session store: %w", err)
	}
	checkpoints := checkpoint.NewManager(sessionStore, log)

	llmClient := buildLLMClient(cfg.LLM)

	registry := external.NewRegistry(
		external.NewAccessControlClient(external.EndpointConfig(cfg.External.AccessControl)),
		external.NewPMSClient(external.EndpointConfig(cfg.External.PMS)),
		external.NewNotificationClient(external.EndpointConfig(cfg.External.Notifications)),
	)

	limiter := ratelimit.New(ratelimit.Config{
		Enabled: len(cfg.RateLimits) > 0,
		Rules:   ratelimitRules(cfg.RateLimits),
	})

	execEngine := executor.New(registry, executor.Config{RateLimiter: limiter})

	evaluator := metrics.NewEvaluator(nil)

	deps := &workflow.Deps{
		Classifier:        tools.NewClassifier(llmClient, cfg.LLM.RequestTimeout, nil),
		SafetyGuardrails:  tools.NewSafetyGuardrails(llmClient, cfg.LLM.RequestTimeout, nil),
		ComplianceChecker: tools.NewComplianceChecker(llmClient, cfg.LLM.RequestTimeout, nil),
		Prioritizer:       tools.NewPrioritizer(llmClient, cfg.LLM.RequestTimeout, nil),
		PlaybookSelector:  tools.NewPlaybookSelector(llmClient, cfg.LLM.RequestTimeout, nil),
		ResponseGenerator: tools.NewResponseGenerator(llmClient, cfg.LLM.RequestTimeout, nil),
		RiskAssessor:      decision.NewRiskAssessor(),
		ImpactCalculator:  decision.NewBusinessImpactCalculator(),
		AutonomyAssessor:  decision.NewAutonomyAssessor(),
		PlanOptimizer:     decision.NewPlanOptimizer(),
		Executor:          execEngine,
		Store:             st,
		Notifier:          external.NewNotificationClient(external.EndpointConfig(cfg.External.Notifications)),
		Checkpoints:       checkpoints,
		Metrics:           evaluator,
	}

	engine := workflow.New(workflow.NewGraph(), deps, workflow.Config{
		WorkerCount: cfg.Workflow.WorkerCount,
		QueueDepth:  cfg.Workflow.QueueDepth,
	}, log)

	// checkpoints.RecoverOnStartup is not invoked here: it replays the
	// latest checkpoint per open incident, but workflow.Engine only
	// exposes Submit (always starting at the graph's first node), with
	// no entry point to resume mid-graph from a recovered step.

	return &engineStack{cfg: cfg, store: st, evaluator: evaluator, engine: engine, log: log}, nil
}

func buildSessionStore(cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
		return session.NewRedisStore(client, session.Config{RingSize: cfg.MaxCheckpointsPerIncident, TTL: cfg.TTL}), nil
	default:
		return session.NewMemoryStore(session.Config{RingSize: cfg.MaxCheckpointsPerIncident, TTL: cfg.TTL}), nil
	}
}

func buildLLMClient(cfg config.LLMConfig) llm.Client {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if cfg.Provider != "genai" || apiKey == "" {
		return llm.StubClient{}
	}
	client, err := llm.New(llm.Config{APIKey: apiKey, Model: cfg.Model})
	if err != nil {
		return llm.StubClient{}
	}
	return client
}

func ratelimitRules(rules []config.RateLimitRule) []ratelimit.Rule {
	out := make([]ratelimit.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, ratelimit.Rule{
			System: r.System,
			Limit:  int64(r.RequestsPerMin),
			Window: time.Minute,
			Burst:  int64(r.Burst),
		})
	}
	return out
}
