package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sentinelstay/triage/pkg/incident"
)

var tracer = otel.Tracer("github.com/sentinelstay/triage/pkg/workflow")

// RunHandle is what Submit returns: an incident id and a channel that
// closes once the run reaches a terminal state.
type RunHandle struct {
	IncidentID string
	done       chan struct{}
}

// Await blocks until the run behind h reaches a terminal state, or ctx
// is cancelled first.
func (h *RunHandle) Await(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrQueueFull is returned by Submit when the bounded queue is at
// capacity, per spec.md §5's backpressure contract.
var ErrQueueFull = incident.Wrap(incident.KindInternal, fmt.Errorf("workflow: queue full"), false)

// run is one in-flight or completed incident's bookkeeping.
type run struct {
	st       *incident.Incident
	done     chan struct{}
	sequence int
}

// Engine dispatches incidents through Graph's nodes using a bounded
// worker pool, per spec.md §5: a fixed number of workers pull from a
// buffered queue, each incident id owned by exactly one worker at a
// time (tracked by inFlight), suspension is release-and-requeue rather
// than a blocked goroutine.
type Engine struct {
	graph *Graph
	deps  *Deps
	log   *slog.Logger

	queue chan string

	mu       sync.RWMutex
	runs     map[string]*run
	inFlight sync.Map // incident id -> struct{}, worker-owned view

	workerCount     int
	workflowTimeout time.Duration

	group  *errgroup.Group
	cancel context.CancelFunc
}

// Config tunes the Engine's worker pool and queue bound.
type Config struct {
	WorkerCount     int
	QueueDepth      int
	WorkflowTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 16
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 1024
	}
	if c.WorkflowTimeout <= 0 {
		c.WorkflowTimeout = 30 * time.Minute
	}
	return c
}

// New builds and starts an Engine with cfg.WorkerCount workers pulling
// from a queue bounded at cfg.QueueDepth.
func New(graph *Graph, deps *Deps, cfg Config, log *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	if deps.WorkflowTimeout <= 0 {
		deps.WorkflowTimeout = cfg.WorkflowTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	e := &Engine{
		graph:           graph,
		deps:            deps,
		log:             log,
		queue:           make(chan string, cfg.QueueDepth),
		runs:            make(map[string]*run),
		workerCount:     cfg.WorkerCount,
		workflowTimeout: deps.WorkflowTimeout,
		group:           group,
		cancel:          cancel,
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		group.Go(func() error {
			e.worker(gctx)
			return nil
		})
	}
	return e
}

// Stop signals every worker to exit after its current node and waits
// for them to drain.
func (e *Engine) Stop() {
	e.cancel()
	_ = e.group.Wait()
}

// Submit accepts a newly constructed incident, registers it, and
// enqueues it for dispatch. Submit never blocks: a full queue returns
// ErrQueueFull immediately, per spec.md §5's backpressure rule.
func (e *Engine) Submit(st *incident.Incident) (*RunHandle, error) {
	e.mu.Lock()
	e.runs[st.ID()] = &run{st: st, done: make(chan struct{})}
	e.mu.Unlock()

	select {
	case e.queue <- st.ID():
		return &RunHandle{IncidentID: st.ID(), done: e.runs[st.ID()].done}, nil
	default:
		e.mu.Lock()
		delete(e.runs, st.ID())
		e.mu.Unlock()
		return nil, ErrQueueFull
	}
}

// Status returns the current in-memory snapshot for incidentID's
// state, or an error if no run is registered under that id.
func (e *Engine) Status(incidentID string) (*incident.Incident, error) {
	e.mu.RLock()
	r, ok := e.runs[incidentID]
	e.mu.RUnlock()
	if !ok {
		return nil, incident.Wrap(incident.KindNotFound,
			fmt.Errorf("workflow: no run registered for %q", incidentID), false)
	}
	return r.st, nil
}

// Resolve supplies a human decision for a pending approval request and
// re-enqueues the incident at the step that suspended it: the approval
// gate, or execute-immediate-actions after an execution escalation.
// The run continues from the engine's in-memory incident state; the
// saved checkpoint is not reloaded.
func (e *Engine) Resolve(ctx context.Context, incidentID, requestID string, approved bool, by, note string) error {
	e.mu.RLock()
	r, ok := e.runs[incidentID]
	e.mu.RUnlock()
	if !ok {
		return incident.Wrap(incident.KindNotFound,
			fmt.Errorf("workflow: no run registered for %q", incidentID), false)
	}

	if !r.st.ApproveIntervention(requestID, approved, by, note) {
		return incident.Wrap(incident.KindConflict,
			fmt.Errorf("workflow: %s has no pending approval %q", incidentID, requestID), false)
	}
	r.st.AddToolResult("human_approval", 1.0, map[string]any{
		"approved":   approved,
		"by":         by,
		"note":       note,
		"request_id": requestID,
	})

	select {
	case e.queue <- incidentID:
		return nil
	default:
		return ErrQueueFull
	}
}

// worker pulls incident ids off the queue and drives each one through
// the graph until it completes, suspends, or fails - one node at a
// time, never holding the incident while waiting on human input.
func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-e.queue:
			if !ok {
				return
			}
			e.runOne(ctx, id)
		}
	}
}

func (e *Engine) runOne(ctx context.Context, incidentID string) {
	if _, loaded := e.inFlight.LoadOrStore(incidentID, struct{}{}); loaded {
		// Another worker already owns this id; re-enqueue rather than
		// run it twice. Only possible if Resolve raced a worker that
		// had just picked the same id up.
		e.queue <- incidentID
		return
	}
	defer e.inFlight.Delete(incidentID)

	e.mu.RLock()
	r, ok := e.runs[incidentID]
	e.mu.RUnlock()
	if !ok {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, e.workflowTimeout)
	defer cancel()

	nodeID := r.st.CurrentStep()
	if nodeID == "" {
		nodeID = e.graph.First()
	}

	for nodeID != "" {
		node, err := e.graph.node(nodeID)
		if err != nil {
			e.log.Error("unknown node", "incident_id", incidentID, "node", nodeID, "error", err)
			return
		}

		if r.st.CurrentStep() != nodeID {
			r.st.UpdateStep(nodeID)
		}

		spanCtx, span := tracer.Start(runCtx, "workflow.node",
			trace.WithAttributes(attribute.String("incident_id", incidentID), attribute.String("node", nodeID)))
		outcome, nodeErr := node(spanCtx, e.deps, r.st)
		span.End()

		if nodeErr != nil && outcome.Kind() != KindFailed {
			outcome = Failed(nodeErr)
		}

		r.sequence++
		if e.deps.Checkpoints != nil {
			if err := e.deps.Checkpoints.Save(runCtx, r.st, nodeID, r.sequence); err != nil {
				// Checkpoint write failures are fatal for this run, per
				// spec.md §4.1's failure semantics.
				e.log.Error("checkpoint save failed, terminating run", "incident_id", incidentID, "error", err)
				r.st.MarkStepFailed(err.Error())
				close(r.done)
				return
			}
		}

		switch outcome.Kind() {
		case KindFailed:
			if nodeID == NodeHandleError {
				// handle-error itself failed; nothing left to redirect to.
				r.st.MarkStepFailed(outcome.Err().Error())
				nodeID = ""
				continue
			}
			r.st.MarkStepFailed(outcome.Err().Error())
			r.st.AdvanceAfterFailure(NodeHandleError)
			nodeID = NodeHandleError
		case KindSuspended:
			e.log.Debug("workflow suspended", "incident_id", incidentID, "node", nodeID, "reason", outcome.Reason())
			return
		case KindTransition:
			nodeID = outcome.Next()
		default: // KindComplete
			if nodeID == NodeHandleError {
				nodeID = ""
				continue
			}
			nodeID = e.graph.routeAfterComplete(nodeID, r.st)
		}
	}

	close(r.done)
	if e.deps.Checkpoints != nil {
		if err := e.deps.Checkpoints.Clear(runCtx, incidentID); err != nil {
			e.log.Warn("checkpoint clear failed", "incident_id", incidentID, "error", err)
		}
	}
}

// NewIncidentID generates a fresh incident id.
func NewIncidentID() string {
	return uuid.NewString()
}
