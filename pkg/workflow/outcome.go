// Package workflow drives a single Incident through the deterministic
// node graph of spec.md §4.1: validate-input, classify, assess-risk,
// safety-check, prioritize, select-playbook, compliance-check,
// human-approval-gate, generate-response, execute-immediate-actions,
// document, notify, schedule-followup, update-metrics, handle-error.
// A node never mutates engine state directly - it returns an Outcome
// and the Engine applies it.
package workflow

import (
	"context"

	"github.com/sentinelstay/triage/pkg/incident"
)

// Outcome is the closed sum type a node returns, per REDESIGN FLAGS §9:
// "the engine's main loop distinguishes Complete, Transition, Suspended,
// and Failed." Exactly one of the accessor methods below is meaningful
// for a given Outcome; callers switch on Kind.
type Outcome struct {
	kind        outcomeKind
	next        string
	reason      string
	requestType string
	err         error
}

type outcomeKind int

const (
	// KindComplete advances to the next node in the graph's default
	// linear order, or to whatever a registered Router redirects to.
	KindComplete outcomeKind = iota
	// KindTransition jumps directly to a named node, bypassing both
	// the linear order and any router.
	KindTransition
	// KindSuspended pauses the run pending a human decision; the
	// engine checkpoints, releases the incident, and waits for Resolve.
	KindSuspended
	// KindFailed terminates the run; the engine routes to handle-error.
	KindFailed
)

func (o Outcome) Kind() outcomeKind { return o.kind }
func (o Outcome) Next() string      { return o.next }
func (o Outcome) Reason() string    { return o.reason }
func (o Outcome) RequestType() string { return o.requestType }
func (o Outcome) Err() error        { return o.err }

// Complete signals the node ran to completion; the engine decides the
// next node via the graph's linear order or a registered Router.
func Complete() Outcome { return Outcome{kind: KindComplete} }

// Transition jumps directly to next, bypassing the linear order and any
// router. No node in this package returns it: the Engine redirects
// failures to handle-error itself, and routers return node ids.
func Transition(next string) Outcome { return Outcome{kind: KindTransition, next: next} }

// Suspended pauses the run for a human decision of requestType,
// recorded as the InterventionRequest's reason.
func Suspended(requestType, reason string) Outcome {
	return Outcome{kind: KindSuspended, requestType: requestType, reason: reason}
}

// Failed terminates the run with err; the engine routes to handle-error
// and records err into the incident's failed_steps.
func Failed(err error) Outcome { return Outcome{kind: KindFailed, err: err} }

// Node is one step of the graph: an asynchronous function over the
// incident's mutable state, parameterized by Deps per REDESIGN FLAGS
// §9's "flatten inheritance-like base classes to a single capability
// interface."
type Node func(ctx context.Context, deps *Deps, st *incident.Incident) (Outcome, error)
