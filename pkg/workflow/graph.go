package workflow

import (
	"fmt"

	"github.com/sentinelstay/triage/pkg/incident"
)

// NodeHandleError is the terminal node every Failed outcome redirects
// to; it is addressable by id but deliberately absent from the default
// linear chain.
const NodeHandleError = "handle-error"

// linearOrder is the topological order of spec.md §4.1's Nodes list,
// excluding handle-error.
var linearOrder = []string{
	"validate-input",
	"classify",
	"assess-risk",
	"safety-check",
	"prioritize",
	"select-playbook",
	"compliance-check",
	"human-approval-gate",
	"generate-response",
	"execute-immediate-actions",
	"document",
	"notify",
	"schedule-followup",
	"update-metrics",
}

// Router decides where a node that returned Complete should route to
// next, overriding the graph's default linear order. Routers are pure
// functions over the incident's already-recorded tool results - never
// the LLM - per spec.md §4.5.
type Router func(st *incident.Incident) string

// Graph is the directed graph of nodes spec.md §4.1 names: a by-id node
// map (so handle-error is reachable though not in the default chain), a
// linear default-succession order, and a routers table for the three
// conditional edges.
type Graph struct {
	nodes   map[string]Node
	order   []string
	routers map[string]Router
}

// NewGraph builds the fixed spec.md §4.1 graph. The graph holds no
// collaborators; each node receives them through the *Deps the Engine
// passes at run time.
func NewGraph() *Graph {
	g := &Graph{
		nodes:   make(map[string]Node, len(linearOrder)+1),
		order:   append([]string(nil), linearOrder...),
		routers: make(map[string]Router, 3),
	}
	g.nodes["validate-input"] = nodeValidateInput
	g.nodes["classify"] = nodeClassify
	g.nodes["assess-risk"] = nodeAssessRisk
	g.nodes["safety-check"] = nodeSafetyCheck
	g.nodes["prioritize"] = nodePrioritize
	g.nodes["select-playbook"] = nodeSelectPlaybook
	g.nodes["compliance-check"] = nodeComplianceCheck
	g.nodes["human-approval-gate"] = nodeHumanApprovalGate
	g.nodes["generate-response"] = nodeGenerateResponse
	g.nodes["execute-immediate-actions"] = nodeExecuteImmediateActions
	g.nodes["document"] = nodeDocument
	g.nodes["notify"] = nodeNotify
	g.nodes["schedule-followup"] = nodeScheduleFollowup
	g.nodes["update-metrics"] = nodeUpdateMetrics
	g.nodes[NodeHandleError] = nodeHandleError

	g.routers["safety-check"] = safetyRouter
	g.routers["compliance-check"] = complianceRouter
	g.routers["human-approval-gate"] = approvalRouter

	return g
}

// First returns the entry node id.
func (g *Graph) First() string { return g.order[0] }

// node looks up a node by id.
func (g *Graph) node(id string) (Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("workflow: no node registered for %q", id)
	}
	return n, nil
}

// routeAfterComplete resolves the successor of id after a Complete
// outcome: the registered Router's verdict if id has one, otherwise
// the next entry in the default linear order, or "" if id was the
// last step.
func (g *Graph) routeAfterComplete(id string, st *incident.Incident) string {
	if router, ok := g.routers[id]; ok {
		return router(st)
	}
	return g.linearNext(id)
}

func (g *Graph) linearNext(id string) string {
	for i, step := range g.order {
		if step == id && i+1 < len(g.order) {
			return g.order[i+1]
		}
	}
	return ""
}
