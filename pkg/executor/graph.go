package executor

import (
	"fmt"

	"github.com/sentinelstay/triage/pkg/incident"
)

// node tracks one action's place in the dependency graph: how many of
// its dependencies have not yet resolved, and which actions depend on
// it.
type node struct {
	action     incident.Action
	remaining  int
	dependents []string
}

// buildGraph indexes a plan's actions by id and validates the graph
// once up front - REDESIGN FLAGS §9 calls for a "topological-sort-once"
// driver rather than repeatedly walking dependencies during execution.
// A Kahn's-algorithm pass over a scratch copy of the remaining counts
// both confirms every DependsOn id resolves to a real action and
// detects a dependency cycle; the live remaining counters on the
// returned nodes are then consumed by Run as actions complete.
func buildGraph(actions []incident.Action) (map[string]*node, error) {
	nodes := make(map[string]*node, len(actions))
	for _, a := range actions {
		if _, dup := nodes[a.ID]; dup {
			return nil, fmt.Errorf("duplicate action id %q", a.ID)
		}
		nodes[a.ID] = &node{action: a, remaining: len(a.DependsOn)}
	}
	for _, a := range actions {
		for _, dep := range a.DependsOn {
			parent, ok := nodes[dep]
			if !ok {
				return nil, fmt.Errorf("action %q depends on unknown action %q", a.ID, dep)
			}
			parent.dependents = append(parent.dependents, a.ID)
		}
	}

	scratch := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))
	for id, n := range nodes {
		scratch[id] = n.remaining
		if n.remaining == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range nodes[id].dependents {
			scratch[dep]--
			if scratch[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if visited != len(nodes) {
		return nil, fmt.Errorf("action plan has a dependency cycle")
	}

	return nodes, nil
}
