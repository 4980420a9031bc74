package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/incident"
)

func TestBuildGraph_DetectsCycle(t *testing.T) {
	actions := []incident.Action{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}
	_, err := buildGraph(actions)
	require.Error(t, err)
}

func TestBuildGraph_RejectsUnknownDependency(t *testing.T) {
	actions := []incident.Action{
		{ID: "a", DependsOn: []string{"missing"}},
	}
	_, err := buildGraph(actions)
	require.Error(t, err)
}

func TestBuildGraph_RejectsDuplicateID(t *testing.T) {
	actions := []incident.Action{{ID: "a"}, {ID: "a"}}
	_, err := buildGraph(actions)
	require.Error(t, err)
}

func TestBuildGraph_LinksDependents(t *testing.T) {
	actions := []incident.Action{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
	}
	nodes, err := buildGraph(actions)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, nodes["a"].dependents)
	require.Equal(t, 1, nodes["b"].remaining)
}
