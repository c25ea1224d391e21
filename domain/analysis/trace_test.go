package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraceGraphSeeds(t *testing.T) {
	state := NewTraceGraph([]string{"e1", "e2", "e1", ""}, nil)

	require.Len(t, state.Nodes, 2)
	assert.Equal(t, []string{"e1", "e2"}, state.Selection)
	assert.Equal(t, DefaultTraceDepth, state.MaxDepth)

	seed := state.Nodes["e1"]
	assert.Equal(t, 0, seed.Depth)
	assert.True(t, seed.Pinned)
	assert.False(t, seed.Expanded)
	assert.False(t, seed.Hidden)
}

func TestNewTraceGraphOptions(t *testing.T) {
	state := NewTraceGraph([]string{"e1"}, &TraceOptions{
		MaxDepth: 5,
		Filters:  TraceFilters{Layers: []string{"business"}},
	})

	assert.Equal(t, 5, state.MaxDepth)
	assert.Equal(t, []string{"business"}, state.Filters.Layers)
}

func TestMergeTraceNode(t *testing.T) {
	existing := TraceNode{ID: "n", Depth: 3, Pinned: true}
	incoming := TraceNode{ID: "n", Depth: 1, Expanded: true, Hidden: true}

	merged := mergeTraceNode(existing, incoming)

	assert.Equal(t, 1, merged.Depth, "depth takes the minimum")
	assert.True(t, merged.Pinned)
	assert.True(t, merged.Expanded)
	assert.True(t, merged.Hidden)

	// merging the shallower node back never raises the depth or resets flags
	again := mergeTraceNode(merged, TraceNode{ID: "n", Depth: 4})
	assert.Equal(t, 1, again.Depth)
	assert.True(t, again.Pinned)
	assert.True(t, again.Expanded)
	assert.True(t, again.Hidden)
}

func TestMergeFrontierOrderPreservingUnion(t *testing.T) {
	merged := mergeFrontier([]string{"a", "b"}, []string{"b", "c", "a", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, merged)
}

func TestApplyExpansionMarksRootExpanded(t *testing.T) {
	state := NewTraceGraph([]string{"e1"}, nil)
	patch := &ExpansionPatch{RootID: "e1"}

	next := ApplyExpansion(state, patch)

	assert.True(t, next.Nodes["e1"].Expanded)
	assert.True(t, next.Nodes["e1"].Pinned, "flags from the seed survive")
	assert.False(t, state.Nodes["e1"].Expanded, "input state is untouched")
}

func TestApplyExpansionCreatesMissingRoot(t *testing.T) {
	next := ApplyExpansion(NewTraceGraph(nil, nil), &ExpansionPatch{RootID: "fresh"})

	root := next.Nodes["fresh"]
	assert.Equal(t, 0, root.Depth)
	assert.True(t, root.Expanded)
}

func TestApplyExpansionIdempotent(t *testing.T) {
	state := NewTraceGraph([]string{"e1"}, nil)
	patch := &ExpansionPatch{
		RootID: "e1",
		Nodes: []TraceNode{
			{ID: "e2", Depth: 1},
			{ID: "e3", Depth: 2},
		},
		Edges: []TraceEdge{
			{ID: TraceEdgeID("r1", "e1", "e2"), RelationshipID: "r1", From: "e1", To: "e2"},
			{ID: TraceEdgeID("r2", "e2", "e3"), RelationshipID: "r2", From: "e2", To: "e3"},
		},
		Frontier: map[string][]string{
			"e2": {"e1"},
			"e3": {"e2"},
		},
	}

	once := ApplyExpansion(state, patch)
	twice := ApplyExpansion(once, patch)

	assert.Equal(t, once.Nodes, twice.Nodes)
	assert.Equal(t, once.Edges, twice.Edges)
	assert.Equal(t, once.Frontier, twice.Frontier)
	assert.Len(t, twice.Frontier["e2"], 1, "no duplicate frontier entries")
	assert.Len(t, twice.Edges, 2, "no duplicate edges")
}

func TestApplyExpansionDepthMonotonicity(t *testing.T) {
	state := ApplyExpansion(NewTraceGraph([]string{"e1"}, nil), &ExpansionPatch{
		RootID: "e1",
		Nodes:  []TraceNode{{ID: "e2", Depth: 3}},
	})
	require.Equal(t, 3, state.Nodes["e2"].Depth)

	// a later, shorter route lowers the depth
	state = ApplyExpansion(state, &ExpansionPatch{RootID: "e1", Nodes: []TraceNode{{ID: "e2", Depth: 1}}})
	assert.Equal(t, 1, state.Nodes["e2"].Depth)

	// a longer route never raises it back
	state = ApplyExpansion(state, &ExpansionPatch{RootID: "e1", Nodes: []TraceNode{{ID: "e2", Depth: 2}}})
	assert.Equal(t, 1, state.Nodes["e2"].Depth)
}

func TestApplyExpansionNilInputs(t *testing.T) {
	next := ApplyExpansion(nil, nil)
	require.NotNil(t, next)
	assert.Empty(t, next.Nodes)

	state := NewTraceGraph([]string{"e1"}, nil)
	next = ApplyExpansion(state, nil)
	assert.Equal(t, state.Nodes, next.Nodes)
}

func TestTraceEdgeID(t *testing.T) {
	assert.Equal(t, "r1:a->b", TraceEdgeID("r1", "a", "b"))
	assert.NotEqual(t, TraceEdgeID("r1", "a", "b"), TraceEdgeID("r1", "b", "a"))
}
