package analysis

import (
	"testing"

	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandFromNodeScenarioC(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "e1"}, {id: "e2"}},
		[]testRelationship{{id: "r1", source: "e1", target: "e2"}},
	)

	state := NewTraceGraph([]string{"e1"}, nil)
	require.True(t, state.Nodes["e1"].Pinned)
	require.False(t, state.Nodes["e1"].Expanded)

	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "e1", Direction: DirectionOutgoing, Depth: 1})

	require.Len(t, patch.Nodes, 1)
	assert.Equal(t, "e2", patch.Nodes[0].ID)
	assert.Equal(t, 1, patch.Nodes[0].Depth)

	require.Len(t, patch.Edges, 1)
	assert.Equal(t, "e1", patch.Edges[0].From)
	assert.Equal(t, "e2", patch.Edges[0].To)

	assert.Equal(t, map[string][]string{"e2": {"e1"}}, patch.Frontier)

	next := ApplyExpansion(state, patch)
	assert.True(t, next.Nodes["e1"].Expanded)
	assert.Equal(t, 1, next.Nodes["e2"].Depth)
}

func TestExpandFromNodeMissingRoot(t *testing.T) {
	m := buildTestModel(t, []testElement{{id: "e1"}}, nil)

	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "ghost", Direction: DirectionOutgoing, Depth: 3})

	require.NotNil(t, patch)
	assert.Equal(t, "ghost", patch.RootID)
	assert.Empty(t, patch.Nodes)
	assert.Empty(t, patch.Edges)
	assert.Empty(t, patch.Frontier)
}

func TestExpandFromNodeDepthBound(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}, {id: "d"}},
		edgesAlong([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "d"}),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "a", Direction: DirectionOutgoing, Depth: 2})

	ids := map[string]int{}
	for _, n := range patch.Nodes {
		ids[n.ID] = n.Depth
	}
	assert.Equal(t, map[string]int{"b": 1, "c": 2}, ids, "d is beyond depth 2")
}

func TestExpandFromNodeStopAtDepthTakesMinimum(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}},
		edgesAlong([2]string{"a", "b"}, [2]string{"b", "c"}),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{
		NodeID: "a", Direction: DirectionOutgoing, Depth: 5,
		Stop: StopConditions{AtDepth: 1},
	})
	require.Len(t, patch.Nodes, 1)
	assert.Equal(t, "b", patch.Nodes[0].ID)

	// a stop depth larger than the requested depth does not widen it
	patch = ExpandFromNode(m, nil, ExpandRequest{
		NodeID: "a", Direction: DirectionOutgoing, Depth: 1,
		Stop: StopConditions{AtDepth: 9},
	})
	require.Len(t, patch.Nodes, 1)
}

func TestExpandFromNodeStopAtLayerIncludesButPrunes(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{
			{id: "app1", layer: model.LayerApplication},
			{id: "tech1", layer: model.LayerTechnology},
			{id: "tech2", layer: model.LayerTechnology},
		},
		edgesAlong([2]string{"app1", "tech1"}, [2]string{"tech1", "tech2"}),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{
		NodeID: "app1", Direction: DirectionOutgoing, Depth: 3,
		Stop: StopConditions{AtLayers: []string{"technology"}},
	})

	ids := map[string]bool{}
	for _, n := range patch.Nodes {
		ids[n.ID] = true
	}
	assert.True(t, ids["tech1"], "stop-layer node is still included")
	assert.False(t, ids["tech2"], "expansion must not continue through a stop-layer node")
}

func TestExpandFromNodeLayerFilterExcludesAndPrunes(t *testing.T) {
	// app1 -> biz1 -> app2: filtering out the business layer removes biz1
	// and everything only reachable through it
	m := buildTestModel(t,
		[]testElement{
			{id: "app1", layer: model.LayerApplication},
			{id: "biz1", layer: model.LayerBusiness},
			{id: "app2", layer: model.LayerApplication},
		},
		edgesAlong([2]string{"app1", "biz1"}, [2]string{"biz1", "app2"}),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{
		NodeID: "app1", Direction: DirectionOutgoing, Depth: 4,
		Layers: []string{"application"},
	})

	assert.Empty(t, patch.Nodes, "biz1 is excluded, not hidden, so app2 is unreachable")
	assert.Empty(t, patch.Edges)
}

func TestExpandFromNodeRelationshipTypeFilter(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}},
		[]testRelationship{
			{id: "r1", typ: model.RelationServing, source: "a", target: "b"},
			{id: "r2", typ: model.RelationFlow, source: "a", target: "c"},
		},
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{
		NodeID: "a", Direction: DirectionOutgoing, Depth: 1,
		RelationshipTypes: []string{model.RelationServing},
	})

	require.Len(t, patch.Nodes, 1)
	assert.Equal(t, "b", patch.Nodes[0].ID)
}

func TestExpandFromNodeConvergingRoutes(t *testing.T) {
	// two routes to d: a->d (one hop) and a->b->c->d (three hops)
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}, {id: "d"}, {id: "e"}},
		edgesAlong(
			[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "d"},
			[2]string{"a", "d"}, [2]string{"d", "e"},
		),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "a", Direction: DirectionOutgoing, Depth: 2})

	depths := map[string]int{}
	for _, n := range patch.Nodes {
		depths[n.ID] = n.Depth
	}
	assert.Equal(t, 1, depths["d"], "minimum depth wins for converging routes")
	assert.Equal(t, 2, depths["e"], "e is reachable because d was reached at depth 1")

	seen := map[string]bool{}
	for _, n := range patch.Nodes {
		assert.False(t, seen[n.ID], "node %s recorded twice", n.ID)
		seen[n.ID] = true
	}
}

func TestExpandFromNodeFrontierAccumulatesParents(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}},
		edgesAlong([2]string{"a", "b"}, [2]string{"a", "c"}, [2]string{"b", "c"}),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "a", Direction: DirectionOutgoing, Depth: 2})

	assert.Equal(t, []string{"a"}, patch.Frontier["b"])
	assert.Equal(t, []string{"a", "b"}, patch.Frontier["c"])
}

func TestExpandFromNodeUndirectedTraversal(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}},
		[]testRelationship{{id: "r1", source: "b", target: "a", attrs: map[string]interface{}{"isDirected": false}}},
	)

	// the relationship is stored b->a, but the synthetic reverse edge
	// makes a->b traversable in the outgoing direction
	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "a", Direction: DirectionOutgoing, Depth: 1})

	require.Len(t, patch.Nodes, 1)
	assert.Equal(t, "b", patch.Nodes[0].ID)
}

func TestExpandFromNodeZeroAndNegativeDepth(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}},
		edgesAlong([2]string{"a", "b"}),
	)

	patch := ExpandFromNode(m, nil, ExpandRequest{NodeID: "a", Direction: DirectionOutgoing, Depth: 0})
	assert.Empty(t, patch.Nodes)

	patch = ExpandFromNode(m, nil, ExpandRequest{NodeID: "a", Direction: DirectionOutgoing, Depth: -7})
	assert.Empty(t, patch.Nodes)
}
