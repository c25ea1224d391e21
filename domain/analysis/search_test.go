package analysis

import (
	"testing"

	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortestPathScenarioA(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "s"}, {id: "a"}, {id: "t"}},
		edgesAlong([2]string{"s", "a"}, [2]string{"a", "t"}),
	)
	g := BuildGraph(m, nil)

	path := g.ShortestPath(PathArgs{
		StartID:           "s",
		TargetID:          "t",
		Direction:         DirectionOutgoing,
		RelationshipTypes: []string{model.RelationServing},
		MaxHops:           4,
	})
	assert.Equal(t, []string{"s", "a", "t"}, path)

	path = g.ShortestPath(PathArgs{
		StartID:           "s",
		TargetID:          "t",
		Direction:         DirectionOutgoing,
		RelationshipTypes: []string{model.RelationServing},
		MaxHops:           1,
	})
	assert.Nil(t, path, "two-hop path must not be found within one hop")
}

func TestShortestPathBoundedness(t *testing.T) {
	// a chain of 6 hops
	m := buildTestModel(t,
		[]testElement{{id: "n0"}, {id: "n1"}, {id: "n2"}, {id: "n3"}, {id: "n4"}, {id: "n5"}, {id: "n6"}},
		edgesAlong(
			[2]string{"n0", "n1"}, [2]string{"n1", "n2"}, [2]string{"n2", "n3"},
			[2]string{"n3", "n4"}, [2]string{"n4", "n5"}, [2]string{"n5", "n6"},
		),
	)
	g := BuildGraph(m, nil)

	for hops := 1; hops <= 8; hops++ {
		path := g.ShortestPath(PathArgs{StartID: "n0", TargetID: "n6", Direction: DirectionOutgoing, MaxHops: hops})
		if hops < 6 {
			assert.Nil(t, path, "maxHops=%d", hops)
		} else {
			require.NotNil(t, path, "maxHops=%d", hops)
			assert.LessOrEqual(t, len(path), hops+1)
		}
	}
}

func TestShortestPathDirections(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}},
		edgesAlong([2]string{"a", "b"}, [2]string{"c", "b"}),
	)
	g := BuildGraph(m, nil)

	assert.Equal(t, []string{"a", "b"},
		g.ShortestPath(PathArgs{StartID: "a", TargetID: "b", Direction: DirectionOutgoing, MaxHops: 4}))

	assert.Nil(t,
		g.ShortestPath(PathArgs{StartID: "a", TargetID: "c", Direction: DirectionOutgoing, MaxHops: 4}),
		"outgoing search cannot cross c->b backwards")

	assert.Equal(t, []string{"b", "a"},
		g.ShortestPath(PathArgs{StartID: "b", TargetID: "a", Direction: DirectionIncoming, MaxHops: 4}))

	assert.Equal(t, []string{"a", "b", "c"},
		g.ShortestPath(PathArgs{StartID: "a", TargetID: "c", Direction: DirectionBoth, MaxHops: 4}))
}

func TestShortestPathRelationshipTypeFilter(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}},
		[]testRelationship{{id: "r1", typ: model.RelationFlow, source: "a", target: "b"}},
	)
	g := BuildGraph(m, nil)

	assert.Nil(t, g.ShortestPath(PathArgs{
		StartID: "a", TargetID: "b", Direction: DirectionOutgoing,
		RelationshipTypes: []string{model.RelationServing}, MaxHops: 4,
	}))

	// blank entries collapse to "no restriction"
	assert.NotNil(t, g.ShortestPath(PathArgs{
		StartID: "a", TargetID: "b", Direction: DirectionOutgoing,
		RelationshipTypes: []string{"", "  "}, MaxHops: 4,
	}))
}

func TestShortestPathTotality(t *testing.T) {
	m := buildTestModel(t, []testElement{{id: "a"}}, nil)
	g := BuildGraph(m, nil)

	assert.Nil(t, g.ShortestPath(PathArgs{StartID: "missing", TargetID: "a", Direction: DirectionOutgoing, MaxHops: 4}))
	assert.Nil(t, g.ShortestPath(PathArgs{StartID: "a", TargetID: "missing", Direction: DirectionOutgoing, MaxHops: 4}))
	assert.Equal(t, []string{"a"}, g.ShortestPath(PathArgs{StartID: "a", TargetID: "a", Direction: DirectionOutgoing, MaxHops: 4}))
}

func TestKShortestPathsScenarioB(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "s"}, {id: "a"}, {id: "b"}, {id: "c"}, {id: "t"}},
		edgesAlong(
			[2]string{"s", "a"}, [2]string{"a", "t"},
			[2]string{"s", "b"}, [2]string{"b", "t"},
			[2]string{"s", "c"}, [2]string{"c", "t"},
			[2]string{"a", "s"}, // back-edge forming a cycle
		),
	)
	g := BuildGraph(m, nil)

	paths := g.KShortestPaths(PathArgs{StartID: "s", TargetID: "t", Direction: DirectionOutgoing, MaxHops: 3, K: 2})

	require.Equal(t, [][]string{{"s", "a", "t"}, {"s", "b", "t"}}, paths)
	for _, p := range paths {
		starts := 0
		for _, id := range p {
			if id == "s" {
				starts++
			}
		}
		assert.Equal(t, 1, starts, "no returned path may contain s twice")
	}
}

func TestKShortestPathsLoopFreedom(t *testing.T) {
	// cycle a->b->c->a with an exit c->t
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}, {id: "t"}},
		edgesAlong([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}, [2]string{"c", "t"}),
	)
	g := BuildGraph(m, nil)

	paths := g.KShortestPaths(PathArgs{StartID: "a", TargetID: "t", Direction: DirectionOutgoing, MaxHops: 8, K: 10})

	require.NotEmpty(t, paths)
	for _, p := range paths {
		seen := map[string]bool{}
		for _, id := range p {
			assert.False(t, seen[id], "repeated node %s in path %v", id, p)
			seen[id] = true
		}
	}
}

func TestKShortestPathsOrderingAndCap(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "s"}, {id: "a"}, {id: "b"}, {id: "t"}},
		edgesAlong(
			[2]string{"s", "t"},
			[2]string{"s", "a"}, [2]string{"a", "t"},
			[2]string{"s", "b"}, [2]string{"b", "t"},
		),
	)
	g := BuildGraph(m, nil)

	paths := g.KShortestPaths(PathArgs{StartID: "s", TargetID: "t", Direction: DirectionOutgoing, MaxHops: 4, K: 2})

	require.Len(t, paths, 2)
	assert.Equal(t, []string{"s", "t"}, paths[0])
	for i := 1; i < len(paths); i++ {
		assert.GreaterOrEqual(t, len(paths[i]), len(paths[i-1]), "non-decreasing length")
	}
}

func TestKShortestPathsTotality(t *testing.T) {
	m := buildTestModel(t, []testElement{{id: "a"}, {id: "b"}}, nil)
	g := BuildGraph(m, nil)

	assert.Empty(t, g.KShortestPaths(PathArgs{StartID: "x", TargetID: "b", Direction: DirectionOutgoing, MaxHops: 4, K: 3}))
	assert.Empty(t, g.KShortestPaths(PathArgs{StartID: "a", TargetID: "b", Direction: DirectionOutgoing, MaxHops: 4, K: 3}))
}

func TestSearchBoundClamping(t *testing.T) {
	assert.Equal(t, 1, clampHops(0))
	assert.Equal(t, 1, clampHops(-5))
	assert.Equal(t, MaxHopLimit, clampHops(1000))
	assert.Equal(t, 7, clampHops(7))

	assert.Equal(t, 1, clampK(0))
	assert.Equal(t, MaxPathCount, clampK(1<<20))
}
