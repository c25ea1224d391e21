package analysis

import (
	"testing"

	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraphAdjacencySymmetry(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}, {id: "c"}},
		[]testRelationship{
			{id: "r1", source: "a", target: "b"},
			{id: "r2", source: "b", target: "c", attrs: map[string]interface{}{"isDirected": false}},
		},
	)

	g := BuildGraph(m, nil)

	for from, edges := range g.Outgoing {
		for _, e := range edges {
			assert.Equal(t, from, e.FromID)
			assert.Contains(t, g.Incoming[e.ToID], e, "outgoing edge must appear in incoming of its target")
		}
	}
	for to, edges := range g.Incoming {
		for _, e := range edges {
			assert.Equal(t, to, e.ToID)
			assert.Contains(t, g.Outgoing[e.FromID], e, "incoming edge must appear in outgoing of its source")
		}
	}
}

func TestBuildGraphSkipsDanglingRelationships(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}},
		[]testRelationship{
			{id: "r1", source: "a", target: "b"},
			{id: "r2", source: "a", target: "ghost"},
			{id: "r3", source: "ghost", target: "b"},
		},
	)

	g := BuildGraph(m, nil)

	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.Outgoing["a"], 1)
	assert.Empty(t, g.Incoming["a"])
}

func TestBuildGraphUndirectedSynthesis(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "a"}, {id: "b"}},
		[]testRelationship{
			{id: "r1", source: "a", target: "b", attrs: map[string]interface{}{"isDirected": false}},
		},
	)

	g := BuildGraph(m, nil)

	require.Len(t, g.Outgoing["a"], 1)
	require.Len(t, g.Outgoing["b"], 1)

	forward := g.Outgoing["a"][0]
	reverse := g.Outgoing["b"][0]

	assert.False(t, forward.Reversed)
	assert.True(t, forward.Undirected)
	assert.True(t, reverse.Reversed)
	assert.True(t, reverse.Undirected)
	assert.Equal(t, forward.RelationshipID, reverse.RelationshipID)

	// the stored direction is a->b, traversal from b must still reach a
	path := g.ShortestPath(PathArgs{StartID: "b", TargetID: "a", Direction: DirectionOutgoing, MaxHops: 4})
	assert.Equal(t, []string{"b", "a"}, path)
}

func TestBuildGraphKeepsInsertionOrder(t *testing.T) {
	m := buildTestModel(t,
		[]testElement{{id: "s"}, {id: "a"}, {id: "b"}, {id: "c"}},
		edgesAlong([2]string{"s", "a"}, [2]string{"s", "b"}, [2]string{"s", "c"}),
	)

	g := BuildGraph(m, nil)

	require.Len(t, g.Outgoing["s"], 3)
	assert.Equal(t, "a", g.Outgoing["s"][0].ToID)
	assert.Equal(t, "b", g.Outgoing["s"][1].ToID)
	assert.Equal(t, "c", g.Outgoing["s"][2].ToID)
}

func TestResolveUndirected(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]interface{}
		want  bool
	}{
		{name: "no attrs", attrs: nil, want: false},
		{name: "explicit directed", attrs: map[string]interface{}{"isDirected": true}, want: false},
		{name: "explicit undirected", attrs: map[string]interface{}{"isDirected": false}, want: true},
		{name: "non-boolean flag", attrs: map[string]interface{}{"isDirected": "no"}, want: false},
		{name: "numeric flag", attrs: map[string]interface{}{"isDirected": 0}, want: false},
		{name: "unrelated attrs", attrs: map[string]interface{}{"weight": 2}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := &model.Relationship{
				ID:       "r1",
				Type:     model.RelationServing,
				SourceID: "a",
				TargetID: "b",
				Attrs:    tt.attrs,
			}
			assert.Equal(t, tt.want, ResolveUndirected(rel, nil, nil))
		})
	}
}

func TestResolveUndirectedAdapterOverride(t *testing.T) {
	association := &model.Relationship{
		ID:       "r1",
		Type:     model.RelationAssociation,
		SourceID: "a",
		TargetID: "b",
	}
	serving := &model.Relationship{
		ID:       "r2",
		Type:     model.RelationServing,
		SourceID: "a",
		TargetID: "b",
	}

	// ArchiMate treats associations as undirected even without the flag
	assert.True(t, ResolveUndirected(association, nil, ArchiMateAdapter{}))
	assert.False(t, ResolveUndirected(serving, nil, ArchiMateAdapter{}))

	// the adapter widens, it never narrows an explicit undirected flag
	serving.Attrs = map[string]interface{}{"isDirected": false}
	assert.True(t, ResolveUndirected(serving, nil, BPMNAdapter{}))
}

func TestUMLAdapterNavigability(t *testing.T) {
	rel := &model.Relationship{ID: "r1", Type: model.RelationAssociation, SourceID: "a", TargetID: "b"}

	assert.False(t, UMLAdapter{}.IsEdgeDirected(rel, nil), "plain association is undirected")

	rel.Attrs = map[string]interface{}{"navigable": true}
	assert.True(t, UMLAdapter{}.IsEdgeDirected(rel, nil))

	rel.Attrs = map[string]interface{}{"navigable": false}
	assert.False(t, UMLAdapter{}.IsEdgeDirected(rel, nil))
}

func TestAdapterForNotation(t *testing.T) {
	assert.IsType(t, ArchiMateAdapter{}, AdapterForNotation("archimate"))
	assert.IsType(t, UMLAdapter{}, AdapterForNotation("uml"))
	assert.IsType(t, BPMNAdapter{}, AdapterForNotation("bpmn"))
	assert.Nil(t, AdapterForNotation("unknown"))
}
