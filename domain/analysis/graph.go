// Package analysis turns an architecture model into a traversable graph
// and answers graph queries over it: reachability, shortest paths and the
// incrementally expandable traceability exploration used by the explorer
// view. Every operation is a pure, hop-bounded function of its inputs.
package analysis

import (
	"atlas-backend/domain/model"
)

// Edge is the traversable view of a relationship. Reversed marks the
// synthetic edge created to realize undirected traversal; Undirected is
// carried on both the forward and the reverse edge so consumers can tell
// original relationships from synthesized ones.
type Edge struct {
	RelationshipID   string `json:"relationship_id"`
	RelationshipType string `json:"relationship_type"`
	FromID           string `json:"from_id"`
	ToID             string `json:"to_id"`
	Reversed         bool   `json:"reversed"`
	Undirected       bool   `json:"undirected"`
}

// Graph is an adjacency-indexed view of a model. Outgoing and Incoming
// are two views of one edge set: every edge appended to Outgoing[from] is
// the same *Edge appended to Incoming[to]. Edge lists keep the insertion
// order of the model's relationship collection, which is what makes path
// search tie-breaking deterministic.
type Graph struct {
	Nodes    map[string]*model.Element
	Outgoing map[string][]*Edge
	Incoming map[string][]*Edge
}

// BuildGraph constructs the analysis graph for a model. Relationships
// whose source or target element is missing are skipped silently; models
// can be edited concurrently with analysis, so dangling relationships are
// expected, not exceptional.
func BuildGraph(m *model.Model, adapter Adapter) *Graph {
	g := &Graph{
		Nodes:    make(map[string]*model.Element),
		Outgoing: make(map[string][]*Edge),
		Incoming: make(map[string][]*Edge),
	}
	if m == nil {
		return g
	}

	for _, el := range m.Elements() {
		g.Nodes[el.ID.String()] = el
	}

	for _, rel := range m.Relationships() {
		from := rel.SourceID.String()
		to := rel.TargetID.String()
		if _, ok := g.Nodes[from]; !ok {
			continue
		}
		if _, ok := g.Nodes[to]; !ok {
			continue
		}

		undirected := ResolveUndirected(rel, m, adapter)

		g.addEdge(&Edge{
			RelationshipID:   rel.ID.String(),
			RelationshipType: rel.Type,
			FromID:           from,
			ToID:             to,
			Reversed:         false,
			Undirected:       undirected,
		})

		if undirected {
			g.addEdge(&Edge{
				RelationshipID:   rel.ID.String(),
				RelationshipType: rel.Type,
				FromID:           to,
				ToID:             from,
				Reversed:         true,
				Undirected:       true,
			})
		}
	}

	return g
}

// HasNode checks whether an element is present in the graph
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Nodes[id]
	return ok
}

// NodeCount returns the number of nodes in the graph
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges, synthetic reverse edges included
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.Outgoing {
		n += len(edges)
	}
	return n
}

func (g *Graph) addEdge(e *Edge) {
	g.Outgoing[e.FromID] = append(g.Outgoing[e.FromID], e)
	g.Incoming[e.ToID] = append(g.Incoming[e.ToID], e)
}

// step is one traversable move: the edge taken and the node it leads to
// under the current direction.
type step struct {
	edge *Edge
	next string
}

// steps enumerates the moves available from a node under a direction and
// an allowed relationship-type set, preserving edge insertion order.
func (g *Graph) steps(id string, types Filter, dir Direction) []step {
	var out []step
	if dir == DirectionOutgoing || dir == DirectionBoth {
		for _, e := range g.Outgoing[id] {
			if types.Allows(e.RelationshipType) {
				out = append(out, step{edge: e, next: e.ToID})
			}
		}
	}
	if dir == DirectionIncoming || dir == DirectionBoth {
		for _, e := range g.Incoming[id] {
			if types.Allows(e.RelationshipType) {
				out = append(out, step{edge: e, next: e.FromID})
			}
		}
	}
	return out
}
