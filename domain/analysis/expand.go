package analysis

import (
	"strings"

	"atlas-backend/domain/model"
)

// StopConditions halt further expansion through a node without excluding
// the node itself. AtDepth caps the expansion depth when positive;
// AtLayers and AtTypes name layers and element types that are included
// when discovered but never expanded from.
type StopConditions struct {
	AtDepth  int      `json:"at_depth,omitempty"`
	AtLayers []string `json:"at_layers,omitempty"`
	AtTypes  []string `json:"at_types,omitempty"`
}

// ExpandRequest describes one bounded expansion from a root node
type ExpandRequest struct {
	NodeID            string         `json:"node_id"`
	Direction         Direction      `json:"direction"`
	Depth             int            `json:"depth"`
	RelationshipTypes []string       `json:"relationship_types,omitempty"`
	Layers            []string       `json:"layers,omitempty"`
	ElementTypes      []string       `json:"element_types,omitempty"`
	Stop              StopConditions `json:"stop,omitempty"`
}

// ExpansionPatch is the additive result of one expansion call. It is the
// only way a TraceGraph advances: compute a patch, then merge it with
// ApplyExpansion. The separation keeps repeated application idempotent.
type ExpansionPatch struct {
	RootID   string              `json:"root_id"`
	Nodes    []TraceNode         `json:"nodes"`
	Edges    []TraceEdge         `json:"edges"`
	Frontier map[string][]string `json:"frontier,omitempty"`
}

// ExpandFromNode performs a bounded breadth-first expansion from the
// request's root over the model's analysis graph. A missing root is not
// an error; it yields an empty, well-formed patch.
func ExpandFromNode(m *model.Model, adapter Adapter, req ExpandRequest) *ExpansionPatch {
	patch := &ExpansionPatch{
		RootID:   req.NodeID,
		Nodes:    []TraceNode{},
		Edges:    []TraceEdge{},
		Frontier: map[string][]string{},
	}

	g := BuildGraph(m, adapter)
	if !g.HasNode(req.NodeID) {
		return patch
	}

	depth := req.Depth
	if req.Stop.AtDepth > 0 && req.Stop.AtDepth < depth {
		depth = req.Stop.AtDepth
	}
	if depth < 0 {
		depth = 0
	}
	if depth > MaxHopLimit {
		depth = MaxHopLimit
	}

	relTypes := NormalizeRelationshipTypes(req.RelationshipTypes)
	layers := NormalizeLayers(req.Layers)
	elTypes := NormalizeElementTypes(req.ElementTypes)
	stopLayers := NormalizeLayers(req.Stop.AtLayers)
	stopTypes := NormalizeElementTypes(req.Stop.AtTypes)

	dir := req.Direction
	if dir == "" {
		dir = DirectionOutgoing
	}

	// seenDepth tracks the minimum depth each node was reached at within
	// this call: a node found again by a longer route is not re-enqueued,
	// one found by a shorter route is, so converging routes neither
	// duplicate work nor prune incorrectly.
	seenDepth := map[string]int{req.NodeID: 0}
	nodeIndex := map[string]int{}
	edgeSeen := map[string]bool{}

	type item struct {
		id    string
		depth int
	}
	queue := []item{{id: req.NodeID, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= depth {
			continue
		}
		if cur.id != req.NodeID && stopsExpansion(g.Nodes[cur.id], stopLayers, stopTypes) {
			continue
		}

		for _, st := range g.steps(cur.id, relTypes, dir) {
			el := g.Nodes[st.next]
			if !PassesLayerFilter(el, layers) || !PassesElementTypeFilter(el, elTypes) {
				continue
			}

			nextDepth := cur.depth + 1

			edgeID := TraceEdgeID(st.edge.RelationshipID, st.edge.FromID, st.edge.ToID)
			if !edgeSeen[edgeID] {
				edgeSeen[edgeID] = true
				patch.Edges = append(patch.Edges, TraceEdge{
					ID:             edgeID,
					RelationshipID: st.edge.RelationshipID,
					From:           st.edge.FromID,
					To:             st.edge.ToID,
					Type:           st.edge.RelationshipType,
				})
			}

			if st.next != req.NodeID {
				patch.Frontier[st.next] = appendUnique(patch.Frontier[st.next], cur.id)
			}

			prev, seen := seenDepth[st.next]
			if seen && nextDepth >= prev {
				continue
			}
			seenDepth[st.next] = nextDepth

			if st.next != req.NodeID {
				if idx, ok := nodeIndex[st.next]; ok {
					if nextDepth < patch.Nodes[idx].Depth {
						patch.Nodes[idx].Depth = nextDepth
					}
				} else {
					nodeIndex[st.next] = len(patch.Nodes)
					patch.Nodes = append(patch.Nodes, TraceNode{ID: st.next, Depth: nextDepth})
				}
			}

			queue = append(queue, item{id: st.next, depth: nextDepth})
		}
	}

	return patch
}

// stopsExpansion reports whether a node's layer or type halts traversal
// through it. The node itself was already included by its discoverer.
func stopsExpansion(el *model.Element, stopLayers, stopTypes Filter) bool {
	if el == nil {
		return false
	}
	return stopLayers.Contains(strings.ToLower(string(el.Layer))) || stopTypes.Contains(el.Type)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
