package analysis

// TraceNode is a node in the traceability exploration graph. Depth is the
// minimum discovered distance from any seed; it only ever decreases when
// merging. The three booleans are OR-ed across merges: once true from any
// source, they stay true.
type TraceNode struct {
	ID       string `json:"id"`
	Depth    int    `json:"depth"`
	Pinned   bool   `json:"pinned"`
	Expanded bool   `json:"expanded"`
	Hidden   bool   `json:"hidden"`
}

// TraceEdge is an edge in the exploration graph. Its ID is derived from
// (relationship, from, to), so repeated discovery of the same edge is
// deduplicated by identity.
type TraceEdge struct {
	ID             string `json:"id"`
	RelationshipID string `json:"relationship_id,omitempty"`
	From           string `json:"from"`
	To             string `json:"to"`
	Type           string `json:"type,omitempty"`
}

// TraceEdgeID derives the deterministic identity of an exploration edge
func TraceEdgeID(relationshipID, from, to string) string {
	return relationshipID + ":" + from + "->" + to
}

// TraceFilters carries the raw filter inputs an exploration session was
// opened with. They are normalized per expansion call.
type TraceFilters struct {
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	Layers            []string `json:"layers,omitempty"`
	ElementTypes      []string `json:"element_types,omitempty"`
}

// TraceGraph is the persistent exploration state of one traceability
// session. It is created once per session and evolved only through
// ApplyExpansion; callers replace their copy wholesale with the returned
// state and never mutate fields in place.
type TraceGraph struct {
	Nodes     map[string]TraceNode `json:"nodes"`
	Edges     map[string]TraceEdge `json:"edges"`
	Frontier  map[string][]string  `json:"frontier"`
	Selection []string             `json:"selection"`
	Filters   TraceFilters         `json:"filters"`
	MaxDepth  int                  `json:"max_depth"`
}

// DefaultTraceDepth is the expansion depth used when a session does not
// specify one.
const DefaultTraceDepth = 3

// TraceOptions configures a new exploration session
type TraceOptions struct {
	MaxDepth int
	Filters  TraceFilters
}

// NewTraceGraph creates the initial exploration state for a set of seed
// elements. Seeds are pinned at depth 0 and not yet expanded.
func NewTraceGraph(seedIDs []string, opts *TraceOptions) *TraceGraph {
	state := &TraceGraph{
		Nodes:    make(map[string]TraceNode),
		Edges:    make(map[string]TraceEdge),
		Frontier: make(map[string][]string),
	}

	if opts != nil {
		state.MaxDepth = opts.MaxDepth
		state.Filters = opts.Filters
	}
	if state.MaxDepth <= 0 {
		state.MaxDepth = DefaultTraceDepth
	}

	for _, id := range seedIDs {
		if id == "" {
			continue
		}
		if _, exists := state.Nodes[id]; exists {
			continue
		}
		state.Nodes[id] = TraceNode{ID: id, Depth: 0, Pinned: true}
		state.Selection = append(state.Selection, id)
	}

	return state
}

// ApplyExpansion merges a patch into the state and returns the new state.
// The input state is never mutated. Applying the same patch twice
// produces the same state as applying it once: depths take the minimum,
// booleans OR, frontier parents union preserving first-seen order, and an
// edge is only added when its id is not already present.
func ApplyExpansion(state *TraceGraph, patch *ExpansionPatch) *TraceGraph {
	if state == nil {
		state = NewTraceGraph(nil, nil)
	}
	next := state.clone()
	if patch == nil {
		return next
	}

	if patch.RootID != "" {
		root, ok := next.Nodes[patch.RootID]
		if !ok {
			root = TraceNode{ID: patch.RootID, Depth: 0}
		}
		root.Expanded = true
		next.Nodes[patch.RootID] = root
	}

	for _, n := range patch.Nodes {
		if existing, ok := next.Nodes[n.ID]; ok {
			next.Nodes[n.ID] = mergeTraceNode(existing, n)
		} else {
			next.Nodes[n.ID] = n
		}
	}

	for _, e := range patch.Edges {
		if _, ok := next.Edges[e.ID]; !ok {
			next.Edges[e.ID] = e
		}
	}

	for id, parents := range patch.Frontier {
		next.Frontier[id] = mergeFrontier(next.Frontier[id], parents)
	}

	return next
}

// mergeTraceNode folds an incoming node into an existing one. Depth is
// monotonically non-increasing; the flags are monotonically OR-ed.
func mergeTraceNode(existing, incoming TraceNode) TraceNode {
	merged := existing
	if incoming.Depth < merged.Depth {
		merged.Depth = incoming.Depth
	}
	merged.Pinned = merged.Pinned || incoming.Pinned
	merged.Expanded = merged.Expanded || incoming.Expanded
	merged.Hidden = merged.Hidden || incoming.Hidden
	return merged
}

// mergeFrontier unions parent lists, de-duplicating while preserving
// first-seen order.
func mergeFrontier(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, lists := range [][]string{existing, incoming} {
		for _, p := range lists {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func (s *TraceGraph) clone() *TraceGraph {
	next := &TraceGraph{
		Nodes:    make(map[string]TraceNode, len(s.Nodes)),
		Edges:    make(map[string]TraceEdge, len(s.Edges)),
		Frontier: make(map[string][]string, len(s.Frontier)),
		Filters:  s.Filters,
		MaxDepth: s.MaxDepth,
	}
	for id, n := range s.Nodes {
		next.Nodes[id] = n
	}
	for id, e := range s.Edges {
		next.Edges[id] = e
	}
	for id, parents := range s.Frontier {
		cp := make([]string, len(parents))
		copy(cp, parents)
		next.Frontier[id] = cp
	}
	if s.Selection != nil {
		next.Selection = make([]string, len(s.Selection))
		copy(next.Selection, s.Selection)
	}
	return next
}
