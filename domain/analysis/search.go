package analysis

// Direction selects which adjacency a search follows from each frontier
// node: outgoing edges, incoming edges (walking relationships backwards),
// or the union of both.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// ParseDirection maps a raw string to a Direction, defaulting to outgoing
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case DirectionIncoming:
		return DirectionIncoming
	case DirectionBoth:
		return DirectionBoth
	default:
		return DirectionOutgoing
	}
}

// Search bounds. Out-of-range inputs are clamped, never rejected.
const (
	MaxHopLimit  = 16
	MaxPathCount = 32
)

func clampHops(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxHopLimit {
		return MaxHopLimit
	}
	return n
}

func clampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxPathCount {
		return MaxPathCount
	}
	return k
}

// PathArgs bundles the parameters of a path search
type PathArgs struct {
	StartID           string
	TargetID          string
	Direction         Direction
	RelationshipTypes []string
	MaxHops           int
	K                 int
}

// ShortestPath runs a breadth-first search from StartID to TargetID and
// returns the first-discovered shortest path as a list of node ids, start
// and target inclusive, or nil when the target is unreachable within
// MaxHops edges. Ties resolve to whichever path was discovered first
// under the graph's edge insertion order. Missing endpoints yield nil.
func (g *Graph) ShortestPath(args PathArgs) []string {
	if g == nil || !g.HasNode(args.StartID) || !g.HasNode(args.TargetID) {
		return nil
	}
	if args.StartID == args.TargetID {
		return []string{args.StartID}
	}

	maxHops := clampHops(args.MaxHops)
	types := NormalizeRelationshipTypes(args.RelationshipTypes)

	visited := map[string]bool{args.StartID: true}
	parent := map[string]string{}
	frontier := []string{args.StartID}

	for hops := 0; hops < maxHops && len(frontier) > 0; hops++ {
		var next []string
		for _, cur := range frontier {
			for _, st := range g.steps(cur, types, args.Direction) {
				if visited[st.next] {
					continue
				}
				visited[st.next] = true
				parent[st.next] = cur
				if st.next == args.TargetID {
					return reconstructPath(parent, args.StartID, args.TargetID)
				}
				next = append(next, st.next)
			}
		}
		frontier = next
	}

	return nil
}

// KShortestPaths enumerates up to K distinct loopless paths from StartID
// to TargetID in non-decreasing length / discovery order. Every returned
// path is free of repeated nodes even when the graph has cycles back
// through visited nodes. Missing endpoints yield an empty result.
func (g *Graph) KShortestPaths(args PathArgs) [][]string {
	results := [][]string{}
	if g == nil || !g.HasNode(args.StartID) || !g.HasNode(args.TargetID) {
		return results
	}

	k := clampK(args.K)
	if args.StartID == args.TargetID {
		return append(results, []string{args.StartID})
	}

	maxHops := clampHops(args.MaxHops)
	types := NormalizeRelationshipTypes(args.RelationshipTypes)

	queue := [][]string{{args.StartID}}
	for len(queue) > 0 && len(results) < k {
		path := queue[0]
		queue = queue[1:]

		if len(path)-1 >= maxHops {
			continue
		}

		last := path[len(path)-1]
		for _, st := range g.steps(last, types, args.Direction) {
			if containsNode(path, st.next) {
				continue
			}

			next := make([]string, len(path)+1)
			copy(next, path)
			next[len(path)] = st.next

			if st.next == args.TargetID {
				results = append(results, next)
				if len(results) >= k {
					break
				}
				continue
			}
			queue = append(queue, next)
		}
	}

	return results
}

func reconstructPath(parent map[string]string, start, target string) []string {
	path := []string{target}
	for cur := target; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func containsNode(path []string, id string) bool {
	for _, n := range path {
		if n == id {
			return true
		}
	}
	return false
}
