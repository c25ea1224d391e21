package analysis

import (
	"atlas-backend/domain/model"
)

// ResolveUndirected decides whether a relationship may be traversed from
// target back to source as well. The baseline rule is notation-agnostic:
// an explicit boolean false under the "isDirected" attribute makes the
// relationship undirected. Absence of the flag, or a value of any other
// shape, means directed. An adapter may then widen the result, never
// narrow it. Malformed attributes degrade to directed rather than fail.
func ResolveUndirected(rel *model.Relationship, m *model.Model, adapter Adapter) bool {
	if rel == nil {
		return false
	}

	undirected := false
	if v, ok := rel.Attrs["isDirected"]; ok {
		if b, ok := v.(bool); ok && !b {
			undirected = true
		}
	}

	if !undirected && adapter != nil && !adapter.IsEdgeDirected(rel, m) {
		undirected = true
	}

	return undirected
}
