package analysis

import (
	"atlas-backend/domain/model"
)

// Adapter gives a notation a say in how a relationship's directedness is
// resolved. Returning false from IsEdgeDirected marks the relationship as
// traversable both ways; an adapter can only make an edge more permissive,
// it can never force a relationship carrying an explicit undirected flag
// back to directed.
type Adapter interface {
	IsEdgeDirected(rel *model.Relationship, m *model.Model) bool
}

// ArchiMateAdapter resolves directedness for ArchiMate models.
// Associations are undirected unless the relationship says otherwise.
type ArchiMateAdapter struct{}

// IsEdgeDirected implements Adapter
func (ArchiMateAdapter) IsEdgeDirected(rel *model.Relationship, _ *model.Model) bool {
	if rel == nil {
		return true
	}
	return rel.Type != model.RelationAssociation
}

// UMLAdapter resolves directedness for UML models. Associations follow
// their navigability attribute; everything else is directed.
type UMLAdapter struct{}

// IsEdgeDirected implements Adapter
func (UMLAdapter) IsEdgeDirected(rel *model.Relationship, _ *model.Model) bool {
	if rel == nil {
		return true
	}
	if rel.Type != model.RelationAssociation {
		return true
	}
	if v, ok := rel.Attrs["navigable"]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// BPMNAdapter resolves directedness for BPMN models, where sequence and
// message flows are always directed.
type BPMNAdapter struct{}

// IsEdgeDirected implements Adapter
func (BPMNAdapter) IsEdgeDirected(_ *model.Relationship, _ *model.Model) bool {
	return true
}

// AdapterForNotation returns the adapter for a notation name, or nil when
// the notation has no directedness overrides.
func AdapterForNotation(notation string) Adapter {
	switch notation {
	case "archimate":
		return ArchiMateAdapter{}
	case "uml":
		return UMLAdapter{}
	case "bpmn":
		return BPMNAdapter{}
	default:
		return nil
	}
}
