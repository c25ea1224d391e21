package model

import (
	"errors"

	"github.com/google/uuid"
)

// RelationshipID is a value object identifying a relationship
type RelationshipID string

// NewRelationshipID creates a new random RelationshipID
func NewRelationshipID() RelationshipID {
	return RelationshipID(uuid.New().String())
}

// String returns the string representation
func (id RelationshipID) String() string {
	return string(id)
}

// Well-known relationship types. Notations may introduce additional
// types; the analysis engine treats the type as an opaque string.
const (
	RelationComposition    = "composition"
	RelationAggregation    = "aggregation"
	RelationAssignment     = "assignment"
	RelationRealization    = "realization"
	RelationServing        = "serving"
	RelationAccess         = "access"
	RelationInfluence      = "influence"
	RelationTriggering     = "triggering"
	RelationFlow           = "flow"
	RelationSpecialization = "specialization"
	RelationAssociation    = "association"
)

// Relationship is a typed, directed-by-default connection between two
// elements. Attrs carries notation-specific attributes; the only one the
// engine itself inspects is "isDirected".
type Relationship struct {
	ID       RelationshipID
	Type     string
	SourceID ElementID
	TargetID ElementID
	Attrs    map[string]interface{}
}

// NewRelationship creates a new relationship with a generated ID
func NewRelationship(relType string, sourceID, targetID ElementID) (*Relationship, error) {
	if relType == "" {
		return nil, errors.New("relationship type required")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, errors.New("relationship endpoints required")
	}
	return &Relationship{
		ID:       NewRelationshipID(),
		Type:     relType,
		SourceID: sourceID,
		TargetID: targetID,
		Attrs:    map[string]interface{}{},
	}, nil
}
