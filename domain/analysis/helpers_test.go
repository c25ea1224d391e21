package analysis

import (
	"fmt"
	"testing"

	"atlas-backend/domain/model"
)

// testElement describes a fixture element
type testElement struct {
	id    string
	typ   string
	layer model.Layer
}

// testRelationship describes a fixture relationship
type testRelationship struct {
	id     string
	typ    string
	source string
	target string
	attrs  map[string]interface{}
}

func buildTestModel(t *testing.T, elements []testElement, relationships []testRelationship) *model.Model {
	t.Helper()

	m, err := model.ReconstructModel("m1", "user-1", "test model", "archimate", "", "")
	if err != nil {
		t.Fatalf("reconstruct model: %v", err)
	}

	for _, el := range elements {
		typ := el.typ
		if typ == "" {
			typ = "application-component"
		}
		layer := el.layer
		if layer == "" {
			layer = model.LayerApplication
		}
		m.RestoreElement(&model.Element{
			ID:    model.ElementID(el.id),
			Name:  el.id,
			Type:  typ,
			Layer: layer,
		})
	}

	for _, rel := range relationships {
		typ := rel.typ
		if typ == "" {
			typ = model.RelationServing
		}
		m.RestoreRelationship(&model.Relationship{
			ID:       model.RelationshipID(rel.id),
			Type:     typ,
			SourceID: model.ElementID(rel.source),
			TargetID: model.ElementID(rel.target),
			Attrs:    rel.attrs,
		})
	}

	return m
}

// edgesAlong builds serving relationships r1..rn along the given
// source/target pairs, in order.
func edgesAlong(pairs ...[2]string) []testRelationship {
	rels := make([]testRelationship, 0, len(pairs))
	for i, pair := range pairs {
		rels = append(rels, testRelationship{
			id:     fmt.Sprintf("r%d", i+1),
			typ:    model.RelationServing,
			source: pair[0],
			target: pair[1],
		})
	}
	return rels
}
