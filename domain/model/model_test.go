package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel(t *testing.T) {
	m, err := NewModel("user-1", "Payments Landscape", "")
	require.NoError(t, err)

	assert.Equal(t, "user-1", m.UserID())
	assert.Equal(t, "archimate", m.Notation(), "notation defaults to archimate")
	assert.Len(t, m.GetUncommittedEvents(), 1)

	_, err = NewModel("", "x", "archimate")
	assert.Error(t, err)
	_, err = NewModel("user-1", "", "archimate")
	assert.Error(t, err)
}

func TestAddRelationshipRequiresEndpoints(t *testing.T) {
	m, err := NewModel("user-1", "m", "archimate")
	require.NoError(t, err)

	a, _ := NewElement("a", "application-component", LayerApplication)
	require.NoError(t, m.AddElement(a))

	rel, _ := NewRelationship(RelationServing, a.ID, "missing")
	assert.Error(t, m.AddRelationship(rel))

	b, _ := NewElement("b", "application-component", LayerApplication)
	require.NoError(t, m.AddElement(b))
	rel2, _ := NewRelationship(RelationServing, a.ID, b.ID)
	assert.NoError(t, m.AddRelationship(rel2))
}

func TestRelationshipsKeepInsertionOrder(t *testing.T) {
	m, _ := NewModel("user-1", "m", "archimate")

	var els []*Element
	for _, name := range []string{"a", "b", "c"} {
		el, _ := NewElement(name, "application-component", LayerApplication)
		require.NoError(t, m.AddElement(el))
		els = append(els, el)
	}

	r1, _ := NewRelationship(RelationServing, els[0].ID, els[1].ID)
	r2, _ := NewRelationship(RelationFlow, els[1].ID, els[2].ID)
	r3, _ := NewRelationship(RelationAccess, els[0].ID, els[2].ID)
	for _, r := range []*Relationship{r1, r2, r3} {
		require.NoError(t, m.AddRelationship(r))
	}

	rels := m.Relationships()
	require.Len(t, rels, 3)
	assert.Equal(t, r1.ID, rels[0].ID)
	assert.Equal(t, r2.ID, rels[1].ID)
	assert.Equal(t, r3.ID, rels[2].ID)

	require.NoError(t, m.RemoveRelationship(r2.ID))
	rels = m.Relationships()
	require.Len(t, rels, 2)
	assert.Equal(t, r1.ID, rels[0].ID)
	assert.Equal(t, r3.ID, rels[1].ID)
	assert.NoError(t, m.Validate())
}

func TestRemoveElementCascadesRelationships(t *testing.T) {
	m, _ := NewModel("user-1", "m", "archimate")

	a, _ := NewElement("a", "application-component", LayerApplication)
	b, _ := NewElement("b", "application-component", LayerApplication)
	c, _ := NewElement("c", "application-component", LayerApplication)
	for _, el := range []*Element{a, b, c} {
		require.NoError(t, m.AddElement(el))
	}

	ab, _ := NewRelationship(RelationServing, a.ID, b.ID)
	bc, _ := NewRelationship(RelationServing, b.ID, c.ID)
	ac, _ := NewRelationship(RelationServing, a.ID, c.ID)
	for _, r := range []*Relationship{ab, bc, ac} {
		require.NoError(t, m.AddRelationship(r))
	}

	require.NoError(t, m.RemoveElement(b.ID))

	assert.False(t, m.HasElement(b.ID))
	assert.Equal(t, 1, m.RelationshipCount())
	_, ok := m.Relationship(ac.ID)
	assert.True(t, ok)
	assert.NoError(t, m.Validate())
}

func TestRestoreToleratesDanglingRelationships(t *testing.T) {
	m, err := ReconstructModel("m1", "user-1", "m", "archimate", "", "")
	require.NoError(t, err)

	m.RestoreElement(&Element{ID: "a", Name: "a", Type: "node", Layer: LayerTechnology})
	m.RestoreRelationship(&Relationship{ID: "r1", Type: RelationServing, SourceID: "a", TargetID: "gone"})
	m.RestoreRelationship(&Relationship{ID: "r1", Type: RelationServing, SourceID: "a", TargetID: "gone"})

	assert.Equal(t, 1, m.RelationshipCount())
	assert.NoError(t, m.Validate())
}
