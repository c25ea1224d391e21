package analysis

import (
	"testing"

	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCollapsesEmptyToUnrestricted(t *testing.T) {
	assert.Nil(t, NormalizeRelationshipTypes(nil))
	assert.Nil(t, NormalizeRelationshipTypes([]string{}))
	assert.Nil(t, NormalizeRelationshipTypes([]string{"", "   ", "\t"}))
	assert.Nil(t, NormalizeLayers([]string{""}))
	assert.Nil(t, NormalizeElementTypes(nil))
}

func TestNormalizeTrimsAndDedupes(t *testing.T) {
	f := NormalizeRelationshipTypes([]string{" serving ", "serving", "flow", ""})
	assert.Len(t, f, 2)
	assert.True(t, f.Allows("serving"))
	assert.True(t, f.Allows("flow"))
	assert.False(t, f.Allows("access"))
}

func TestNormalizeLayersFoldsCase(t *testing.T) {
	f := NormalizeLayers([]string{"Business", "TECHNOLOGY"})
	assert.True(t, f.Allows("business"))
	assert.True(t, f.Allows("technology"))
}

func TestFilterNilSemantics(t *testing.T) {
	var unrestricted Filter
	assert.True(t, unrestricted.Allows("anything"))
	assert.False(t, unrestricted.Contains("anything"), "a nil stop set never stops")
}

func TestLayerAndTypePredicates(t *testing.T) {
	el := &model.Element{ID: "e1", Name: "e1", Type: "application-component", Layer: model.LayerApplication}

	assert.True(t, PassesLayerFilter(el, nil))
	assert.True(t, PassesLayerFilter(el, NormalizeLayers([]string{"Application"})))
	assert.False(t, PassesLayerFilter(el, NormalizeLayers([]string{"business"})))
	assert.False(t, PassesLayerFilter(nil, nil))

	assert.True(t, PassesElementTypeFilter(el, nil))
	assert.True(t, PassesElementTypeFilter(el, NormalizeElementTypes([]string{"application-component"})))
	assert.False(t, PassesElementTypeFilter(el, NormalizeElementTypes([]string{"node"})))
	assert.False(t, PassesElementTypeFilter(nil, nil))
}
