package handlers

import (
	"context"
	"testing"

	"atlas-backend/application/ports"
	"atlas-backend/application/queries"
	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// singleModelRepo serves one model by id; everything else panics.
type singleModelRepo struct {
	ports.ModelRepository
	m *model.Model
}

func (r *singleModelRepo) GetByID(ctx context.Context, id model.ModelID) (*model.Model, error) {
	return r.m, nil
}

// fourHopChain builds s -> a -> b -> c -> t over serving relationships.
func fourHopChain(t *testing.T) *model.Model {
	t.Helper()

	m, err := model.ReconstructModel("m1", "user-1", "chain", "archimate", "", "")
	require.NoError(t, err)

	ids := []string{"s", "a", "b", "c", "t"}
	for _, id := range ids {
		m.RestoreElement(&model.Element{
			ID:    model.ElementID(id),
			Name:  id,
			Type:  "application-component",
			Layer: model.LayerApplication,
		})
	}
	for i := 0; i < len(ids)-1; i++ {
		m.RestoreRelationship(&model.Relationship{
			ID:       model.RelationshipID(ids[i] + ids[i+1]),
			Type:     model.RelationServing,
			SourceID: model.ElementID(ids[i]),
			TargetID: model.ElementID(ids[i+1]),
		})
	}
	return m
}

func TestFindPathDefaultsHopBound(t *testing.T) {
	h := NewPathHandler(&singleModelRepo{m: fourHopChain(t)}, zap.NewNop())

	// MaxHops left unset must mean unbounded search, not one hop
	result, err := h.HandleFindPath(context.Background(), queries.FindPathQuery{
		UserID:   "user-1",
		ModelID:  "m1",
		SourceID: "s",
		TargetID: "t",
	})
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, []string{"s", "a", "b", "c", "t"}, result.Path)
	assert.Equal(t, 4, result.Hops)
}

func TestFindPathExplicitHopBoundStillApplies(t *testing.T) {
	h := NewPathHandler(&singleModelRepo{m: fourHopChain(t)}, zap.NewNop())

	result, err := h.HandleFindPath(context.Background(), queries.FindPathQuery{
		UserID:   "user-1",
		ModelID:  "m1",
		SourceID: "s",
		TargetID: "t",
		MaxHops:  2,
	})
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Nil(t, result.Path)
}

func TestFindPathsDefaultsHopBound(t *testing.T) {
	h := NewPathHandler(&singleModelRepo{m: fourHopChain(t)}, zap.NewNop())

	result, err := h.HandleFindPaths(context.Background(), queries.FindPathsQuery{
		UserID:   "user-1",
		ModelID:  "m1",
		SourceID: "s",
		TargetID: "t",
		K:        3,
	})
	require.NoError(t, err)
	require.Len(t, result.Paths, 1)
	assert.Equal(t, []string{"s", "a", "b", "c", "t"}, result.Paths[0])
}
