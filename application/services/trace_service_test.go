package services

import (
	"context"
	"testing"
	"time"

	"atlas-backend/application/ports"
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

func smallModel(t *testing.T) *model.Model {
	t.Helper()

	m, err := model.ReconstructModel("m1", "user-1", "portfolio", "archimate", "", "")
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		m.RestoreElement(&model.Element{
			ID:    model.ElementID(id),
			Name:  id,
			Type:  "application-component",
			Layer: model.LayerApplication,
		})
	}
	m.RestoreRelationship(&model.Relationship{
		ID:       "ab",
		Type:     model.RelationServing,
		SourceID: "a",
		TargetID: "b",
	})
	return m
}

func TestOpenUsesRuntimeDefaultDepth(t *testing.T) {
	depth := 5
	defaults := func() TraceDefaults {
		return TraceDefaults{DefaultDepth: depth, MaxOpenSessions: 10, SessionTTL: time.Hour}
	}
	svc := NewTraceSessionService(&singleModelRepo{m: smallModel(t)}, defaults, zap.NewNop())

	_, state, err := svc.Open(context.Background(), OpenTraceInput{
		UserID:  "user-1",
		ModelID: "m1",
		SeedIDs: []string{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, state.MaxDepth)

	// A configuration reload changes what the provider returns; the next
	// session picks it up without a restart.
	depth = 7
	_, state, err = svc.Open(context.Background(), OpenTraceInput{
		UserID:  "user-1",
		ModelID: "m1",
		SeedIDs: []string{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, state.MaxDepth)
}

func TestOpenKeepsExplicitDepth(t *testing.T) {
	svc := NewTraceSessionService(&singleModelRepo{m: smallModel(t)}, nil, zap.NewNop())

	_, state, err := svc.Open(context.Background(), OpenTraceInput{
		UserID:   "user-1",
		ModelID:  "m1",
		SeedIDs:  []string{"a"},
		MaxDepth: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, state.MaxDepth)
}

func TestOpenEnforcesSessionCap(t *testing.T) {
	defaults := func() TraceDefaults {
		return TraceDefaults{DefaultDepth: 3, MaxOpenSessions: 1, SessionTTL: time.Hour}
	}
	svc := NewTraceSessionService(&singleModelRepo{m: smallModel(t)}, defaults, zap.NewNop())

	ctx := context.Background()
	input := OpenTraceInput{UserID: "user-1", ModelID: "m1", SeedIDs: []string{"a"}}

	sessionID, _, err := svc.Open(ctx, input)
	require.NoError(t, err)

	_, _, err = svc.Open(ctx, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many open trace sessions")

	// Closing frees the slot
	svc.Close("user-1", sessionID)
	_, _, err = svc.Open(ctx, input)
	require.NoError(t, err)
}

func TestIdleSessionsExpire(t *testing.T) {
	ttl := time.Hour
	defaults := func() TraceDefaults {
		return TraceDefaults{DefaultDepth: 3, MaxOpenSessions: 10, SessionTTL: ttl}
	}
	svc := NewTraceSessionService(&singleModelRepo{m: smallModel(t)}, defaults, zap.NewNop())

	ctx := context.Background()
	sessionID, _, err := svc.Open(ctx, OpenTraceInput{
		UserID:  "user-1",
		ModelID: "m1",
		SeedIDs: []string{"a"},
	})
	require.NoError(t, err)

	_, err = svc.Get("user-1", sessionID)
	require.NoError(t, err)

	// Shrinking the TTL below the session's idle time makes it unreachable
	ttl = time.Nanosecond
	time.Sleep(10 * time.Millisecond)
	_, err = svc.Get("user-1", sessionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
