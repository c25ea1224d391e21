package commands

import (
	"context"
	"strings"
	"testing"

	"atlas-backend/application/ports"
	"atlas-backend/domain/events"
	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubModelRepo struct {
	ports.ModelRepository
	owned []*model.Model
	saved *model.Model
}

func (r *stubModelRepo) GetByUserID(ctx context.Context, userID string) ([]*model.Model, error) {
	return r.owned, nil
}

func (r *stubModelRepo) Save(ctx context.Context, m *model.Model) error {
	r.saved = m
	return nil
}

type nopEventBus struct{}

func (nopEventBus) Publish(ctx context.Context, event events.DomainEvent) error { return nil }

func (nopEventBus) PublishBatch(ctx context.Context, evs []events.DomainEvent) error { return nil }

func ownedModels(t *testing.T, n int) []*model.Model {
	t.Helper()
	owned := make([]*model.Model, 0, n)
	for i := 0; i < n; i++ {
		m, err := model.ReconstructModel(model.NewModelID().String(), "user-1", "existing", "archimate", "", "")
		require.NoError(t, err)
		owned = append(owned, m)
	}
	return owned
}

func TestSetLimitsChangesNameValidation(t *testing.T) {
	t.Cleanup(func() { SetLimits(100, 200) })

	cmd := CreateModelCommand{UserID: "user-1", Name: strings.Repeat("n", 150)}
	require.NoError(t, cmd.Validate())

	// A reload lowers the bound; in-flight validation picks it up
	SetLimits(0, 100)
	require.Error(t, cmd.Validate())
	assert.Equal(t, 100, MaxNameLength())

	// Non-positive values keep the current limits
	SetLimits(-1, 0)
	assert.Equal(t, 100, MaxModelsPerUser())
	assert.Equal(t, 100, MaxNameLength())
}

func TestCreateModelEnforcesPerUserCap(t *testing.T) {
	t.Cleanup(func() { SetLimits(100, 200) })
	SetLimits(2, 200)

	repo := &stubModelRepo{owned: ownedModels(t, 2)}
	h := NewCreateModelHandler(repo, nopEventBus{}, zap.NewNop())

	_, err := h.Handle(context.Background(), CreateModelCommand{UserID: "user-1", Name: "one too many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model limit reached")
	assert.Nil(t, repo.saved)

	// Raising the cap lets the same create through
	SetLimits(3, 200)
	m, err := h.Handle(context.Background(), CreateModelCommand{UserID: "user-1", Name: "one too many"})
	require.NoError(t, err)
	assert.Equal(t, m, repo.saved)
}
