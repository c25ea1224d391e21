package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"atlas-backend/application/commands"
	"atlas-backend/application/queries"
	queryhandlers "atlas-backend/application/queries/handlers"
	"atlas-backend/application/services"
	"atlas-backend/domain/analysis"
	"atlas-backend/domain/events"
	"atlas-backend/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The tests run the command handlers, query handlers and trace service
// against an in-memory repository, covering the paths the HTTP layer
// exercises without standing up DynamoDB.

type memoryModelRepo struct {
	mu     sync.Mutex
	models map[model.ModelID]*model.Model
}

func newMemoryModelRepo() *memoryModelRepo {
	return &memoryModelRepo{models: make(map[model.ModelID]*model.Model)}
}

func (r *memoryModelRepo) Save(_ context.Context, m *model.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.ID()] = m
	return nil
}

func (r *memoryModelRepo) GetByID(_ context.Context, id model.ModelID) (*model.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("model not found: %s", id.String())
	}
	return m, nil
}

func (r *memoryModelRepo) GetByUserID(_ context.Context, userID string) ([]*model.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Model
	for _, m := range r.models {
		if m.UserID() == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryModelRepo) SaveElement(_ context.Context, _ model.ModelID, _ *model.Element) error {
	return nil
}

func (r *memoryModelRepo) DeleteElement(_ context.Context, _ model.ModelID, _ model.ElementID) error {
	return nil
}

func (r *memoryModelRepo) SaveRelationship(_ context.Context, _ model.ModelID, _ *model.Relationship) error {
	return nil
}

func (r *memoryModelRepo) DeleteRelationship(_ context.Context, _ model.ModelID, _ model.RelationshipID) error {
	return nil
}

func (r *memoryModelRepo) Delete(_ context.Context, id model.ModelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, id)
	return nil
}

type capturingBus struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (b *capturingBus) Publish(_ context.Context, e events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *capturingBus) PublishBatch(_ context.Context, evs []events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evs...)
	return nil
}

func (b *capturingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type noopNotifier struct{}

func (noopNotifier) NotifyModelChanged(context.Context, string, string) error { return nil }

type fixture struct {
	repo   *memoryModelRepo
	bus    *capturingBus
	logger *zap.Logger

	createModel        *commands.CreateModelHandler
	createElement      *commands.CreateElementHandler
	createRelationship *commands.CreateRelationshipHandler
	deleteModel        *commands.DeleteModelHandler

	getModel *queryhandlers.GetModelHandler
	paths    *queryhandlers.PathHandler
	trace    *services.TraceSessionService
}

func newFixture() *fixture {
	repo := newMemoryModelRepo()
	bus := &capturingBus{}
	logger := zap.NewNop()
	notifier := noopNotifier{}

	return &fixture{
		repo:               repo,
		bus:                bus,
		logger:             logger,
		createModel:        commands.NewCreateModelHandler(repo, bus, logger),
		createElement:      commands.NewCreateElementHandler(repo, bus, notifier, logger),
		createRelationship: commands.NewCreateRelationshipHandler(repo, bus, notifier, logger),
		deleteModel:        commands.NewDeleteModelHandler(repo, bus, notifier, logger),
		getModel:           queryhandlers.NewGetModelHandler(repo, logger),
		paths:              queryhandlers.NewPathHandler(repo, logger),
		trace:              services.NewTraceSessionService(repo, nil, logger),
	}
}

// buildServiceChain creates a model with a linear serving chain
// a -> b -> c and returns the element ids in order.
func buildServiceChain(t *testing.T, f *fixture, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	m, err := f.createModel.Handle(ctx, commands.CreateModelCommand{
		UserID:   userID,
		Name:     "Payment Landscape",
		Notation: "archimate",
	})
	require.NoError(t, err)
	modelID := m.ID().String()

	var ids []string
	for _, name := range []string{"Portal", "Payment Service", "Ledger DB"} {
		el, err := f.createElement.Handle(ctx, commands.CreateElementCommand{
			UserID:  userID,
			ModelID: modelID,
			Name:    name,
			Type:    "application-component",
			Layer:   "application",
		})
		require.NoError(t, err)
		ids = append(ids, el.ID.String())
	}

	for i := 0; i+1 < len(ids); i++ {
		_, err := f.createRelationship.Handle(ctx, commands.CreateRelationshipCommand{
			UserID:   userID,
			ModelID:  modelID,
			Type:     "serving",
			SourceID: ids[i],
			TargetID: ids[i+1],
		})
		require.NoError(t, err)
	}

	return modelID, ids
}

func TestModelLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	modelID, _ := buildServiceChain(t, f, "user-1")

	result, err := f.getModel.Handle(ctx, queries.GetModelQuery{
		UserID:  "user-1",
		ModelID: modelID,
	})
	require.NoError(t, err)
	assert.Len(t, result.Elements, 3)
	assert.Len(t, result.Relationships, 2)
	assert.NotEmpty(t, result.Checksum)

	// Ownership is enforced on reads
	_, err = f.getModel.Handle(ctx, queries.GetModelQuery{
		UserID:  "someone-else",
		ModelID: modelID,
	})
	assert.Error(t, err)

	require.NoError(t, f.deleteModel.Handle(ctx, commands.DeleteModelCommand{
		UserID:  "user-1",
		ModelID: modelID,
	}))
	_, err = f.getModel.Handle(ctx, queries.GetModelQuery{
		UserID:  "user-1",
		ModelID: modelID,
	})
	assert.Error(t, err)

	types := f.bus.types()
	assert.Contains(t, types, "model.created")
	assert.Contains(t, types, "model.element_added")
	assert.Contains(t, types, "model.relationship_added")
	assert.Contains(t, types, "model.deleted")
}

func TestDeleteModelRejectsForeignUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	modelID, _ := buildServiceChain(t, f, "user-1")

	err := f.deleteModel.Handle(ctx, commands.DeleteModelCommand{
		UserID:  "intruder",
		ModelID: modelID,
	})
	require.Error(t, err)

	// Still there for the owner
	_, err = f.getModel.Handle(ctx, queries.GetModelQuery{
		UserID:  "user-1",
		ModelID: modelID,
	})
	assert.NoError(t, err)
}

func TestPathQueriesOverCommandBuiltModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	modelID, ids := buildServiceChain(t, f, "user-1")

	result, err := f.paths.HandleFindPath(ctx, queries.FindPathQuery{
		UserID:   "user-1",
		ModelID:  modelID,
		SourceID: ids[0],
		TargetID: ids[2],
	})
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, []string{ids[0], ids[1], ids[2]}, result.Path)
	assert.Equal(t, 2, result.Hops)

	// Serving edges are directed, so the reverse direction finds nothing
	reverse, err := f.paths.HandleFindPath(ctx, queries.FindPathQuery{
		UserID:   "user-1",
		ModelID:  modelID,
		SourceID: ids[2],
		TargetID: ids[0],
	})
	require.NoError(t, err)
	assert.False(t, reverse.Found)

	multi, err := f.paths.HandleFindPaths(ctx, queries.FindPathsQuery{
		UserID:   "user-1",
		ModelID:  modelID,
		SourceID: ids[0],
		TargetID: ids[2],
		K:        3,
	})
	require.NoError(t, err)
	require.Len(t, multi.Paths, 1)
	assert.Equal(t, []string{ids[0], ids[1], ids[2]}, multi.Paths[0])
}

func TestTraceSessionOverCommandBuiltModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	modelID, ids := buildServiceChain(t, f, "user-1")

	sessionID, state, err := f.trace.Open(ctx, services.OpenTraceInput{
		UserID:  "user-1",
		ModelID: modelID,
		SeedIDs: []string{ids[0]},
	})
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 1)
	assert.True(t, state.Nodes[ids[0]].Pinned)

	state, err = f.trace.Expand(ctx, "user-1", sessionID, analysis.ExpandRequest{
		NodeID:    ids[0],
		Direction: analysis.DirectionOutgoing,
		Depth:     2,
	})
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 3)
	assert.Len(t, state.Edges, 2)

	// Expanding the same node again must not change the state
	again, err := f.trace.Expand(ctx, "user-1", sessionID, analysis.ExpandRequest{
		NodeID:    ids[0],
		Direction: analysis.DirectionOutgoing,
		Depth:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, len(state.Nodes), len(again.Nodes))
	assert.Equal(t, len(state.Edges), len(again.Edges))

	f.trace.Close("user-1", sessionID)
	_, err = f.trace.Get("user-1", sessionID)
	assert.Error(t, err)
}
