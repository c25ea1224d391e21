package handlers

import (
	"context"
	"fmt"

	"atlas-backend/application/ports"
	"atlas-backend/application/queries"
	"atlas-backend/domain/analysis"
	"atlas-backend/domain/model"

	"go.uber.org/zap"
)

// PathHandler answers reachability queries over a model's analysis graph
type PathHandler struct {
	modelRepo ports.ModelRepository
	logger    *zap.Logger
}

// NewPathHandler creates a new path query handler
func NewPathHandler(modelRepo ports.ModelRepository, logger *zap.Logger) *PathHandler {
	return &PathHandler{
		modelRepo: modelRepo,
		logger:    logger,
	}
}

// effectiveMaxHops treats an unset hop bound as the engine maximum.
// The engine clamps its own inputs to at least one hop, so passing a
// zero straight through would restrict searches to direct neighbors.
func effectiveMaxHops(maxHops int) int {
	if maxHops <= 0 {
		return analysis.MaxHopLimit
	}
	return maxHops
}

func (h *PathHandler) loadGraph(ctx context.Context, userID, modelID string) (*analysis.Graph, error) {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(modelID))
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	if m.UserID() != userID {
		return nil, fmt.Errorf("model does not belong to user")
	}
	return analysis.BuildGraph(m, analysis.AdapterForNotation(m.Notation())), nil
}

// HandleFindPath executes a shortest-path query
func (h *PathHandler) HandleFindPath(ctx context.Context, query queries.FindPathQuery) (*queries.FindPathResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	g, err := h.loadGraph(ctx, query.UserID, query.ModelID)
	if err != nil {
		return nil, err
	}

	path := g.ShortestPath(analysis.PathArgs{
		StartID:           query.SourceID,
		TargetID:          query.TargetID,
		Direction:         analysis.ParseDirection(query.Direction),
		RelationshipTypes: query.RelationshipTypes,
		MaxHops:           effectiveMaxHops(query.MaxHops),
	})

	result := &queries.FindPathResult{Path: path, Found: path != nil}
	if result.Found {
		result.Hops = len(path) - 1
	}

	h.logger.Debug("Shortest path computed",
		zap.String("modelID", query.ModelID),
		zap.String("sourceID", query.SourceID),
		zap.String("targetID", query.TargetID),
		zap.Bool("found", result.Found),
		zap.Int("hops", result.Hops),
	)

	return result, nil
}

// HandleFindPaths executes a k-shortest-paths query
func (h *PathHandler) HandleFindPaths(ctx context.Context, query queries.FindPathsQuery) (*queries.FindPathsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	g, err := h.loadGraph(ctx, query.UserID, query.ModelID)
	if err != nil {
		return nil, err
	}

	paths := g.KShortestPaths(analysis.PathArgs{
		StartID:           query.SourceID,
		TargetID:          query.TargetID,
		Direction:         analysis.ParseDirection(query.Direction),
		RelationshipTypes: query.RelationshipTypes,
		MaxHops:           effectiveMaxHops(query.MaxHops),
		K:                 query.K,
	})

	h.logger.Debug("Path enumeration computed",
		zap.String("modelID", query.ModelID),
		zap.String("sourceID", query.SourceID),
		zap.String("targetID", query.TargetID),
		zap.Int("count", len(paths)),
	)

	return &queries.FindPathsResult{Paths: paths}, nil
}
