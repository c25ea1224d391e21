package handlers

import (
	"context"
	"fmt"
	"time"

	"atlas-backend/application/ports"
	"atlas-backend/application/queries"
	"atlas-backend/domain/model"
	"atlas-backend/domain/versioning"

	"go.uber.org/zap"
)

// GetModelHandler handles model data queries
type GetModelHandler struct {
	modelRepo ports.ModelRepository
	logger    *zap.Logger
}

// NewGetModelHandler creates a new model data handler
func NewGetModelHandler(modelRepo ports.ModelRepository, logger *zap.Logger) *GetModelHandler {
	return &GetModelHandler{
		modelRepo: modelRepo,
		logger:    logger,
	}
}

// Handle executes the model data query
func (h *GetModelHandler) Handle(ctx context.Context, query queries.GetModelQuery) (*queries.GetModelResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	m, err := h.modelRepo.GetByID(ctx, model.ModelID(query.ModelID))
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	if m.UserID() != query.UserID {
		return nil, fmt.Errorf("model does not belong to user")
	}

	checksum, err := versioning.Checksum(m)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint model: %w", err)
	}

	result := &queries.GetModelResult{
		ID:            m.ID().String(),
		Name:          m.Name(),
		Notation:      m.Notation(),
		Checksum:      checksum,
		Elements:      make([]queries.ModelElement, 0, m.ElementCount()),
		Relationships: make([]queries.ModelRelationship, 0, m.RelationshipCount()),
		Stats: queries.ModelStats{
			ElementCount:      m.ElementCount(),
			RelationshipCount: m.RelationshipCount(),
		},
	}

	for _, el := range m.Elements() {
		result.Elements = append(result.Elements, queries.ModelElement{
			ID:         el.ID.String(),
			Name:       el.Name,
			Type:       el.Type,
			Layer:      string(el.Layer),
			Properties: el.Properties,
		})
	}

	for _, rel := range m.Relationships() {
		result.Relationships = append(result.Relationships, queries.ModelRelationship{
			ID:       rel.ID.String(),
			Type:     rel.Type,
			SourceID: rel.SourceID.String(),
			TargetID: rel.TargetID.String(),
			Attrs:    rel.Attrs,
		})
	}

	h.logger.Debug("Model data retrieved",
		zap.String("modelID", query.ModelID),
		zap.String("userID", query.UserID),
		zap.Int("elementCount", result.Stats.ElementCount),
		zap.Int("relationshipCount", result.Stats.RelationshipCount),
	)

	return result, nil
}

// HandleList executes the model listing query
func (h *GetModelHandler) HandleList(ctx context.Context, query queries.ListModelsQuery) (*queries.ListModelsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	models, err := h.modelRepo.GetByUserID(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	result := &queries.ListModelsResult{Models: make([]queries.ModelSummary, 0, len(models))}
	for _, m := range models {
		result.Models = append(result.Models, queries.ModelSummary{
			ID:        m.ID().String(),
			Name:      m.Name(),
			Notation:  m.Notation(),
			CreatedAt: m.CreatedAt().Format(time.RFC3339),
			UpdatedAt: m.UpdatedAt().Format(time.RFC3339),
		})
	}

	return result, nil
}
