package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// CreateRelationshipCommand represents the command to connect two elements
type CreateRelationshipCommand struct {
	RelationshipID string                 `json:"relationship_id" validate:"omitempty,uuid"`
	UserID         string                 `json:"user_id" validate:"required"`
	ModelID        string                 `json:"model_id" validate:"required"`
	Type           string                 `json:"type" validate:"required,max=100"`
	SourceID       string                 `json:"source_id" validate:"required"`
	TargetID       string                 `json:"target_id" validate:"required"`
	Attrs          map[string]interface{} `json:"attrs,omitempty"`
}

// Validate validates the command
func (cmd CreateRelationshipCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.ModelID == "" {
		return errors.New("model ID is required")
	}
	if cmd.Type == "" {
		return errors.New("relationship type is required")
	}
	if cmd.SourceID == "" || cmd.TargetID == "" {
		return errors.New("relationship endpoints are required")
	}
	return nil
}

// CreateRelationshipHandler handles the CreateRelationshipCommand
type CreateRelationshipHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewCreateRelationshipHandler creates a new handler instance
func NewCreateRelationshipHandler(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
) *CreateRelationshipHandler {
	return &CreateRelationshipHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle executes the create relationship command
func (h *CreateRelationshipHandler) Handle(ctx context.Context, cmd CreateRelationshipCommand) (*model.Relationship, error) {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(cmd.ModelID))
	if err != nil {
		return nil, err
	}
	if m.UserID() != cmd.UserID {
		return nil, apperrors.NewForbiddenError("model does not belong to user")
	}

	rel, err := model.NewRelationship(cmd.Type, model.ElementID(cmd.SourceID), model.ElementID(cmd.TargetID))
	if err != nil {
		return nil, err
	}
	if cmd.RelationshipID != "" {
		rel.ID = model.RelationshipID(cmd.RelationshipID)
	}
	if cmd.Attrs != nil {
		rel.Attrs = cmd.Attrs
	}

	if err := m.AddRelationship(rel); err != nil {
		return nil, err
	}

	if err := h.modelRepo.SaveRelationship(ctx, m.ID(), rel); err != nil {
		return nil, err
	}

	publishAndNotify(ctx, h.eventBus, h.notifier, h.logger, m, "relationship_created")

	return rel, nil
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd CreateRelationshipCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
