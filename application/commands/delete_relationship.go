package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// DeleteRelationshipCommand represents the command to remove a relationship
type DeleteRelationshipCommand struct {
	UserID         string `json:"user_id" validate:"required"`
	ModelID        string `json:"model_id" validate:"required"`
	RelationshipID string `json:"relationship_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteRelationshipCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.ModelID == "" {
		return errors.New("model ID is required")
	}
	if cmd.RelationshipID == "" {
		return errors.New("relationship ID is required")
	}
	return nil
}

// DeleteRelationshipHandler handles the DeleteRelationshipCommand
type DeleteRelationshipHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewDeleteRelationshipHandler creates a new handler instance
func NewDeleteRelationshipHandler(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
) *DeleteRelationshipHandler {
	return &DeleteRelationshipHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle executes the delete relationship command
func (h *DeleteRelationshipHandler) Handle(ctx context.Context, cmd DeleteRelationshipCommand) error {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(cmd.ModelID))
	if err != nil {
		return err
	}
	if m.UserID() != cmd.UserID {
		return apperrors.NewForbiddenError("model does not belong to user")
	}

	id := model.RelationshipID(cmd.RelationshipID)
	if err := m.RemoveRelationship(id); err != nil {
		return err
	}

	if err := h.modelRepo.DeleteRelationship(ctx, m.ID(), id); err != nil {
		return err
	}

	publishAndNotify(ctx, h.eventBus, h.notifier, h.logger, m, "relationship_deleted")

	return nil
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd DeleteRelationshipCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
