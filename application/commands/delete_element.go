package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// DeleteElementCommand represents the command to remove an element
type DeleteElementCommand struct {
	UserID    string `json:"user_id" validate:"required"`
	ModelID   string `json:"model_id" validate:"required"`
	ElementID string `json:"element_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteElementCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.ModelID == "" {
		return errors.New("model ID is required")
	}
	if cmd.ElementID == "" {
		return errors.New("element ID is required")
	}
	return nil
}

// DeleteElementHandler handles the DeleteElementCommand
type DeleteElementHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewDeleteElementHandler creates a new handler instance
func NewDeleteElementHandler(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
) *DeleteElementHandler {
	return &DeleteElementHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle executes the delete element command. Relationships touching the
// element are removed with it.
func (h *DeleteElementHandler) Handle(ctx context.Context, cmd DeleteElementCommand) error {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(cmd.ModelID))
	if err != nil {
		return err
	}
	if m.UserID() != cmd.UserID {
		return apperrors.NewForbiddenError("model does not belong to user")
	}

	id := model.ElementID(cmd.ElementID)
	if err := m.RemoveElement(id); err != nil {
		return err
	}

	if err := h.modelRepo.DeleteElement(ctx, m.ID(), id); err != nil {
		return err
	}

	publishAndNotify(ctx, h.eventBus, h.notifier, h.logger, m, "element_deleted")

	h.logger.Info("Element deleted",
		zap.String("modelID", cmd.ModelID),
		zap.String("elementID", cmd.ElementID),
	)

	return nil
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd DeleteElementCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
