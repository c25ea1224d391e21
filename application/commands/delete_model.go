package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// DeleteModelCommand represents the command to delete a whole model
type DeleteModelCommand struct {
	UserID  string `json:"user_id" validate:"required"`
	ModelID string `json:"model_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteModelCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.ModelID == "" {
		return errors.New("model ID is required")
	}
	return nil
}

// DeleteModelHandler handles the DeleteModelCommand
type DeleteModelHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewDeleteModelHandler creates a new handler instance
func NewDeleteModelHandler(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
) *DeleteModelHandler {
	return &DeleteModelHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle executes the delete model command. The model's elements and
// relationships go with it.
func (h *DeleteModelHandler) Handle(ctx context.Context, cmd DeleteModelCommand) error {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(cmd.ModelID))
	if err != nil {
		return err
	}
	if m.UserID() != cmd.UserID {
		return apperrors.NewForbiddenError("model does not belong to user")
	}

	m.MarkDeleted()

	if err := h.modelRepo.Delete(ctx, m.ID()); err != nil {
		return err
	}

	publishAndNotify(ctx, h.eventBus, h.notifier, h.logger, m, "model_deleted")

	h.logger.Info("Model deleted",
		zap.String("modelID", cmd.ModelID),
		zap.String("userID", cmd.UserID),
	)

	return nil
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd DeleteModelCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
