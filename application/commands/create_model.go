package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// CreateModelCommand represents the command to create a new model.
// ModelID is chosen by the caller so create responses can echo it back;
// when empty the handler generates one.
type CreateModelCommand struct {
	ModelID  string `json:"model_id" validate:"omitempty,uuid"`
	UserID   string `json:"user_id" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Notation string `json:"notation" validate:"omitempty,oneof=archimate uml bpmn"`
}

// Validate validates the command
func (cmd CreateModelCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.Name == "" {
		return errors.New("model name is required")
	}
	if len(cmd.Name) > MaxNameLength() {
		return errors.New("model name exceeds maximum length")
	}
	return nil
}

// CreateModelHandler handles the CreateModelCommand
type CreateModelHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	logger    *zap.Logger
}

// NewCreateModelHandler creates a new handler instance
func NewCreateModelHandler(modelRepo ports.ModelRepository, eventBus ports.EventBus, logger *zap.Logger) *CreateModelHandler {
	return &CreateModelHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Handle executes the create model command
func (h *CreateModelHandler) Handle(ctx context.Context, cmd CreateModelCommand) (*model.Model, error) {
	existing, err := h.modelRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= MaxModelsPerUser() {
		return nil, apperrors.NewValidationError("model limit reached for user")
	}

	id := model.ModelID(cmd.ModelID)
	if id == "" {
		id = model.NewModelID()
	}

	m, err := model.NewModelWithID(id, cmd.UserID, cmd.Name, cmd.Notation)
	if err != nil {
		return nil, err
	}

	if err := h.modelRepo.Save(ctx, m); err != nil {
		return nil, err
	}

	if err := h.eventBus.PublishBatch(ctx, m.GetUncommittedEvents()); err != nil {
		// events can be retried downstream; the write already succeeded
		h.logger.Warn("Failed to publish model events",
			zap.String("modelID", m.ID().String()),
			zap.Error(err),
		)
	}
	m.MarkEventsAsCommitted()

	h.logger.Info("Model created",
		zap.String("modelID", m.ID().String()),
		zap.String("userID", cmd.UserID),
		zap.String("notation", m.Notation()),
	)

	return m, nil
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd CreateModelCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
