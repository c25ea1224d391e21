package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// UpdateElementCommand represents the command to update an element
type UpdateElementCommand struct {
	UserID     string            `json:"user_id" validate:"required"`
	ModelID    string            `json:"model_id" validate:"required"`
	ElementID  string            `json:"element_id" validate:"required"`
	Name       string            `json:"name" validate:"omitempty,max=200"`
	Type       string            `json:"type" validate:"omitempty,max=100"`
	Layer      string            `json:"layer" validate:"omitempty,max=50"`
	Properties map[string]string `json:"properties,omitempty" validate:"max=50"`
}

// Validate validates the command
func (cmd UpdateElementCommand) Validate() error {
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

// UpdateElementHandler handles the UpdateElementCommand
type UpdateElementHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewUpdateElementHandler creates a new handler instance
func NewUpdateElementHandler(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
) *UpdateElementHandler {
	return &UpdateElementHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle executes the update element command
func (h *UpdateElementHandler) Handle(ctx context.Context, cmd UpdateElementCommand) (*model.Element, error) {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(cmd.ModelID))
	if err != nil {
		return nil, err
	}
	if m.UserID() != cmd.UserID {
		return nil, apperrors.NewForbiddenError("model does not belong to user")
	}

	id := model.ElementID(cmd.ElementID)
	if err := m.UpdateElement(id, cmd.Name, cmd.Type, model.Layer(cmd.Layer), cmd.Properties); err != nil {
		return nil, err
	}

	el, _ := m.Element(id)
	if err := h.modelRepo.SaveElement(ctx, m.ID(), el); err != nil {
		return nil, err
	}

	publishAndNotify(ctx, h.eventBus, h.notifier, h.logger, m, "element_updated")

	return el, nil
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd UpdateElementCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
