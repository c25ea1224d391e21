package commands

import (
	"context"
	"errors"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"go.uber.org/zap"
)

// CreateElementCommand represents the command to add an element to a model
type CreateElementCommand struct {
	ElementID  string            `json:"element_id" validate:"omitempty,uuid"`
	UserID     string            `json:"user_id" validate:"required"`
	ModelID    string            `json:"model_id" validate:"required"`
	Name       string            `json:"name" validate:"required,min=1,max=200"`
	Type       string            `json:"type" validate:"required,max=100"`
	Layer      string            `json:"layer" validate:"omitempty,max=50"`
	Properties map[string]string `json:"properties,omitempty" validate:"max=50"`
}

// Validate validates the command
func (cmd CreateElementCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.ModelID == "" {
		return errors.New("model ID is required")
	}
	if cmd.Name == "" {
		return errors.New("element name is required")
	}
	if cmd.Type == "" {
		return errors.New("element type is required")
	}
	if len(cmd.Name) > MaxNameLength() {
		return errors.New("element name exceeds maximum length")
	}
	return nil
}

// CreateElementHandler handles the CreateElementCommand
type CreateElementHandler struct {
	modelRepo ports.ModelRepository
	eventBus  ports.EventBus
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewCreateElementHandler creates a new handler instance
func NewCreateElementHandler(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
) *CreateElementHandler {
	return &CreateElementHandler{
		modelRepo: modelRepo,
		eventBus:  eventBus,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle executes the create element command
func (h *CreateElementHandler) Handle(ctx context.Context, cmd CreateElementCommand) (*model.Element, error) {
	m, err := h.modelRepo.GetByID(ctx, model.ModelID(cmd.ModelID))
	if err != nil {
		return nil, err
	}
	if m.UserID() != cmd.UserID {
		return nil, apperrors.NewForbiddenError("model does not belong to user")
	}

	el, err := model.NewElement(cmd.Name, cmd.Type, model.Layer(cmd.Layer))
	if err != nil {
		return nil, err
	}
	if cmd.ElementID != "" {
		el.ID = model.ElementID(cmd.ElementID)
	}
	if cmd.Properties != nil {
		el.Properties = cmd.Properties
	}

	if err := m.AddElement(el); err != nil {
		return nil, err
	}

	if err := h.modelRepo.SaveElement(ctx, m.ID(), el); err != nil {
		return nil, err
	}

	h.publishAndNotify(ctx, m, "element_created")

	return el, nil
}

// publishAndNotify flushes the aggregate's events and pings explorer
// clients. Shared by the element and relationship handlers in this
// package.
func (h *CreateElementHandler) publishAndNotify(ctx context.Context, m *model.Model, changeType string) {
	publishAndNotify(ctx, h.eventBus, h.notifier, h.logger, m, changeType)
}

func publishAndNotify(
	ctx context.Context,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	logger *zap.Logger,
	m *model.Model,
	changeType string,
) {
	if err := eventBus.PublishBatch(ctx, m.GetUncommittedEvents()); err != nil {
		logger.Warn("Failed to publish model events",
			zap.String("modelID", m.ID().String()),
			zap.Error(err),
		)
	}
	m.MarkEventsAsCommitted()

	if notifier != nil {
		if err := notifier.NotifyModelChanged(ctx, m.ID().String(), changeType); err != nil {
			logger.Debug("Explorer notification failed",
				zap.String("modelID", m.ID().String()),
				zap.Error(err),
			)
		}
	}
}

// ModelScope identifies the model whose cached query results this
// command invalidates
func (cmd CreateElementCommand) ModelScope() string {
	return "model:" + cmd.ModelID
}
