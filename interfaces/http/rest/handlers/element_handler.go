package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"atlas-backend/application/commands"
	"atlas-backend/application/commands/bus"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/common"
	apperrors "atlas-backend/pkg/errors"
	"atlas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ElementHandler handles element-related HTTP requests
type ElementHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewElementHandler creates a new element handler
func NewElementHandler(commandBus *bus.CommandBus, logger *zap.Logger) *ElementHandler {
	return &ElementHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// CreateElementRequest represents the request body for creating an element
type CreateElementRequest struct {
	Name       string            `json:"name" validate:"required,min=1,max=200"`
	Type       string            `json:"type" validate:"required,max=100"`
	Layer      string            `json:"layer,omitempty" validate:"omitempty,max=50"`
	Properties map[string]string `json:"properties,omitempty" validate:"max=50"`
}

// UpdateElementRequest represents the request body for updating an element
type UpdateElementRequest struct {
	Name       string            `json:"name,omitempty" validate:"omitempty,max=200"`
	Type       string            `json:"type,omitempty" validate:"omitempty,max=100"`
	Layer      string            `json:"layer,omitempty" validate:"omitempty,max=50"`
	Properties map[string]string `json:"properties,omitempty" validate:"max=50"`
}

// CreateElementResponse represents the response for creating an element
type CreateElementResponse struct {
	ID        string `json:"id"`
	ModelID   string `json:"model_id"`
	CreatedAt string `json:"createdAt"`
}

// CreateElement handles POST /models/{modelID}/elements
func (h *ElementHandler) CreateElement(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	if modelID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID is required")
		return
	}

	var req CreateElementRequest
	if err := common.ParseJSONBody(r, &req, common.MaxBodyBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	elementID := uuid.New().String()

	cmd := commands.CreateElementCommand{
		ElementID:  elementID,
		UserID:     userCtx.UserID,
		ModelID:    modelID,
		Name:       req.Name,
		Type:       req.Type,
		Layer:      req.Layer,
		Properties: req.Properties,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to create element",
			zap.String("modelID", modelID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondCommandError(w, err, "Failed to create element")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateElementResponse{
		ID:        elementID,
		ModelID:   modelID,
		CreatedAt: utils.NowRFC3339(),
	})
}

// UpdateElement handles PUT /models/{modelID}/elements/{elementID}
func (h *ElementHandler) UpdateElement(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	elementID := chi.URLParam(r, "elementID")
	if modelID == "" || elementID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID and element ID are required")
		return
	}

	var req UpdateElementRequest
	if err := common.ParseJSONBody(r, &req, common.MaxBodyBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.UpdateElementCommand{
		UserID:     userCtx.UserID,
		ModelID:    modelID,
		ElementID:  elementID,
		Name:       req.Name,
		Type:       req.Type,
		Layer:      req.Layer,
		Properties: req.Properties,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to update element",
			zap.String("elementID", elementID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondCommandError(w, err, "Failed to update element")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Element updated successfully",
		"id":      elementID,
	})
}

// DeleteElement handles DELETE /models/{modelID}/elements/{elementID}.
// Relationships touching the element are removed with it.
func (h *ElementHandler) DeleteElement(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	elementID := chi.URLParam(r, "elementID")
	if modelID == "" || elementID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID and element ID are required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.DeleteElementCommand{
		UserID:    userCtx.UserID,
		ModelID:   modelID,
		ElementID: elementID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete element",
			zap.String("elementID", elementID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondCommandError(w, err, "Failed to delete element")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *ElementHandler) respondCommandError(w http.ResponseWriter, err error, fallback string) {
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		h.respondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		h.respondError(w, http.StatusNotFound, msg)
	case strings.Contains(msg, "belong"):
		h.respondError(w, http.StatusForbidden, msg)
	case strings.Contains(msg, "validation") || strings.Contains(msg, "required"):
		h.respondError(w, http.StatusBadRequest, msg)
	default:
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *ElementHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ElementHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
