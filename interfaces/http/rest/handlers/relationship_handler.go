package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"atlas-backend/application/commands"
	"atlas-backend/application/commands/bus"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/common"
	"atlas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RelationshipHandler handles relationship-related HTTP requests
type RelationshipHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewRelationshipHandler creates a new relationship handler
func NewRelationshipHandler(commandBus *bus.CommandBus, logger *zap.Logger) *RelationshipHandler {
	return &RelationshipHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// CreateRelationshipRequest represents the request body for creating a relationship
type CreateRelationshipRequest struct {
	SourceID string                 `json:"source_id" validate:"required"`
	TargetID string                 `json:"target_id" validate:"required"`
	Type     string                 `json:"type" validate:"required,max=100"`
	Attrs    map[string]interface{} `json:"attrs,omitempty"`
}

// CreateRelationship handles POST /models/{modelID}/relationships
func (h *RelationshipHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	if modelID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID is required")
		return
	}

	var req CreateRelationshipRequest
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

	relationshipID := uuid.New().String()

	cmd := commands.CreateRelationshipCommand{
		RelationshipID: relationshipID,
		UserID:         userCtx.UserID,
		ModelID:        modelID,
		Type:           req.Type,
		SourceID:       req.SourceID,
		TargetID:       req.TargetID,
		Attrs:          req.Attrs,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to create relationship",
			zap.String("modelID", modelID),
			zap.String("sourceID", req.SourceID),
			zap.String("targetID", req.TargetID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "One or both elements not found")
		} else if strings.Contains(err.Error(), "belong") {
			h.respondError(w, http.StatusForbidden, "Model does not belong to user")
		} else if strings.Contains(err.Error(), "validation") || strings.Contains(err.Error(), "required") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to create relationship")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        relationshipID,
		"model_id":  modelID,
		"createdAt": utils.NowRFC3339(),
	})
}

// DeleteRelationship handles DELETE /models/{modelID}/relationships/{relationshipID}
func (h *RelationshipHandler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	relationshipID := chi.URLParam(r, "relationshipID")
	if modelID == "" || relationshipID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID and relationship ID are required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.DeleteRelationshipCommand{
		UserID:         userCtx.UserID,
		ModelID:        modelID,
		RelationshipID: relationshipID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete relationship",
			zap.String("relationshipID", relationshipID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Relationship not found")
		} else if strings.Contains(err.Error(), "belong") {
			h.respondError(w, http.StatusForbidden, "Model does not belong to user")
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to delete relationship")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *RelationshipHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *RelationshipHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
