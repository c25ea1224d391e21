package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"atlas-backend/application/commands"
	"atlas-backend/application/commands/bus"
	"atlas-backend/application/queries"
	querybus "atlas-backend/application/queries/bus"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/common"
	"atlas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ModelHandler handles model-level HTTP requests
type ModelHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewModelHandler creates a new model handler
func NewModelHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *ModelHandler {
	return &ModelHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// CreateModelRequest represents the request body for creating a model
type CreateModelRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Notation string `json:"notation,omitempty" validate:"omitempty,oneof=archimate uml bpmn"`
}

// CreateModelResponse represents the response for creating a model
type CreateModelResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Notation  string `json:"notation"`
	CreatedAt string `json:"createdAt"`
}

// CreateModel handles POST /models
func (h *ModelHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
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

	if req.Notation == "" {
		req.Notation = "archimate"
	}

	// The handler picks the id so the response can return it; the bus
	// only reports errors back.
	modelID := uuid.New().String()

	cmd := commands.CreateModelCommand{
		ModelID:  modelID,
		UserID:   userCtx.UserID,
		Name:     req.Name,
		Notation: req.Notation,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to create model",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "validation") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to create model")
		}
		return
	}

	response := CreateModelResponse{
		ID:        modelID,
		Name:      req.Name,
		Notation:  req.Notation,
		CreatedAt: utils.NowRFC3339(),
	}

	h.respondJSON(w, http.StatusCreated, response)
}

// GetModel handles GET /models/{modelID}. The model checksum doubles as
// an ETag so clients holding a current copy get a 304 instead of the
// full element and relationship lists.
func (h *ModelHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	if modelID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query := queries.GetModelQuery{
		UserID:  userCtx.UserID,
		ModelID: modelID,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to get model",
			zap.String("modelID", modelID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Model not found")
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to retrieve model")
		}
		return
	}

	if model, ok := result.(*queries.GetModelResult); ok && model.Checksum != "" {
		etag := fmt.Sprintf("%q", model.Checksum)
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ListModels handles GET /models
func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query := queries.ListModelsQuery{
		UserID: userCtx.UserID,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to list models",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}

	// Pagination happens here rather than in the query handler; model
	// counts per user are small enough that the repository returns all
	// of them and we page the slice.
	listResult, ok := result.(*queries.ListModelsResult)
	if !ok {
		h.respondJSON(w, http.StatusOK, result)
		return
	}

	params := common.ExtractPaginationParams(r)
	total := len(listResult.Models)
	start := params.CalculateOffset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	h.respondJSON(w, http.StatusOK, common.NewPaginatedResult(
		listResult.Models[start:end], params.Page, params.PageSize, total,
	))
}

// DeleteModel handles DELETE /models/{modelID}
func (h *ModelHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	if modelID == "" {
		h.respondError(w, http.StatusBadRequest, "Model ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.DeleteModelCommand{
		UserID:  userCtx.UserID,
		ModelID: modelID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete model",
			zap.String("modelID", modelID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Model not found")
		} else if strings.Contains(err.Error(), "belong") {
			h.respondError(w, http.StatusForbidden, "Model does not belong to user")
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to delete model")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *ModelHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ModelHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
