package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"atlas-backend/application/services"
	"atlas-backend/domain/analysis"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/common"
	apperrors "atlas-backend/pkg/errors"
	"atlas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TraceHandler handles interactive traceability exploration requests.
// It talks to the session service directly; exploration state is
// conversational and does not go through the command or query buses.
type TraceHandler struct {
	sessions *services.TraceSessionService
	logger   *zap.Logger
}

// NewTraceHandler creates a new trace handler
func NewTraceHandler(sessions *services.TraceSessionService, logger *zap.Logger) *TraceHandler {
	return &TraceHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// OpenTraceRequest represents the request body for opening a session
type OpenTraceRequest struct {
	ModelID  string                `json:"model_id" validate:"required"`
	SeedIDs  []string              `json:"seed_ids" validate:"required,min=1,max=50"`
	MaxDepth int                   `json:"max_depth,omitempty" validate:"omitempty,min=1,max=16"`
	Filters  analysis.TraceFilters `json:"filters,omitempty"`
}

// OpenTraceResponse represents the response for opening a session
type OpenTraceResponse struct {
	SessionID string               `json:"session_id"`
	State     *analysis.TraceGraph `json:"state"`
}

// ExpandTraceRequest represents the request body for one expansion
type ExpandTraceRequest struct {
	NodeID            string                  `json:"node_id" validate:"required"`
	Direction         string                  `json:"direction,omitempty" validate:"omitempty,oneof=outgoing incoming both"`
	Depth             int                     `json:"depth,omitempty" validate:"omitempty,min=1,max=16"`
	RelationshipTypes []string                `json:"relationship_types,omitempty"`
	Layers            []string                `json:"layers,omitempty"`
	ElementTypes      []string                `json:"element_types,omitempty"`
	Stop              analysis.StopConditions `json:"stop,omitempty"`
}

// OpenSession handles POST /trace/sessions
func (h *TraceHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenTraceRequest
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

	sessionID, state, err := h.sessions.Open(r.Context(), services.OpenTraceInput{
		UserID:   userCtx.UserID,
		ModelID:  req.ModelID,
		SeedIDs:  req.SeedIDs,
		MaxDepth: req.MaxDepth,
		Filters:  req.Filters,
	})
	if err != nil {
		h.logger.Error("Failed to open trace session",
			zap.String("modelID", req.ModelID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondTraceError(w, err, "Failed to open trace session")
		return
	}

	h.respondJSON(w, http.StatusCreated, OpenTraceResponse{
		SessionID: sessionID,
		State:     state,
	})
}

// ExpandSession handles POST /trace/sessions/{sessionID}/expand
func (h *TraceHandler) ExpandSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	var req ExpandTraceRequest
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

	state, err := h.sessions.Expand(r.Context(), userCtx.UserID, sessionID, analysis.ExpandRequest{
		NodeID:            req.NodeID,
		Direction:         analysis.ParseDirection(req.Direction),
		Depth:             req.Depth,
		RelationshipTypes: req.RelationshipTypes,
		Layers:            req.Layers,
		ElementTypes:      req.ElementTypes,
		Stop:              req.Stop,
	})
	if err != nil {
		h.logger.Error("Failed to expand trace session",
			zap.String("sessionID", sessionID),
			zap.String("nodeID", req.NodeID),
			zap.Error(err),
		)
		h.respondTraceError(w, err, "Failed to expand trace session")
		return
	}

	h.respondJSON(w, http.StatusOK, state)
}

// GetSession handles GET /trace/sessions/{sessionID}
func (h *TraceHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state, err := h.sessions.Get(userCtx.UserID, sessionID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Trace session not found")
		return
	}

	h.respondJSON(w, http.StatusOK, state)
}

// CloseSession handles DELETE /trace/sessions/{sessionID}
func (h *TraceHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.sessions.Close(userCtx.UserID, sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *TraceHandler) respondTraceError(w http.ResponseWriter, err error, fallback string) {
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
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "required"):
		h.respondError(w, http.StatusBadRequest, msg)
	default:
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *TraceHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *TraceHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
