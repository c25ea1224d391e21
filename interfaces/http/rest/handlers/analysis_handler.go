package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"atlas-backend/application/queries"
	querybus "atlas-backend/application/queries/bus"
	"atlas-backend/pkg/auth"
	apperrors "atlas-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AnalysisHandler exposes reachability queries over a model's graph
type AnalysisHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// FindPath handles GET /models/{modelID}/analysis/path
func (h *AnalysisHandler) FindPath(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	sourceID := q.Get("source")
	targetID := q.Get("target")
	if sourceID == "" || targetID == "" {
		h.respondError(w, http.StatusBadRequest, "source and target are required")
		return
	}

	query := queries.FindPathQuery{
		UserID:            userCtx.UserID,
		ModelID:           modelID,
		SourceID:          sourceID,
		TargetID:          targetID,
		Direction:         q.Get("direction"),
		RelationshipTypes: splitParam(q.Get("relationship_types")),
		MaxHops:           intParam(q.Get("max_hops")),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to find path",
			zap.String("modelID", modelID),
			zap.String("sourceID", sourceID),
			zap.String("targetID", targetID),
			zap.Error(err),
		)
		h.respondQueryError(w, err, "Failed to find path")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// FindPaths handles GET /models/{modelID}/analysis/paths
func (h *AnalysisHandler) FindPaths(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	sourceID := q.Get("source")
	targetID := q.Get("target")
	if sourceID == "" || targetID == "" {
		h.respondError(w, http.StatusBadRequest, "source and target are required")
		return
	}

	query := queries.FindPathsQuery{
		UserID:            userCtx.UserID,
		ModelID:           modelID,
		SourceID:          sourceID,
		TargetID:          targetID,
		Direction:         q.Get("direction"),
		RelationshipTypes: splitParam(q.Get("relationship_types")),
		MaxHops:           intParam(q.Get("max_hops")),
		K:                 intParam(q.Get("k")),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to find paths",
			zap.String("modelID", modelID),
			zap.String("sourceID", sourceID),
			zap.String("targetID", targetID),
			zap.Error(err),
		)
		h.respondQueryError(w, err, "Failed to find paths")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// splitParam parses a comma separated query parameter. Empty input
// yields nil so "no filter" and "match nothing" stay distinguishable.
func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intParam(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}

// Helper methods

func (h *AnalysisHandler) respondQueryError(w http.ResponseWriter, err error, fallback string) {
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
	case strings.Contains(msg, "invalid"):
		h.respondError(w, http.StatusBadRequest, msg)
	default:
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *AnalysisHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AnalysisHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
