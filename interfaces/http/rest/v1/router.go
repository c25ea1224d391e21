// Package v1 serves the read-only legacy API. The v2 router redirects
// /api/v1 traffic to v2; this router exists for deployments that still
// terminate legacy clients on a separate listener. Writes were never
// part of v1 and are not served here.
package v1

import (
	"encoding/json"
	"net/http"

	"atlas-backend/application/queries"
	querybus "atlas-backend/application/queries/bus"
	"atlas-backend/infrastructure/config"
	"atlas-backend/interfaces/http/rest/middleware"
	"atlas-backend/pkg/auth"
	apperrors "atlas-backend/pkg/errors"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates the v1 API router
func NewRouter(cfg *config.Config, queryBus *querybus.QueryBus, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	v1 := router.PathPrefix("/api/v1").Subrouter()

	h := &legacyHandler{queryBus: queryBus, logger: logger}

	// mux has no built-in recoverer, so panics go through the error handler.
	errHandler := apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
	router.Use(mux.MiddlewareFunc(errHandler.Middleware))

	v1.Use(versionHeaders)
	v1.Use(mux.MiddlewareFunc(middleware.Authenticate(cfg, nil, logger)))

	v1.HandleFunc("/models", h.listModels).Methods("GET")
	v1.HandleFunc("/models/{id}", h.getModel).Methods("GET")
	v1.HandleFunc("/models/{id}/path", h.findPath).Methods("GET")

	router.HandleFunc("/health", healthCheck).Methods("GET")

	return router
}

type legacyHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

func (h *legacyHandler) listModels(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListModelsQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("Failed to list models", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) getModel(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	modelID := mux.Vars(r)["id"]
	result, err := h.queryBus.Ask(r.Context(), queries.GetModelQuery{
		UserID:  userCtx.UserID,
		ModelID: modelID,
	})
	if err != nil {
		respondError(w, http.StatusNotFound, "Model not found")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) findPath(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	result, err := h.queryBus.Ask(r.Context(), queries.FindPathQuery{
		UserID:   userCtx.UserID,
		ModelID:  mux.Vars(r)["id"],
		SourceID: q.Get("source"),
		TargetID: q.Get("target"),
	})
	if err != nil {
		h.logger.Error("Failed to find path", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to find path")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// versionHeaders adds API version headers to responses
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

// healthCheck provides a health check endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
