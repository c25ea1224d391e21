package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"atlas-backend/application/ports"
	"atlas-backend/application/services"
	"atlas-backend/domain/model"
	"atlas-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type traceTestRepo struct {
	ports.ModelRepository
	m *model.Model
}

func (r *traceTestRepo) GetByID(ctx context.Context, id model.ModelID) (*model.Model, error) {
	return r.m, nil
}

func servingPair(t *testing.T) *model.Model {
	t.Helper()

	m, err := model.ReconstructModel("m1", "user-1", "landscape", "archimate", "", "")
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		m.RestoreElement(&model.Element{
			ID:    model.ElementID(id),
			Name:  id,
			Type:  "application-component",
			Layer: model.LayerApplication,
		})
	}
	m.RestoreRelationship(&model.Relationship{
		ID:       "ab",
		Type:     model.RelationServing,
		SourceID: "a",
		TargetID: "b",
	})
	return m
}

// traceTestRouter mounts the trace routes behind a middleware that
// injects a fixed authenticated user, mirroring the API router layout.
func traceTestRouter(t *testing.T, userID string) http.Handler {
	t.Helper()

	svc := services.NewTraceSessionService(&traceTestRepo{m: servingPair(t)}, nil, zap.NewNop())
	h := NewTraceHandler(svc, zap.NewNop())

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{UserID: userID})
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Route("/trace/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Post("/{sessionID}/expand", h.ExpandSession)
		r.Get("/{sessionID}", h.GetSession)
		r.Delete("/{sessionID}", h.CloseSession)
	})
	return router
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestTraceSessionRoundTrip(t *testing.T) {
	router := traceTestRouter(t, "user-1")

	// Open
	rec := postJSON(t, router, "/trace/sessions", map[string]interface{}{
		"model_id": "m1",
		"seed_ids": []string{"a"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var opened OpenTraceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	require.NotEmpty(t, opened.SessionID)
	assert.Contains(t, opened.State.Nodes, "a")

	// Expand from the seed pulls in its neighbor
	rec = postJSON(t, router, "/trace/sessions/"+opened.SessionID+"/expand", map[string]interface{}{
		"node_id": "a",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Get returns the merged state
	req := httptest.NewRequest(http.MethodGet, "/trace/sessions/"+opened.SessionID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	var nodes map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(state["nodes"], &nodes))
	assert.Contains(t, nodes, "a")
	assert.Contains(t, nodes, "b")

	// Close, then the session is gone
	req = httptest.NewRequest(http.MethodDelete, "/trace/sessions/"+opened.SessionID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/trace/sessions/"+opened.SessionID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTraceSessionRequiresAuth(t *testing.T) {
	router := traceTestRouter(t, "")

	rec := postJSON(t, router, "/trace/sessions", map[string]interface{}{
		"model_id": "m1",
		"seed_ids": []string{"a"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTraceSessionOwnershipIsEnforced(t *testing.T) {
	// The model belongs to user-1 but the request is from someone else
	router := traceTestRouter(t, "user-2")

	rec := postJSON(t, router, "/trace/sessions", map[string]interface{}{
		"model_id": "m1",
		"seed_ids": []string{"a"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTraceSessionRejectsUnknownID(t *testing.T) {
	router := traceTestRouter(t, "user-1")

	rec := postJSON(t, router, "/trace/sessions/nope/expand", map[string]interface{}{
		"node_id": "a",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
