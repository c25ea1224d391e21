package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"atlas-backend/application/ports"
	"atlas-backend/domain/analysis"
	"atlas-backend/domain/model"
	"atlas-backend/pkg/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// traceSession holds the accumulated exploration state for one client.
// Expansions mutate the session under its own lock so that concurrent
// requests apply their patches in arrival order.
type traceSession struct {
	mu         sync.Mutex
	userID     string
	modelID    model.ModelID
	state      *analysis.TraceGraph
	lastAccess atomic.Int64 // unix nanos, drives TTL expiry
}

// TraceDefaults carries the runtime-tunable session settings. The
// service reads them through a provider function on every use, so a
// configuration reload takes effect without a restart.
type TraceDefaults struct {
	DefaultDepth    int
	MaxOpenSessions int
	SessionTTL      time.Duration
}

// StaticTraceDefaults returns the settings used when no provider is
// configured
func StaticTraceDefaults() TraceDefaults {
	return TraceDefaults{
		DefaultDepth:    analysis.DefaultTraceDepth,
		MaxOpenSessions: 1000,
		SessionTTL:      time.Hour,
	}
}

// TraceSessionService manages interactive traceability explorations.
// Sessions live in process memory; each one pins a model and grows a
// trace graph as the client expands nodes. The service is used directly
// by the trace HTTP handlers without the overhead of the query bus.
type TraceSessionService struct {
	mu        sync.RWMutex
	sessions  map[string]*traceSession
	modelRepo ports.ModelRepository
	defaults  func() TraceDefaults
	logger    *zap.Logger
}

// NewTraceSessionService creates a new trace session service. A nil
// defaults provider falls back to StaticTraceDefaults.
func NewTraceSessionService(modelRepo ports.ModelRepository, defaults func() TraceDefaults, logger *zap.Logger) *TraceSessionService {
	if defaults == nil {
		defaults = StaticTraceDefaults
	}
	return &TraceSessionService{
		sessions:  make(map[string]*traceSession),
		modelRepo: modelRepo,
		defaults:  defaults,
		logger:    logger,
	}
}

// OpenTraceInput carries the parameters for starting an exploration
type OpenTraceInput struct {
	UserID   string
	ModelID  string
	SeedIDs  []string
	MaxDepth int
	Filters  analysis.TraceFilters
}

// Open starts a new exploration session seeded at the given elements and
// returns the session id together with the initial state.
func (s *TraceSessionService) Open(ctx context.Context, input OpenTraceInput) (string, *analysis.TraceGraph, error) {
	if input.UserID == "" || input.ModelID == "" {
		return "", nil, fmt.Errorf("invalid input: userID and modelID are required")
	}

	d := s.defaults()
	if input.MaxDepth <= 0 {
		input.MaxDepth = d.DefaultDepth
	}

	m, err := s.modelRepo.GetByID(ctx, model.ModelID(input.ModelID))
	if err != nil {
		return "", nil, fmt.Errorf("failed to get model: %w", err)
	}
	if m.UserID() != input.UserID {
		return "", nil, fmt.Errorf("model does not belong to user")
	}

	seeds := make([]string, 0, len(input.SeedIDs))
	for _, id := range input.SeedIDs {
		if !m.HasElement(model.ElementID(id)) {
			return "", nil, fmt.Errorf("seed element %s not found in model", id)
		}
		seeds = append(seeds, id)
	}

	state := analysis.NewTraceGraph(seeds, &analysis.TraceOptions{
		MaxDepth: input.MaxDepth,
		Filters:  input.Filters,
	})

	sessionID := uuid.New().String()
	sess := &traceSession{
		userID:  input.UserID,
		modelID: m.ID(),
		state:   state,
	}
	sess.lastAccess.Store(time.Now().UnixNano())

	s.mu.Lock()
	s.evictExpiredLocked(d.SessionTTL)
	if d.MaxOpenSessions > 0 && len(s.sessions) >= d.MaxOpenSessions {
		s.mu.Unlock()
		return "", nil, fmt.Errorf("too many open trace sessions")
	}
	s.sessions[sessionID] = sess
	s.mu.Unlock()
	observability.TraceSessionsActive.Inc()

	s.logger.Info("Trace session opened",
		zap.String("sessionID", sessionID),
		zap.String("modelID", input.ModelID),
		zap.Int("seeds", len(seeds)),
	)

	return sessionID, state, nil
}

// Expand grows the session's trace graph outward from one node and
// returns the merged state. Expanding the same node twice is a no-op.
func (s *TraceSessionService) Expand(ctx context.Context, userID, sessionID string, req analysis.ExpandRequest) (*analysis.TraceGraph, error) {
	sess, err := s.session(userID, sessionID)
	if err != nil {
		return nil, err
	}

	m, err := s.modelRepo.GetByID(ctx, sess.modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Session-level defaults apply when the request leaves them unset.
	if req.Depth <= 0 {
		req.Depth = sess.state.MaxDepth
	}
	if req.RelationshipTypes == nil {
		req.RelationshipTypes = sess.state.Filters.RelationshipTypes
	}
	if req.Layers == nil {
		req.Layers = sess.state.Filters.Layers
	}
	if req.ElementTypes == nil {
		req.ElementTypes = sess.state.Filters.ElementTypes
	}

	patch := analysis.ExpandFromNode(m, analysis.AdapterForNotation(m.Notation()), req)
	sess.state = analysis.ApplyExpansion(sess.state, patch)
	observability.TraceExpansionsTotal.Inc()

	s.logger.Debug("Trace session expanded",
		zap.String("sessionID", sessionID),
		zap.String("nodeID", req.NodeID),
		zap.Int("nodes", len(sess.state.Nodes)),
		zap.Int("edges", len(sess.state.Edges)),
	)

	return sess.state, nil
}

// Get returns the current state of a session
func (s *TraceSessionService) Get(userID, sessionID string) (*analysis.TraceGraph, error) {
	sess, err := s.session(userID, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, nil
}

// Close discards a session. Closing an unknown session is not an error.
func (s *TraceSessionService) Close(userID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.userID == userID {
		delete(s.sessions, sessionID)
		observability.TraceSessionsActive.Dec()
		s.logger.Info("Trace session closed", zap.String("sessionID", sessionID))
	}
}

func (s *TraceSessionService) session(userID, sessionID string) (*traceSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || sess.userID != userID {
		return nil, fmt.Errorf("trace session %s not found", sessionID)
	}
	if ttl := s.defaults().SessionTTL; ttl > 0 {
		if time.Unix(0, sess.lastAccess.Load()).Add(ttl).Before(time.Now()) {
			return nil, fmt.Errorf("trace session %s not found", sessionID)
		}
	}
	sess.lastAccess.Store(time.Now().UnixNano())
	return sess, nil
}

// evictExpiredLocked drops sessions idle past the TTL. Caller holds s.mu.
func (s *TraceSessionService) evictExpiredLocked(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-ttl).UnixNano()
	for id, sess := range s.sessions {
		if sess.lastAccess.Load() < cutoff {
			delete(s.sessions, id)
			observability.TraceSessionsActive.Dec()
		}
	}
}
