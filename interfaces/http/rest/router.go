package rest

import (
	"net/http"
	"strings"

	"atlas-backend/application/commands/bus"
	querybus "atlas-backend/application/queries/bus"
	"atlas-backend/application/services"
	"atlas-backend/infrastructure/config"
	"atlas-backend/interfaces/http/rest/handlers"
	"atlas-backend/interfaces/http/rest/middleware"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg         *config.Config
	commandBus  *bus.CommandBus
	queryBus    *querybus.QueryBus
	sessions    *services.TraceSessionService
	userLimiter auth.RateLimiter
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	sessions *services.TraceSessionService,
	userLimiter auth.RateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		commandBus:  commandBus,
		queryBus:    queryBus,
		sessions:    sessions,
		userLimiter: userLimiter,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(versionMiddleware)

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.atlas-arch.com"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
			ExposedHeaders:   []string{"ETag", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if rt.cfg.EnableTracing {
		tracer := observability.NewTracer("atlas-backend")
		router.Use(tracingMiddleware(tracer))
	}

	// Operational endpoints, no auth
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1 routes (legacy, redirects to v2)
	router.Route("/api/v1", func(r chi.Router) {
		r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, strings.Replace(req.URL.Path, "/api/v1", "/api/v2", 1), http.StatusPermanentRedirect)
		})
	})

	// API Gateway validates the JWT before the Lambda runs; elsewhere
	// the middleware validates it here.
	authenticate := middleware.Authenticate(rt.cfg, rt.userLimiter, rt.logger)
	if rt.cfg.IsLambda {
		authenticate = middleware.AuthenticateForLambda()
	}

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		r.Use(authenticate)

		// Model endpoints
		r.Route("/models", func(r chi.Router) {
			modelHandler := handlers.NewModelHandler(rt.commandBus, rt.queryBus, rt.logger)
			r.Post("/", modelHandler.CreateModel)
			r.Get("/", modelHandler.ListModels)
			r.Get("/{modelID}", modelHandler.GetModel)
			r.Delete("/{modelID}", modelHandler.DeleteModel)

			// Element endpoints
			elementHandler := handlers.NewElementHandler(rt.commandBus, rt.logger)
			r.Post("/{modelID}/elements", elementHandler.CreateElement)
			r.Put("/{modelID}/elements/{elementID}", elementHandler.UpdateElement)
			r.Delete("/{modelID}/elements/{elementID}", elementHandler.DeleteElement)

			// Relationship endpoints
			relationshipHandler := handlers.NewRelationshipHandler(rt.commandBus, rt.logger)
			r.Post("/{modelID}/relationships", relationshipHandler.CreateRelationship)
			r.Delete("/{modelID}/relationships/{relationshipID}", relationshipHandler.DeleteRelationship)

			// Reachability queries
			analysisHandler := handlers.NewAnalysisHandler(rt.queryBus, rt.logger)
			r.Get("/{modelID}/analysis/path", analysisHandler.FindPath)
			r.Get("/{modelID}/analysis/paths", analysisHandler.FindPaths)
		})

		// Trace exploration endpoints
		r.Route("/trace/sessions", func(r chi.Router) {
			traceHandler := handlers.NewTraceHandler(rt.sessions, rt.logger)
			r.Post("/", traceHandler.OpenSession)
			r.Post("/{sessionID}/expand", traceHandler.ExpandSession)
			r.Get("/{sessionID}", traceHandler.GetSession)
			r.Delete("/{sessionID}", traceHandler.CloseSession)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// tracingMiddleware opens a trace segment per request
func tracingMiddleware(tracer *observability.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := tracer.StartSegment(r.Context(), r.Method+" "+r.URL.Path)
			defer seg.Close(nil)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.Contains(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Deprecation-Date", "2026-01-01")
			w.Header().Set("X-API-Sunset-Date", "2026-06-01")
		}

		next.ServeHTTP(w, r)
	})
}
