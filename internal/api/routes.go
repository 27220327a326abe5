// Package api sets up the go-chi router: public routes (/health,
// /auth/token) and JWT-protected routes (/api/v1/*).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jsalazar/toolforge/internal/api/handlers"
	apimiddleware "github.com/jsalazar/toolforge/internal/api/middleware"
	"github.com/jsalazar/toolforge/internal/domain/audit"
	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// Deps carries the wired services the routes need.
type Deps struct {
	Registry    *tool.Registry
	Dispatcher  handlers.Dispatcher
	Runner      handlers.TurnRunner // nil when no LLM provider is configured
	Audit       *audit.Service
	DatasetPath string

	SigningKey  []byte
	TokenTTL    time.Duration
	Credentials map[string]string // service_id → bcrypt hash
}

// NewRouter creates and configures a chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// ===== PUBLIC ROUTES (no auth required) =====

	// Health check — unauthenticated, used by load balancers and probes.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	authHandler := handlers.NewAuthHandler(deps.SigningKey, deps.TokenTTL, deps.Credentials)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.Token) // POST /auth/token
	})

	// ===== PROTECTED ROUTES (JWT required) =====

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimiddleware.Auth(deps.SigningKey))

		toolHandler := handlers.NewToolHandler(deps.Registry, deps.Dispatcher)
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", toolHandler.List)             // GET /api/v1/tools
			r.Post("/execute", toolHandler.Execute)  // POST /api/v1/tools/execute
		})

		if deps.Runner != nil {
			turnHandler := handlers.NewTurnHandler(deps.Runner)
			r.Post("/turns", turnHandler.Create) // POST /api/v1/turns
		} else {
			r.Post("/turns", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"no LLM provider configured"}`)) //nolint:errcheck
			})
		}

		exampleHandler := handlers.NewExampleHandler(deps.DatasetPath)
		r.Get("/examples", exampleHandler.List) // GET /api/v1/examples

		if deps.Audit != nil {
			activityHandler := handlers.NewActivityHandler(deps.Audit)
			r.Get("/invocations", activityHandler.List) // GET /api/v1/invocations
		}
	})

	return r
}
