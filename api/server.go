/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/properties/*     Property and record management
  /api/statements/*     Statement prepare/create/list
  /api/forms/*          Form schema registry
  /api/scenarios/*      Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.CreateProperty)
			r.Post("/{id}/revenues", h.AddRevenue)
			r.Post("/{id}/expenses", h.AddExpense)
			r.Post("/{id}/invoices", h.AddInvoice)
			r.Post("/{id}/mortgages", h.AddMortgage)
			r.Put("/{id}/depreciation", h.SetDepreciation)
		})

		// Statement routes
		r.Route("/statements", func(r chi.Router) {
			r.Get("/", h.ListStatements)
			r.Post("/", h.CreateStatement)
			r.Post("/prepare", h.PrepareStatement)
			r.Get("/{id}", h.GetStatement)
		})

		// Form schema routes
		r.Route("/forms", func(r chi.Router) {
			r.Get("/", h.ListForms)
			r.Post("/", h.RegisterForm)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Health check for ops probes
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
