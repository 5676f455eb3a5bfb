// Package api implements the optional `recipeforge serve` HTTP control
// surface (SPEC_FULL.md §8): submit a recipe for background execution,
// poll its status, cancel it. It is adapted from the teacher's
// internal/api/router.go — the same chi.NewRouter + middleware stack +
// go-chi/cors wiring — trimmed from dozens of route groups (agents,
// recipes, model router, MCP gateway, RAG, kitchens, ...) down to the
// four run-lifecycle routes this domain has (list, submit, get, cancel). Nothing in the core engine
// (internal/executor, internal/steps) depends on this package.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP handler for the serve control surface.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.ListRuns)
		r.Post("/", h.SubmitRun)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", h.GetRun)
			r.Post("/cancel", h.CancelRun)
		})
	})

	return r
}
