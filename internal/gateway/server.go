package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(g.metrics.middleware)

	// Public — no auth required. The OAuth callback must be reachable by
	// a browser redirect, so it cannot sit behind the token middleware.
	r.Get("/health", g.handleHealth())
	r.Get("/api/google/callback", g.handleGoogleCallback())

	protected := func(r chi.Router) {
		r.Get("/status", g.handleStatus())
		r.Handle("/metrics", promhttp.Handler())

		r.Route("/api", func(r chi.Router) {
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", g.handleCreateJob())
				r.Get("/", g.handleListJobs())
				r.Get("/{id}", g.handleGetJob())
				r.Put("/{id}", g.handleUpdateJob())
				r.Delete("/{id}", g.handleDeleteJob())
				r.Post("/{id}/run", g.handleRunJob())
				r.Get("/{id}/logs", g.handleJobLogs())
			})

			r.Route("/google", func(r chi.Router) {
				r.Get("/authorize", g.handleGoogleAuthorize())
				r.Get("/status", g.handleGoogleStatus())
				r.Post("/disconnect", g.handleGoogleDisconnect())
			})
		})
	}

	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth))
			protected(r)
		})
	} else {
		// No credentials configured: loopback-bind development mode.
		r.Group(protected)
	}

	return r
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
