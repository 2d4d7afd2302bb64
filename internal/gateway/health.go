package gateway

import "net/http"

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"` // "ok" or "degraded"
}

// handleHealth returns an http.HandlerFunc for GET /health. The store
// is the only hard dependency, so a failing job list means degraded.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		status := http.StatusOK

		if g.jobs != nil {
			if _, err := g.jobs.ListActiveScheduled(r.Context()); err != nil {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, status, resp)
	}
}
