package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	ScheduledJobs int             `json:"scheduled_jobs"`
	Metrics       MetricsSnapshot `json:"metrics"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Metrics:       g.metrics.Snapshot(),
		}

		if g.jobs != nil {
			if jobs, err := g.jobs.ListActiveScheduled(r.Context()); err == nil {
				resp.ScheduledJobs = len(jobs)
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
