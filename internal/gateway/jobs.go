package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskflowhq/taskflow/internal/engine"
	"github.com/taskflowhq/taskflow/internal/store"
)

// jobRequest is the create/update payload. The user email identifies
// the owner explicitly; the engine never reads ambient identity.
type jobRequest struct {
	User         string `json:"user"`
	Name         string `json:"name"`
	Trigger      string `json:"trigger"`
	CronExpr     string `json:"cron"`
	ActionType   string `json:"action_type"`
	ActionConfig string `json:"action_config"`
	Active       *bool  `json:"active"`
}

// jobJSON is the serialized job representation.
type jobJSON struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	Trigger      string `json:"trigger"`
	CronExpr     string `json:"cron,omitempty"`
	ActionType   string `json:"action_type"`
	ActionConfig string `json:"action_config,omitempty"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
	LastRunAt    string `json:"last_run_at,omitempty"`
}

func toJobJSON(j store.Job) jobJSON {
	out := jobJSON{
		ID:           j.ID,
		UserID:       j.UserID,
		Name:         j.Name,
		Trigger:      string(j.Trigger),
		CronExpr:     j.CronExpr,
		ActionType:   j.ActionType,
		ActionConfig: j.ActionConfig,
		Active:       j.Active,
		CreatedAt:    j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.LastRunAt != nil {
		out.LastRunAt = j.LastRunAt.UTC().Format(time.RFC3339)
	}
	return out
}

// validate checks the payload independent of storage.
func (req *jobRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}

	switch store.TriggerKind(req.Trigger) {
	case store.TriggerSchedule:
		if err := engine.ValidateSpec(req.CronExpr); err != nil {
			return errors.New("cron is not a valid 5- or 6-field expression")
		}
	case store.TriggerManual:
	default:
		return errors.New("trigger must be SCHEDULE or MANUAL")
	}

	switch req.ActionType {
	case engine.ActionEmailRecap, engine.ActionSendEmail:
	default:
		return errors.New("action_type must be EMAIL_RECAP or SEND_EMAIL")
	}

	if req.ActionConfig != "" && !json.Valid([]byte(req.ActionConfig)) {
		return errors.New("action_config must be a JSON document")
	}
	return nil
}

// resolveOwner maps the payload's user email to a user row, creating it
// on first use.
func (g *Gateway) resolveOwner(ctx context.Context, email string) (store.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, errors.New("user must be an email address")
	}

	u, err := g.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, err
	}

	u = store.User{Email: email}
	if err := g.users.Create(ctx, &u); err != nil {
		return store.User{}, err
	}
	g.logger.Info("gateway: user created", "email", email, "user_id", u.ID)
	return u, nil
}

func (g *Gateway) handleCreateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		owner, err := g.resolveOwner(r.Context(), req.User)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		job := store.Job{
			UserID:       owner.ID,
			Name:         req.Name,
			Trigger:      store.TriggerKind(req.Trigger),
			CronExpr:     req.CronExpr,
			ActionType:   req.ActionType,
			ActionConfig: req.ActionConfig,
			Active:       active,
		}
		if err := g.jobs.Create(r.Context(), &job); err != nil {
			g.logger.Error("gateway: create job", "error", err)
			writeError(w, http.StatusInternalServerError, "create failed")
			return
		}

		writeJSON(w, http.StatusCreated, toJobJSON(job))
	}
}

func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("user")
		if email == "" {
			writeError(w, http.StatusBadRequest, "user query parameter is required")
			return
		}

		owner, err := g.users.GetByEmail(r.Context(), strings.ToLower(email))
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, []jobJSON{})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}

		jobs, err := g.jobs.ListByUser(r.Context(), owner.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list failed")
			return
		}

		out := make([]jobJSON, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, toJobJSON(j))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// jobFromPath loads the job addressed by the {id} URL parameter, writing
// the error response itself when the job cannot be served.
func (g *Gateway) jobFromPath(w http.ResponseWriter, r *http.Request) (store.Job, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "job id must be an integer")
		return store.Job{}, false
	}

	job, err := g.jobs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return store.Job{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return store.Job{}, false
	}
	return job, true
}

func (g *Gateway) handleGetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := g.jobFromPath(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toJobJSON(job))
	}
}

func (g *Gateway) handleUpdateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := g.jobFromPath(w, r)
		if !ok {
			return
		}

		var req jobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Ownership is fixed at creation; updates cannot move a job.
		job.Name = req.Name
		job.Trigger = store.TriggerKind(req.Trigger)
		job.CronExpr = req.CronExpr
		job.ActionType = req.ActionType
		job.ActionConfig = req.ActionConfig
		if req.Active != nil {
			job.Active = *req.Active
		}

		if err := g.jobs.Update(r.Context(), &job); err != nil {
			g.logger.Error("gateway: update job", "job_id", job.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}

		writeJSON(w, http.StatusOK, toJobJSON(job))
	}
}

func (g *Gateway) handleDeleteJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := g.jobFromPath(w, r)
		if !ok {
			return
		}
		if err := g.jobs.Delete(r.Context(), job.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// runResultJSON is the response of POST /api/jobs/{id}/run.
type runResultJSON struct {
	JobID      int64  `json:"job_id"`
	State      string `json:"state"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "job id must be an integer")
			return
		}

		res, err := g.runner.RunNow(r.Context(), id)
		if errors.Is(err, engine.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		if err != nil {
			g.logger.Error("gateway: run job", "job_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "run failed")
			return
		}

		out := runResultJSON{
			JobID:      res.JobID,
			State:      string(res.State),
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// recordJSON is one execution record in GET /api/jobs/{id}/logs.
type recordJSON struct {
	ID         int64  `json:"id"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	ExecutedAt string `json:"executed_at"`
	DurationMS int64  `json:"duration_ms"`
}

func (g *Gateway) handleJobLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := g.jobFromPath(w, r)
		if !ok {
			return
		}

		limit := g.config.LogLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			if n < limit {
				limit = n
			}
		}

		recs, err := g.logs.ListByJob(r.Context(), job.ID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list failed")
			return
		}

		out := make([]recordJSON, 0, len(recs))
		for _, rec := range recs {
			out = append(out, recordJSON{
				ID:         rec.ID,
				Outcome:    string(rec.Outcome),
				Error:      rec.Error,
				ExecutedAt: rec.ExecutedAt.UTC().Format(time.RFC3339),
				DurationMS: rec.Duration.Milliseconds(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
