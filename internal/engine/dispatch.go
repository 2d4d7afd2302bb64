package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/credential"
	"github.com/taskflowhq/taskflow/internal/mail"
	"github.com/taskflowhq/taskflow/internal/store"
	"github.com/taskflowhq/taskflow/internal/summary"
)

// Action type tags carried by jobs.
const (
	ActionEmailRecap = "EMAIL_RECAP"
	ActionSendEmail  = "SEND_EMAIL"
)

const (
	// defaultHoursBack is the recap window when the job config does not
	// say otherwise.
	defaultHoursBack = 18

	// defaultFetchLimit bounds how many messages one recap may fetch.
	defaultFetchLimit = 50

	defaultReminderSubject = "Reminder from TaskFlow"
)

// Dispatcher maps a job's action type and JSON configuration to a
// concrete side-effecting operation.
type Dispatcher struct {
	creds      *credential.Manager
	fetcher    mail.Fetcher
	sender     mail.Sender
	summarizer summary.Summarizer // nil when summarization is not configured
	logger     *slog.Logger
	fetchLimit int
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher. summarizer may be nil; fetchLimit
// <= 0 falls back to the default.
func NewDispatcher(creds *credential.Manager, fetcher mail.Fetcher, sender mail.Sender, summarizer summary.Summarizer, logger *slog.Logger, fetchLimit int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	return &Dispatcher{
		creds:      creds,
		fetcher:    fetcher,
		sender:     sender,
		summarizer: summarizer,
		logger:     logger,
		fetchLimit: fetchLimit,
		now:        time.Now,
	}
}

// Dispatch runs the action for the owning user. Credential, configuration,
// and provider errors propagate to the caller; the coordinator decides
// what they mean for the job.
func (d *Dispatcher) Dispatch(ctx context.Context, user store.User, actionType, actionConfig string) error {
	switch actionType {
	case ActionEmailRecap:
		return d.emailRecap(ctx, user, actionConfig)
	case ActionSendEmail:
		return d.sendEmail(ctx, user, actionConfig)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, actionType)
	}
}

// recapConfig is the EMAIL_RECAP action configuration.
type recapConfig struct {
	HoursBack *int `json:"hoursBack"`
}

// hoursBack extracts the recap window from the raw config. Recaps are
// best-effort, so a missing or malformed value falls back to the default
// instead of failing the job.
func (d *Dispatcher) hoursBack(raw string) int {
	if strings.TrimSpace(raw) == "" {
		return defaultHoursBack
	}
	var cfg recapConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		d.logger.Warn("engine: unparseable recap config, using default window", "error", err)
		return defaultHoursBack
	}
	if cfg.HoursBack == nil || *cfg.HoursBack <= 0 {
		return defaultHoursBack
	}
	return *cfg.HoursBack
}

func (d *Dispatcher) emailRecap(ctx context.Context, user store.User, actionConfig string) error {
	hours := d.hoursBack(actionConfig)
	to := d.now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	token, err := d.creds.AccessToken(ctx, user.ID)
	if err != nil {
		return err
	}

	d.logger.Info("engine: fetching messages for recap",
		"user", user.Email, "hours_back", hours, "limit", d.fetchLimit)

	msgs, err := d.fetcher.ListSince(ctx, token, from, d.fetchLimit)
	if err != nil {
		return err
	}

	recap := make([]recapMessage, 0, len(msgs))
	for _, m := range msgs {
		rm := recapMessage{Message: m}
		if d.summarizer != nil {
			s, err := d.summarizer.Summarize(ctx, m.From, m.Subject, m.Snippet)
			if err != nil {
				// Summaries are a garnish; one failure never aborts the recap.
				d.logger.Warn("engine: summarization failed, keeping snippet",
					"user", user.Email, "subject", m.Subject, "error", err)
			} else {
				rm.Summary = s
			}
		}
		recap = append(recap, rm)
	}

	subject := "📧 Your Email Recap - " + to.Format("2006-01-02")
	body := recapHTML(recap, from, to)

	id, err := d.sender.Send(ctx, token, user.Email, user.Email, subject, body)
	if err != nil {
		return err
	}
	d.logger.Info("engine: recap sent", "user", user.Email, "messages", len(recap), "message_id", id)
	return nil
}

// sendConfig is the SEND_EMAIL action configuration. Pointer fields
// distinguish "absent" (use the default) from "present but empty".
type sendConfig struct {
	To      *string `json:"to"`
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
}

func (d *Dispatcher) sendEmail(ctx context.Context, user store.User, actionConfig string) error {
	if strings.TrimSpace(actionConfig) == "" {
		return fmt.Errorf("%w: email configuration is missing", ErrInvalidConfig)
	}

	var cfg sendConfig
	if err := json.Unmarshal([]byte(actionConfig), &cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	to := user.Email
	if cfg.To != nil && *cfg.To != "" {
		to = *cfg.To
	}
	subject := defaultReminderSubject
	if cfg.Subject != nil {
		subject = *cfg.Subject
	}
	body := ""
	if cfg.Body != nil {
		body = *cfg.Body
	}

	token, err := d.creds.AccessToken(ctx, user.ID)
	if err != nil {
		return err
	}

	id, err := d.sender.Send(ctx, token, user.Email, to, subject, reminderHTML(body))
	if err != nil {
		return err
	}
	d.logger.Info("engine: reminder sent", "user", user.Email, "to", to, "message_id", id)
	return nil
}
