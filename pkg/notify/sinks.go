package notify

import (
	"context"
	"strconv"

	"github.com/formlift/formlift/pkg/email"
	"github.com/formlift/formlift/pkg/slack"
)

// SlackSink forwards events to the operator Slack channel
type SlackSink struct {
	service *slack.Service
}

// NewSlackSink creates a Slack-backed sink
func NewSlackSink(service *slack.Service) *SlackSink {
	return &SlackSink{service: service}
}

func (s *SlackSink) Name() string { return "slack" }

// Deliver maps an event onto the matching Slack notification. Unknown event
// types are ignored.
func (s *SlackSink) Deliver(ctx context.Context, e Event) error {
	switch e.Type {
	case EventLeadCreated:
		return s.service.NotifyNewLead(ctx, e.Data["form_name"], e.Data["lead_email"], e.Data["lead_url"])
	case EventQuotaExceeded:
		current, _ := strconv.ParseInt(e.Data["current"], 10, 64)
		limit, _ := strconv.ParseInt(e.Data["limit"], 10, 64)
		return s.service.NotifyQuotaExhausted(ctx, e.Data["account_email"], e.Data["resource"], current, limit)
	case EventPlanChanged:
		return s.service.NotifyPlanChange(ctx, e.Data["account_email"], e.Data["from_plan"], e.Data["to_plan"])
	case EventAccountCreated:
		return s.service.NotifyNewUser(ctx, e.Data["name"], e.Data["account_email"])
	}
	return nil
}

// EmailSink notifies form owners by email
type EmailSink struct {
	service *email.Service
}

// NewEmailSink creates an email-backed sink
func NewEmailSink(service *email.Service) *EmailSink {
	return &EmailSink{service: service}
}

func (s *EmailSink) Name() string { return "email" }

// Deliver maps an event onto the matching owner email. Events without an
// account email and unknown event types are ignored.
func (s *EmailSink) Deliver(ctx context.Context, e Event) error {
	to := e.Data["account_email"]
	if to == "" {
		return nil
	}
	switch e.Type {
	case EventLeadCreated:
		return s.service.SendNewLeadEmail(to, e.Data["form_name"], e.Data["lead_email"], e.Data["lead_url"])
	case EventQuotaExceeded:
		current, _ := strconv.ParseInt(e.Data["current"], 10, 64)
		limit, _ := strconv.ParseInt(e.Data["limit"], 10, 64)
		return s.service.SendQuotaWarningEmail(to, e.Data["resource"], current, limit)
	case EventAccountCreated:
		return s.service.SendWelcomeEmail(to, e.Data["name"])
	}
	return nil
}
