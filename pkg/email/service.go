package email

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers a single email
type Sender interface {
	Send(fromName, fromEmail, toEmail, subject, plainText, htmlBody string) error
}

// SendGridSender delivers mail through the SendGrid API
type SendGridSender struct {
	client *sendgrid.Client
}

// NewSendGridSender creates a SendGrid-backed sender
func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey)}
}

// Send delivers the email via SendGrid
func (s *SendGridSender) Send(fromName, fromEmail, toEmail, subject, plainText, htmlBody string) error {
	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlBody)

	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ConsoleSender logs emails instead of sending them, useful for development
type ConsoleSender struct{}

// Send logs the email to stdout
func (ConsoleSender) Send(fromName, fromEmail, toEmail, subject, plainText, _ string) error {
	log.Printf("📧 [EMAIL] To: %s", toEmail)
	log.Printf("   From: %s <%s>", fromName, fromEmail)
	log.Printf("   Subject: %s", subject)
	log.Printf("   Body:")
	log.Printf("   ---")
	log.Printf("   %s", plainText)
	log.Printf("   ---")
	return nil
}

// Service handles email sending
type Service struct {
	sender    Sender
	fromEmail string
	fromName  string
	baseURL   string
}

// NewService creates a new email service. With an empty API key emails are
// logged to the console instead of sent.
func NewService(apiKey, fromEmail, fromName, baseURL string) *Service {
	var sender Sender
	if apiKey != "" {
		sender = NewSendGridSender(apiKey)
	} else {
		log.Printf("ℹ️  SendGrid API key not set, emails will be logged to console")
		sender = ConsoleSender{}
	}
	return &Service{
		sender:    sender,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}
}

// NewServiceWithSender creates an email service with a custom sender
func NewServiceWithSender(sender Sender, fromEmail, fromName, baseURL string) *Service {
	return &Service{
		sender:    sender,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}
}

// SendWelcomeEmail sends a welcome email to a newly registered account
func (s *Service) SendWelcomeEmail(toEmail, toName string) error {
	subject := "Welcome to FormLift"
	plain := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Welcome to FormLift! Your account is ready.\n\n"+
			"Create your first form at %s/forms and start capturing leads.\n\n"+
			"Thanks,\nThe FormLift Team",
		toName, s.baseURL)
	html := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Welcome to FormLift! Your account is ready.</p>"+
			"<p>Create your first form at <a href=\"%s/forms\">%s/forms</a> and start capturing leads.</p>"+
			"<p>Thanks,<br>The FormLift Team</p>",
		toName, s.baseURL, s.baseURL)

	return s.sender.Send(s.fromName, s.fromEmail, toEmail, subject, plain, html)
}

// SendNewLeadEmail notifies a form owner about a new submission
func (s *Service) SendNewLeadEmail(toEmail, formName, leadEmail, leadURL string) error {
	subject := fmt.Sprintf("New lead on %s", formName)
	plain := fmt.Sprintf(
		"Your form %q captured a new lead.\n\n"+
			"Email: %s\n"+
			"URL: %s\n\n"+
			"View all leads at %s/leads",
		formName, leadEmail, leadURL, s.baseURL)
	html := fmt.Sprintf(
		"<p>Your form <strong>%s</strong> captured a new lead.</p>"+
			"<p>Email: %s<br>URL: %s</p>"+
			"<p><a href=\"%s/leads\">View all leads</a></p>",
		formName, leadEmail, leadURL, s.baseURL)

	return s.sender.Send(s.fromName, s.fromEmail, toEmail, subject, plain, html)
}

// SendQuotaWarningEmail warns a form owner their quota is exhausted
func (s *Service) SendQuotaWarningEmail(toEmail, resource string, current, limit int64) error {
	subject := "FormLift quota reached"
	plain := fmt.Sprintf(
		"Your account reached its %s quota (%d/%d).\n\n"+
			"New submissions will be rejected until you upgrade your plan.\n\n"+
			"Upgrade at %s/billing",
		resource, current, limit, s.baseURL)
	html := fmt.Sprintf(
		"<p>Your account reached its <strong>%s</strong> quota (%d/%d).</p>"+
			"<p>New submissions will be rejected until you upgrade your plan.</p>"+
			"<p><a href=\"%s/billing\">Upgrade your plan</a></p>",
		resource, current, limit, s.baseURL)

	return s.sender.Send(s.fromName, s.fromEmail, toEmail, subject, plain, html)
}
