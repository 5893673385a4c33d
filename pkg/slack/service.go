package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrSlackSendFailed is returned when Slack API fails
	ErrSlackSendFailed = errors.New("failed to send Slack notification")
)

// Message represents a Slack message
type Message struct {
	Text string `json:"text"`
}

// SlackClient is an interface for sending Slack notifications
type SlackClient interface {
	SendMessage(ctx context.Context, msg Message) error
}

// WebhookClient implements SlackClient using Slack webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new Slack webhook client
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage sends a message to Slack via webhook
func (c *WebhookClient) SendMessage(ctx context.Context, msg Message) error {
	if c.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrSlackSendFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrSlackSendFailed
	}

	return nil
}

// Service handles Slack notifications
type Service struct {
	client SlackClient
}

// NewService creates a new Slack service
func NewService(client SlackClient) *Service {
	return &Service{
		client: client,
	}
}

// IsEnabled returns true if Slack notifications are enabled
func (s *Service) IsEnabled() bool {
	return s.client != nil
}

// NotifyNewLead sends a notification for a new form submission
func (s *Service) NotifyNewLead(ctx context.Context, formName, email, url string) error {
	if !s.IsEnabled() {
		return nil // Silently skip if not enabled
	}

	text := fmt.Sprintf("🎯 *New Lead*\n"+
		"• Form: %s\n"+
		"• Email: %s\n"+
		"• URL: %s",
		formName, email, url)

	msg := Message{Text: text}
	return s.client.SendMessage(ctx, msg)
}

// NotifyQuotaExhausted sends a notification when an account hits a quota limit
func (s *Service) NotifyQuotaExhausted(ctx context.Context, accountEmail, resource string, current, limit int64) error {
	if !s.IsEnabled() {
		return nil
	}

	text := fmt.Sprintf("⚠️ *Quota Exhausted*\n"+
		"• Account: %s\n"+
		"• Resource: %s\n"+
		"• Usage: %d/%d",
		accountEmail, resource, current, limit)

	msg := Message{Text: text}
	return s.client.SendMessage(ctx, msg)
}

// NotifyPlanChange sends a notification when an account changes plan
func (s *Service) NotifyPlanChange(ctx context.Context, accountEmail, fromPlan, toPlan string) error {
	if !s.IsEnabled() {
		return nil
	}

	text := fmt.Sprintf("🚀 *Plan Change*\n"+
		"• Account: %s\n"+
		"• From: %s\n"+
		"• To: %s",
		accountEmail, fromPlan, toPlan)

	msg := Message{Text: text}
	return s.client.SendMessage(ctx, msg)
}

// NotifyNewUser sends a notification when a new account registers
func (s *Service) NotifyNewUser(ctx context.Context, name, email string) error {
	if !s.IsEnabled() {
		return nil
	}

	text := fmt.Sprintf("👤 *New Account*\n"+
		"• Name: %s\n"+
		"• Email: %s",
		name, email)

	msg := Message{Text: text}
	return s.client.SendMessage(ctx, msg)
}
