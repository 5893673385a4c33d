package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v76"
	billingportalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/notify"
)

// AccountStore is the persistence surface billing needs
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	UpdatePlan(ctx context.Context, accountID int64, plan string, limits models.AccountLimits) error
	SetStripeCustomerID(ctx context.Context, accountID int64, customerID string) error
}

// Notifier receives plan change events
type Notifier interface {
	Notify(e notify.Event) bool
}

// StripeConfig holds Stripe configuration
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PricePro      string
	PriceBusiness string
	SuccessURL    string
	CancelURL     string
}

// CheckoutResponse is returned after creating a checkout session
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// PortalResponse is returned after creating a customer portal session
type PortalResponse struct {
	URL string `json:"url"`
}

// Service handles Stripe billing operations
type Service struct {
	accounts   AccountStore
	dispatcher Notifier
	config     *StripeConfig
}

// NewService creates a new billing service
func NewService(accounts AccountStore, dispatcher Notifier, config *StripeConfig) *Service {
	// Set Stripe API key
	stripe.Key = config.SecretKey

	return &Service{
		accounts:   accounts,
		dispatcher: dispatcher,
		config:     config,
	}
}

// CreateCheckoutSession creates a Stripe checkout session for a paid plan
func (s *Service) CreateCheckoutSession(ctx context.Context, accountID int64, plan string) (*CheckoutResponse, error) {
	priceID, err := s.priceIDForPlan(plan)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	// Create or reuse the Stripe customer
	var customerID string
	if account.StripeCustomerID != nil && *account.StripeCustomerID != "" {
		customerID = *account.StripeCustomerID
	} else {
		params := &stripe.CustomerParams{
			Email: stripe.String(account.Email),
			Name:  stripe.String(account.Name),
			Metadata: map[string]string{
				"account_id": fmt.Sprintf("%d", accountID),
			},
		}
		cust, err := customer.New(params)
		if err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		customerID = cust.ID

		if err := s.accounts.SetStripeCustomerID(ctx, accountID, customerID); err != nil {
			return nil, fmt.Errorf("failed to save customer ID: %w", err)
		}
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.config.SuccessURL),
		CancelURL:  stripe.String(s.config.CancelURL),
		Metadata: map[string]string{
			"account_id": fmt.Sprintf("%d", accountID),
			"plan":       plan,
		},
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// CreatePortalSession creates a Stripe customer portal session
func (s *Service) CreatePortalSession(ctx context.Context, accountID int64, returnURL string) (*PortalResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if account.StripeCustomerID == nil || *account.StripeCustomerID == "" {
		return nil, domain.NewValidationError("account has no billing profile yet")
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*account.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	}

	sess, err := billingportalsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}

	return &PortalResponse{URL: sess.URL}, nil
}

// HandleWebhook processes Stripe webhook events
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		return fmt.Errorf("webhook signature verification failed: %w", err)
	}

	log.Printf("📨 Stripe webhook received: %s", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handleInvoicePaymentFailed(event)
	default:
		log.Printf("⚠️  Unhandled webhook event type: %s", event.Type)
	}

	return nil
}

// ApplyPlan moves an account to a plan and updates its quota limits
func (s *Service) ApplyPlan(ctx context.Context, accountID int64, plan string) error {
	p, err := PlanByName(plan)
	if err != nil {
		return domain.NewValidationError(err.Error())
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	fromPlan := account.Plan

	if err := s.accounts.UpdatePlan(ctx, accountID, p.Name, p.Limits); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	log.Printf("✅ Account %d moved from %s to %s plan", accountID, fromPlan, p.Name)

	if s.dispatcher != nil {
		s.dispatcher.Notify(notify.Event{
			Type:      notify.EventPlanChanged,
			AccountID: accountID,
			Data: map[string]string{
				"account_email": account.Email,
				"from_plan":     fromPlan,
				"to_plan":       p.Name,
			},
		})
	}
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}

	accountIDStr, ok := sess.Metadata["account_id"]
	if !ok {
		return fmt.Errorf("account_id not found in metadata")
	}
	var accountID int64
	fmt.Sscanf(accountIDStr, "%d", &accountID)

	plan := sess.Metadata["plan"]
	log.Printf("✅ Checkout completed: account_id=%d, plan=%s", accountID, plan)

	return s.ApplyPlan(ctx, accountID, plan)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	accountIDStr, ok := sub.Metadata["account_id"]
	if !ok {
		log.Printf("⚠️  Subscription %s has no account metadata, skipping downgrade", sub.ID)
		return nil
	}
	var accountID int64
	fmt.Sscanf(accountIDStr, "%d", &accountID)

	log.Printf("❌ Subscription deleted for account %d, downgrading to free", accountID)
	return s.ApplyPlan(ctx, accountID, models.PlanFree)
}

func (s *Service) handleInvoicePaymentFailed(event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	log.Printf("⚠️  Invoice payment failed: %s", invoice.ID)
	return nil
}

func (s *Service) priceIDForPlan(plan string) (string, error) {
	switch plan {
	case models.PlanPro:
		return s.config.PricePro, nil
	case models.PlanBusiness:
		return s.config.PriceBusiness, nil
	default:
		return "", fmt.Errorf("invalid plan: %s", plan)
	}
}
