package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/formlift/formlift/pkg/api/errors"
	apimiddleware "github.com/formlift/formlift/pkg/api/middleware"
	"github.com/formlift/formlift/pkg/billing"
	"github.com/formlift/formlift/pkg/models"
)

// CheckoutRequest selects the paid plan to subscribe to
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=pro business"`
}

// PortalRequest carries the URL Stripe sends the customer back to
type PortalRequest struct {
	ReturnURL string `json:"return_url" validate:"required,url"`
}

// BillingHandler handles checkout, the customer portal and Stripe webhooks
type BillingHandler struct {
	billing   *billing.Service
	validator *validator.Validate
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingService *billing.Service) *BillingHandler {
	return &BillingHandler{
		billing:   billingService,
		validator: validator.New(),
	}
}

// Plans handles GET /api/v1/billing/plans
func (h *BillingHandler) Plans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": billing.Plans,
	})
}

// Checkout handles POST /api/v1/billing/checkout
func (h *BillingHandler) Checkout(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	resp, err := h.billing.CreateCheckoutSession(ctx, accountID, req.Plan)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Portal handles POST /api/v1/billing/portal
func (h *BillingHandler) Portal(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req PortalRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	resp, err := h.billing.CreatePortalSession(ctx, accountID, req.ReturnURL)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Webhook handles POST /api/v1/billing/webhook. Stripe signs the raw body,
// so it is read verbatim instead of bound.
func (h *BillingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return apierrors.ValidationError(c, err)
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: "Missing Stripe-Signature header",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if err := h.billing.HandleWebhook(ctx, payload, signature); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: "Webhook processing failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"received": "true"})
}
