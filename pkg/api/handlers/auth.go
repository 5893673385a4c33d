package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/formlift/formlift/config"
	apierrors "github.com/formlift/formlift/pkg/api/errors"
	apimiddleware "github.com/formlift/formlift/pkg/api/middleware"
	"github.com/formlift/formlift/pkg/auth"
	"github.com/formlift/formlift/pkg/billing"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/notify"
	"github.com/formlift/formlift/pkg/store"
)

// Notifier receives account lifecycle events
type Notifier interface {
	Notify(e notify.Event) bool
}

// AuthHandler handles registration, login and session management
type AuthHandler struct {
	accounts   *store.AccountStore
	blacklist  *auth.TokenBlacklist
	dispatcher Notifier
	config     *config.Config
	validator  *validator.Validate
}

// NewAuthHandler creates a new auth handler. blacklist and dispatcher may
// be nil.
func NewAuthHandler(accounts *store.AccountStore, blacklist *auth.TokenBlacklist, dispatcher Notifier, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		blacklist:  blacklist,
		dispatcher: dispatcher,
		config:     cfg,
		validator:  validator.New(),
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if existing, err := h.accounts.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return apierrors.ConflictError(c, "An account with this email already exists")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	// Every new account starts on the free plan
	limits := billing.LimitsForPlan(models.PlanFree)
	account, err := h.accounts.Create(ctx, req.Email, req.Name, passwordHash, models.PlanFree, limits)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	log.Printf("👤 New account registered: %s (id %d)", account.Email, account.ID)

	if h.dispatcher != nil {
		h.dispatcher.Notify(notify.Event{
			Type:      notify.EventAccountCreated,
			AccountID: account.ID,
			Data: map[string]string{
				"account_email": account.Email,
				"name":          account.Name,
			},
		})
	}

	token, err := auth.GenerateJWT(account.ID, account.Email, account.Plan, account.IsAdmin, h.config.JWTSecret, h.config.JWTExpirationHours)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusCreated, models.AuthResponse{
		Token:   token,
		Account: *account,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	account, err := h.accounts.GetByEmail(ctx, req.Email)
	if err != nil || account == nil {
		// Same answer for unknown email and wrong password
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "UNAUTHORIZED",
			Message: "Invalid email or password",
		})
	}

	if !account.Active {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "UNAUTHORIZED",
			Message: "This account has been deactivated",
		})
	}

	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "UNAUTHORIZED",
			Message: "Invalid email or password",
		})
	}

	token, err := auth.GenerateJWT(account.ID, account.Email, account.Plan, account.IsAdmin, h.config.JWTSecret, h.config.JWTExpirationHours)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, models.AuthResponse{
		Token:   token,
		Account: *account,
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		return apierrors.UnauthorizedError(c)
	}

	return c.JSON(http.StatusOK, account)
}

// Logout handles POST /api/v1/auth/logout by revoking the current token
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := c.Get(apimiddleware.ContextToken).(string)
	if !ok || token == "" {
		return apierrors.UnauthorizedError(c)
	}

	if h.blacklist != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		ttl := time.Duration(h.config.JWTExpirationHours) * time.Hour
		if err := h.blacklist.Add(ctx, token, ttl); err != nil {
			log.Printf("⚠️  Failed to blacklist token: %v", err)
			return apierrors.InternalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// parseIDParam reads a numeric path parameter shared by the handlers
func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
