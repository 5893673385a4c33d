package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/formlift/formlift/pkg/auth"
	"github.com/formlift/formlift/pkg/models"
)

// AccountLookup checks that the authenticated account still exists
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

// Context keys set by the JWT middleware
const (
	ContextToken     = "token"
	ContextAccountID = "account_id"
	ContextEmail     = "account_email"
	ContextPlan      = "account_plan"
	ContextAdmin     = "account_admin"
)

// JWTMiddleware creates a JWT authentication middleware
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(secret, nil, nil)
}

// JWTMiddlewareWithBlacklist creates a JWT middleware that also rejects
// revoked tokens and deactivated accounts
func JWTMiddlewareWithBlacklist(secret string, blacklist *auth.TokenBlacklist, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}
			token := parts[1]

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "Invalid or expired token",
				})
			}

			if accounts != nil {
				account, err := accounts.GetByID(ctx, claims.AccountID)
				if err != nil || account == nil {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
						Error:   "UNAUTHORIZED",
						Message: "Account not found",
					})
				}
				if !account.Active {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
						Error:   "UNAUTHORIZED",
						Message: "This account has been deactivated",
					})
				}
			}

			// Store token for potential logout
			c.Set(ContextToken, token)

			c.Set(ContextAccountID, claims.AccountID)
			c.Set(ContextEmail, claims.Email)
			c.Set(ContextPlan, claims.Plan)
			c.Set(ContextAdmin, claims.Admin)

			return next(c)
		}
	}
}

// OptionalJWT resolves the account when a valid token is present but lets
// anonymous requests through. The public submission endpoint uses it to
// recognize logged-in form owners.
func OptionalJWT(secret string, blacklist *auth.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := auth.ValidateJWTWithBlacklist(ctx, parts[1], secret, blacklist)
			if err != nil {
				// An invalid token on a public endpoint means anonymous
				return next(c)
			}

			c.Set(ContextAccountID, claims.AccountID)
			c.Set(ContextEmail, claims.Email)
			return next(c)
		}
	}
}

// AccountID extracts the authenticated account ID from context, nil when
// the request is anonymous
func AccountID(c echo.Context) *int64 {
	if id, ok := c.Get(ContextAccountID).(int64); ok {
		return &id
	}
	return nil
}
