package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/formlift/formlift/pkg/models"
)

// RequireAdmin restricts a route to accounts with the admin flag set.
// It must run after the JWT middleware.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			admin, ok := c.Get(ContextAdmin).(bool)
			if !ok || !admin {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "FORBIDDEN",
					Message: "Admin access required",
				})
			}
			return next(c)
		}
	}
}
