package errors

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/models"
)

// Respond maps a service error onto the matching HTTP response. Typed
// domain errors carry their own code and, for quota denials, the counter
// snapshot. Anything untyped is logged and answered with a generic 500.
func Respond(c echo.Context, err error) error {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		return InternalError(c, err)
	}

	body := models.ErrorResponse{
		Error:   derr.Code,
		Message: derr.Message,
	}

	switch derr.Code {
	case domain.ErrCodeValidation:
		return c.JSON(http.StatusBadRequest, body)
	case domain.ErrCodeUnauthorized:
		return c.JSON(http.StatusUnauthorized, body)
	case domain.ErrCodeForbidden:
		return c.JSON(http.StatusForbidden, body)
	case domain.ErrCodeNotFound:
		return c.JSON(http.StatusNotFound, body)
	case domain.ErrCodeDuplicateSubmission:
		return c.JSON(http.StatusConflict, body)
	case domain.ErrCodeQuotaExceeded:
		current, limit := derr.Current, derr.Limit
		body.Current = &current
		body.Limit = &limit
		return c.JSON(http.StatusTooManyRequests, body)
	case domain.ErrCodeConfiguration:
		log.Printf("[CONFIG ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
		return c.JSON(http.StatusServiceUnavailable, body)
	case domain.ErrCodeBackendCapability, domain.ErrCodeBackendFulfillment:
		log.Printf("[BACKEND ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
		return c.JSON(http.StatusBadGateway, body)
	default:
		return InternalError(c, err)
	}
}

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "UNAUTHORIZED",
		Message: "You are not authorized to access this resource.",
	})
}

// ConflictError returns a conflict error with a safe message
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "CONFLICT",
		Message: message,
	})
}
