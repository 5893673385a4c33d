package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/formlift/formlift/pkg/api/errors"
	apimiddleware "github.com/formlift/formlift/pkg/api/middleware"
	"github.com/formlift/formlift/pkg/generation"
	"github.com/formlift/formlift/pkg/models"
)

// SubmitHandler handles public form submissions
type SubmitHandler struct {
	pipeline  *generation.Service
	validator *validator.Validate
}

// NewSubmitHandler creates a new submit handler
func NewSubmitHandler(pipeline *generation.Service) *SubmitHandler {
	return &SubmitHandler{
		pipeline:  pipeline,
		validator: validator.New(),
	}
}

// Submit handles POST /api/v1/submit/:slug. The route sits behind the
// optional JWT middleware so a logged-in owner testing their own form is
// recognized, while anonymous visitors pass through.
func (h *SubmitHandler) Submit(c echo.Context) error {
	var req models.SubmissionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	slug := c.Param("slug")
	currentAccountID := apimiddleware.AccountID(c)

	resp, err := h.pipeline.Process(c.Request().Context(), slug, currentAccountID, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, resp)
}
