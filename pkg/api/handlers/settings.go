package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/formlift/formlift/pkg/ai"
	apierrors "github.com/formlift/formlift/pkg/api/errors"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/settings"
)

// UpdateSettingsRequest carries the admin model selections. Empty fields
// are left untouched.
type UpdateSettingsRequest struct {
	TextModel  string `json:"text_model" validate:"omitempty,min=3,max=200"`
	ImageModel string `json:"image_model" validate:"omitempty,min=3,max=200"`
}

// SettingsHandler exposes the admin-controlled model selections
type SettingsHandler struct {
	settings  *settings.Service
	validator *validator.Validate
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *settings.Service) *SettingsHandler {
	return &SettingsHandler{
		settings:  settingsService,
		validator: validator.New(),
	}
}

// Get handles GET /api/v1/admin/settings
func (h *SettingsHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	textModel, err := h.settings.Get(ctx, settings.KeyTextModel)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	imageModel, err := h.settings.Get(ctx, settings.KeyImageModel)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"text_model":  textModel,
		"image_model": imageModel,
	})
}

// Update handles PUT /api/v1/admin/settings. Model strings take effect on
// the next submission without a restart.
func (h *SettingsHandler) Update(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if req.TextModel == "" && req.ImageModel == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: "At least one of text_model or image_model is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.TextModel != "" {
		if m := ai.ParseModel(req.TextModel); m.ID == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "VALIDATION_ERROR",
				Message: "text_model must be 'provider:modelId' or a bare model id",
			})
		}
		if err := h.settings.Set(ctx, settings.KeyTextModel, req.TextModel); err != nil {
			return apierrors.InternalError(c, err)
		}
	}
	if req.ImageModel != "" {
		if m := ai.ParseModel(req.ImageModel); m.ID == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "VALIDATION_ERROR",
				Message: "image_model must be 'provider:modelId' or a bare model id",
			})
		}
		if err := h.settings.Set(ctx, settings.KeyImageModel, req.ImageModel); err != nil {
			return apierrors.InternalError(c, err)
		}
	}

	return h.Get(c)
}
