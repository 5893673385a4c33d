package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/formlift/formlift/pkg/api/errors"
	apimiddleware "github.com/formlift/formlift/pkg/api/middleware"
	"github.com/formlift/formlift/pkg/files"
	"github.com/formlift/formlift/pkg/forms"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

// Uploads larger than this are rejected before touching the storage quota
const maxUploadBytes = 20 << 20 // 20 MB

// FormHandler handles form management for authenticated owners
type FormHandler struct {
	forms     *forms.Service
	files     *files.Service
	leads     *store.LeadStore
	validator *validator.Validate
}

// NewFormHandler creates a new form handler. files may be nil when no
// storage backend is configured.
func NewFormHandler(formsService *forms.Service, filesService *files.Service, leads *store.LeadStore) *FormHandler {
	return &FormHandler{
		forms:     formsService,
		files:     filesService,
		leads:     leads,
		validator: validator.New(),
	}
}

// Create handles POST /api/v1/forms
func (h *FormHandler) Create(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req models.CreateFormRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	form, err := h.forms.Create(ctx, accountID, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusCreated, form)
}

// List handles GET /api/v1/forms
func (h *FormHandler) List(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.forms.List(ctx, accountID)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"forms": list,
		"count": len(list),
	})
}

// Get handles GET /api/v1/forms/:id
func (h *FormHandler) Get(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	formID, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	form, err := h.forms.Get(ctx, accountID, formID)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, form)
}

// ListLeads handles GET /api/v1/forms/:id/leads
func (h *FormHandler) ListLeads(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	formID, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.ValidationError(c, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Ownership check before touching leads
	if _, err := h.forms.Get(ctx, accountID, formID); err != nil {
		return apierrors.Respond(c, err)
	}

	list, err := h.leads.ListByForm(ctx, formID, limit, offset)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"leads": list,
		"count": len(list),
	})
}

// UploadFile handles POST /api/v1/forms/:id/files (multipart)
func (h *FormHandler) UploadFile(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	if h.files == nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "CONFIGURATION_ERROR",
			Message: "File storage is not configured",
		})
	}

	formID, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.ValidationError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apierrors.ValidationError(c, err)
	}
	if fileHeader.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: "File exceeds the maximum upload size",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	if int64(len(content)) > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: "File exceeds the maximum upload size",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	// Ownership check before consuming quota
	if _, err := h.forms.Get(ctx, accountID, formID); err != nil {
		return apierrors.Respond(c, err)
	}

	file, err := h.files.Upload(ctx, accountID, formID, fileHeader.Filename, content)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusCreated, file)
}

// ListFiles handles GET /api/v1/forms/:id/files
func (h *FormHandler) ListFiles(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	if h.files == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"files": []models.KnowledgeFile{}, "count": 0})
	}

	formID, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.forms.Get(ctx, accountID, formID); err != nil {
		return apierrors.Respond(c, err)
	}

	list, err := h.files.List(ctx, formID)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"files": list,
		"count": len(list),
	})
}
