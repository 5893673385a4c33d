package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/formlift/formlift/pkg/api/errors"
	apimiddleware "github.com/formlift/formlift/pkg/api/middleware"
	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

// UsageHandler reports counter state against the account's limits
type UsageHandler struct {
	quota    *store.Quota
	accounts *store.AccountStore
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(quota *store.Quota, accounts *store.AccountStore) *UsageHandler {
	return &UsageHandler{quota: quota, accounts: accounts}
}

// Get handles GET /api/v1/usage. Counts are recomputed from stored rows,
// the same reads the admission controller performs.
func (h *UsageHandler) Get(c echo.Context) error {
	accountID, ok := c.Get(apimiddleware.ContextAccountID).(int64)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	forms, err := h.quota.CountForms(ctx, accountID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	leads, err := h.quota.CountLeads(ctx, accountID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	storageBytes, err := h.quota.CountStorageBytes(ctx, accountID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	testsToday, err := h.quota.GetDailyTestCount(ctx, accountID, store.Day(time.Now().UTC()))
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, models.UsageInfo{
		Forms:        forms,
		MaxForms:     account.MaxForms,
		Leads:        leads,
		MaxLeads:     account.MaxLeads,
		StorageBytes: storageBytes,
		MaxStorage:   account.MaxStorageBytes,
		TestsToday:   testsToday,
		DailyTests:   account.DailyTestLimit,
		Plan:         account.Plan,
	})
}
