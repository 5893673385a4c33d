package store

import (
	"context"

	"github.com/formlift/formlift/pkg/models"
)

// Quota aggregates the counter reads the admission controller needs.
// All counts are recomputed from stored rows at check time.
type Quota struct {
	accounts *AccountStore
	forms    *FormStore
	leads    *LeadStore
	files    *FileStore
	usage    *UsageStore
}

// NewQuota creates the quota read facade
func NewQuota(accounts *AccountStore, forms *FormStore, leads *LeadStore, files *FileStore, usage *UsageStore) *Quota {
	return &Quota{
		accounts: accounts,
		forms:    forms,
		leads:    leads,
		files:    files,
		usage:    usage,
	}
}

// GetAccountLimits returns the configured limits (nil = unlimited)
func (q *Quota) GetAccountLimits(ctx context.Context, accountID int64) (*models.AccountLimits, error) {
	return q.accounts.GetLimits(ctx, accountID)
}

// CountForms counts forms owned by the account
func (q *Quota) CountForms(ctx context.Context, accountID int64) (int64, error) {
	return q.forms.CountByAccount(ctx, accountID)
}

// CountLeads recounts stored leads across all the account's forms
func (q *Quota) CountLeads(ctx context.Context, accountID int64) (int64, error) {
	return q.leads.CountByAccount(ctx, accountID)
}

// CountStorageBytes sums stored knowledge-file bytes
func (q *Quota) CountStorageBytes(ctx context.Context, accountID int64) (int64, error) {
	return q.files.SumBytesByAccount(ctx, accountID)
}

// GetDailyTestCount reads the AI test counter for a UTC day
func (q *Quota) GetDailyTestCount(ctx context.Context, accountID int64, day string) (int64, error) {
	return q.usage.GetDailyTestCount(ctx, accountID, day)
}
