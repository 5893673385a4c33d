package admission

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/formlift/formlift/pkg/models"
	"github.com/formlift/formlift/pkg/store"
)

// Resource identifies a quota-gated resource
type Resource string

// Quota-gated resources
const (
	ResourceForms      Resource = "forms"
	ResourceLeads      Resource = "leads"
	ResourceStorage    Resource = "storageBytes"
	ResourceDailyTests Resource = "dailyTests"
)

// QuotaReader exposes the counter reads admission needs. Counts are
// recomputed from stored rows, never taken from denormalized columns.
type QuotaReader interface {
	GetAccountLimits(ctx context.Context, accountID int64) (*models.AccountLimits, error)
	CountForms(ctx context.Context, accountID int64) (int64, error)
	CountLeads(ctx context.Context, accountID int64) (int64, error)
	CountStorageBytes(ctx context.Context, accountID int64) (int64, error)
	GetDailyTestCount(ctx context.Context, accountID int64, day string) (int64, error)
}

// Decision is the outcome of an admission check. Limit is nil when the
// resource is unlimited for the account.
type Decision struct {
	Allowed bool
	Current int64
	Limit   *int64
}

// Controller decides whether a quota-gated action may proceed. It is a
// pure read-and-decide component: the caller performs the action and then
// increments the counter itself.
type Controller struct {
	quota  QuotaReader
	logger *log.Logger
}

// NewController creates a new admission controller
func NewController(quota QuotaReader, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{quota: quota, logger: logger}
}

// Check evaluates whether consuming delta units of resource may proceed.
//
// Counter read failures fail closed for leads, forms and storage (a write
// we cannot account for must not happen) but fail open for daily tests:
// test accounting is best-effort and must not block generation when the
// counter backend is down.
func (c *Controller) Check(ctx context.Context, accountID int64, resource Resource, delta int64) (Decision, error) {
	limits, err := c.quota.GetAccountLimits(ctx, accountID)
	if err != nil {
		if resource == ResourceDailyTests {
			c.logger.Printf("⚠️  Admission limit read failed for account %d, allowing %s: %v", accountID, resource, err)
			return Decision{Allowed: true}, nil
		}
		return Decision{}, fmt.Errorf("failed to read account limits: %w", err)
	}

	limit := limitFor(limits, resource)
	if limit == nil {
		// nil limit means unlimited; skip the counter read entirely
		return Decision{Allowed: true, Limit: nil}, nil
	}

	current, err := c.count(ctx, accountID, resource)
	if err != nil {
		if resource == ResourceDailyTests {
			c.logger.Printf("⚠️  Admission counter read failed for account %d, allowing %s: %v", accountID, resource, err)
			return Decision{Allowed: true, Limit: limit}, nil
		}
		return Decision{}, fmt.Errorf("failed to read %s counter: %w", resource, err)
	}

	return Decision{
		Allowed: current+delta <= *limit,
		Current: current,
		Limit:   limit,
	}, nil
}

func (c *Controller) count(ctx context.Context, accountID int64, resource Resource) (int64, error) {
	switch resource {
	case ResourceForms:
		return c.quota.CountForms(ctx, accountID)
	case ResourceLeads:
		return c.quota.CountLeads(ctx, accountID)
	case ResourceStorage:
		return c.quota.CountStorageBytes(ctx, accountID)
	case ResourceDailyTests:
		return c.quota.GetDailyTestCount(ctx, accountID, store.Day(time.Now()))
	default:
		return 0, fmt.Errorf("unknown resource %q", resource)
	}
}

func limitFor(l *models.AccountLimits, resource Resource) *int64 {
	switch resource {
	case ResourceForms:
		return l.MaxForms
	case ResourceLeads:
		return l.MaxLeads
	case ResourceStorage:
		return l.MaxStorageBytes
	case ResourceDailyTests:
		return l.DailyTestLimit
	default:
		return nil
	}
}
