package jobs

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/notify"
)

// AccountUsage is one account's lead consumption against its limit
type AccountUsage struct {
	AccountID int64  `db:"account_id"`
	Email     string `db:"email"`
	LeadCount int64  `db:"lead_count"`
	MaxLeads  int64  `db:"max_leads"`
}

// Notifier receives usage warning events
type Notifier interface {
	Notify(e notify.Event) bool
}

// UsageMonitor inspects account quota consumption for the scheduled jobs
type UsageMonitor struct {
	db         *database.Client
	dispatcher Notifier
	logger     *log.Logger
}

// NewUsageMonitor creates a new usage monitor. dispatcher may be nil.
func NewUsageMonitor(db *database.Client, dispatcher Notifier, logger *log.Logger) *UsageMonitor {
	if logger == nil {
		logger = log.Default()
	}
	return &UsageMonitor{db: db, dispatcher: dispatcher, logger: logger}
}

// DetectAccountsNearLeadLimit finds limited accounts whose stored lead
// count has crossed the given fraction of their limit. Unlimited accounts
// (max_leads NULL) never match.
func (m *UsageMonitor) DetectAccountsNearLeadLimit(ctx context.Context, threshold float64) ([]AccountUsage, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}

	query := m.db.DB.Rebind(`
		SELECT a.id AS account_id, a.email, COUNT(l.id) AS lead_count, a.max_leads
		FROM accounts a
		JOIN forms f ON f.account_id = a.id
		JOIN leads l ON l.form_id = f.id
		WHERE a.active AND a.max_leads IS NOT NULL
		GROUP BY a.id, a.email, a.max_leads
		HAVING COUNT(l.id) >= a.max_leads * ?`)

	usages := []AccountUsage{}
	if err := m.db.DB.SelectContext(ctx, &usages, query, threshold); err != nil {
		return nil, fmt.Errorf("failed to detect accounts near lead limit: %w", err)
	}
	return usages, nil
}

// WarnAccountsNearLeadLimit emits a quota event for each account close to
// its lead limit so owners hear about it before submissions start failing.
func (m *UsageMonitor) WarnAccountsNearLeadLimit(ctx context.Context, threshold float64) (int, error) {
	usages, err := m.DetectAccountsNearLeadLimit(ctx, threshold)
	if err != nil {
		return 0, err
	}
	if m.dispatcher == nil {
		return 0, nil
	}

	sent := 0
	for _, u := range usages {
		ok := m.dispatcher.Notify(notify.Event{
			Type:      notify.EventQuotaExceeded,
			AccountID: u.AccountID,
			Data: map[string]string{
				"account_email": u.Email,
				"resource":      "leads",
				"current":       strconv.FormatInt(u.LeadCount, 10),
				"limit":         strconv.FormatInt(u.MaxLeads, 10),
			},
		})
		if ok {
			sent++
		}
	}
	return sent, nil
}

// GetUsageStats aggregates platform-wide counters for the stats job
func (m *UsageMonitor) GetUsageStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)
	for name, query := range map[string]string{
		"accounts": `SELECT COUNT(*) FROM accounts WHERE active`,
		"forms":    `SELECT COUNT(*) FROM forms`,
		"leads":    `SELECT COUNT(*) FROM leads`,
	} {
		var count int64
		if err := m.db.DB.GetContext(ctx, &count, query); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats[name] = count
	}
	return stats, nil
}
