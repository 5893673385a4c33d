package models

import "time"

// Plan tiers
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Account represents a form owner's account. Accounts are deactivated,
// never deleted.
type Account struct {
	ID               int64      `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Name             string     `db:"name" json:"name"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Plan             string     `db:"plan" json:"plan"`
	IsAdmin          bool       `db:"is_admin" json:"is_admin"`
	Active           bool       `db:"active" json:"active"`
	MaxForms         *int64     `db:"max_forms" json:"max_forms"`
	MaxLeads         *int64     `db:"max_leads" json:"max_leads"`
	MaxStorageBytes  *int64     `db:"max_storage_bytes" json:"max_storage_bytes"`
	DailyTestLimit   *int64     `db:"daily_test_limit" json:"daily_test_limit"`
	StripeCustomerID *string    `db:"stripe_customer_id" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// AccountLimits holds the configured quota limits for an account.
// A nil field means unlimited.
type AccountLimits struct {
	MaxForms        *int64 `db:"max_forms" json:"max_forms"`
	MaxLeads        *int64 `db:"max_leads" json:"max_leads"`
	MaxStorageBytes *int64 `db:"max_storage_bytes" json:"max_storage_bytes"`
	DailyTestLimit  *int64 `db:"daily_test_limit" json:"daily_test_limit"`
}

// UsageInfo reports counter state against configured limits for the
// account usage endpoint. Limits are nil when unlimited.
type UsageInfo struct {
	Forms        int64  `json:"forms"`
	MaxForms     *int64 `json:"max_forms"`
	Leads        int64  `json:"leads"`
	MaxLeads     *int64 `json:"max_leads"`
	StorageBytes int64  `json:"storage_bytes"`
	MaxStorage   *int64 `json:"max_storage_bytes"`
	TestsToday   int64  `json:"tests_today"`
	DailyTests   *int64 `json:"daily_test_limit"`
	Plan         string `json:"plan"`
}
