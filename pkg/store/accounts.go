package store

import (
	"context"
	"fmt"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/models"
)

// AccountStore persists accounts
type AccountStore struct {
	db *database.Client
}

// NewAccountStore creates a new account store
func NewAccountStore(db *database.Client) *AccountStore {
	return &AccountStore{db: db}
}

// Create inserts a new account with the given plan limits
func (s *AccountStore) Create(ctx context.Context, email, name, passwordHash, plan string, limits models.AccountLimits) (*models.Account, error) {
	query := s.db.DB.Rebind(`
		INSERT INTO accounts (email, name, password_hash, plan, max_forms, max_leads, max_storage_bytes, daily_test_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := s.db.DB.QueryRowxContext(ctx, query,
		email, name, passwordHash, plan,
		limits.MaxForms, limits.MaxLeads, limits.MaxStorageBytes, limits.DailyTestLimit,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID retrieves an account by ID
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var a models.Account
	query := s.db.DB.Rebind(`SELECT * FROM accounts WHERE id = ?`)
	if err := s.db.DB.GetContext(ctx, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByEmail retrieves an account by email
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	query := s.db.DB.Rebind(`SELECT * FROM accounts WHERE email = ?`)
	if err := s.db.DB.GetContext(ctx, &a, query, email); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetLimits retrieves only the configured quota limits for an account.
// Nil fields mean unlimited.
func (s *AccountStore) GetLimits(ctx context.Context, accountID int64) (*models.AccountLimits, error) {
	var l models.AccountLimits
	query := s.db.DB.Rebind(`
		SELECT max_forms, max_leads, max_storage_bytes, daily_test_limit
		FROM accounts WHERE id = ?`)
	if err := s.db.DB.GetContext(ctx, &l, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to get account limits: %w", err)
	}
	return &l, nil
}

// UpdatePlan changes an account's plan and rewrites its limits
func (s *AccountStore) UpdatePlan(ctx context.Context, accountID int64, plan string, limits models.AccountLimits) error {
	query := s.db.DB.Rebind(`
		UPDATE accounts
		SET plan = ?, max_forms = ?, max_leads = ?, max_storage_bytes = ?, daily_test_limit = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`)
	_, err := s.db.DB.ExecContext(ctx, query,
		plan, limits.MaxForms, limits.MaxLeads, limits.MaxStorageBytes, limits.DailyTestLimit, accountID)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

// SetStripeCustomerID stores the Stripe customer reference
func (s *AccountStore) SetStripeCustomerID(ctx context.Context, accountID int64, customerID string) error {
	query := s.db.DB.Rebind(`UPDATE accounts SET stripe_customer_id = ? WHERE id = ?`)
	if _, err := s.db.DB.ExecContext(ctx, query, customerID, accountID); err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}
	return nil
}

// Deactivate marks an account inactive. Accounts are never deleted.
func (s *AccountStore) Deactivate(ctx context.Context, accountID int64) error {
	query := s.db.DB.Rebind(`UPDATE accounts SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	if _, err := s.db.DB.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	return nil
}
