package store

import (
	"context"
	"fmt"
	"time"

	"github.com/formlift/formlift/pkg/database"
)

// UsageStore persists per-account, per-day AI test counters. Rows are
// created on first use; the day key rolling over is the reset.
type UsageStore struct {
	db *database.Client
}

// NewUsageStore creates a new usage store
func NewUsageStore(db *database.Client) *UsageStore {
	return &UsageStore{db: db}
}

// Day formats the UTC day key for a point in time. The counter resets at
// UTC midnight.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GetDailyTestCount returns the test count for an account on a day,
// zero when no row exists yet
func (s *UsageStore) GetDailyTestCount(ctx context.Context, accountID int64, day string) (int64, error) {
	var count int64
	query := s.db.DB.Rebind(`SELECT test_count FROM usage_counters WHERE account_id = ? AND day = ?`)
	err := s.db.DB.GetContext(ctx, &count, query, accountID, day)
	if IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily test count: %w", err)
	}
	return count, nil
}

// IncrementDailyTestCount atomically increments the counter and returns the
// new value. The upsert keeps the increment relative to the stored value,
// never read-modify-write from the application.
func (s *UsageStore) IncrementDailyTestCount(ctx context.Context, accountID int64, day string) (int64, error) {
	query := s.db.DB.Rebind(`
		INSERT INTO usage_counters (account_id, day, test_count)
		VALUES (?, ?, 1)
		ON CONFLICT (account_id, day) DO UPDATE SET test_count = usage_counters.test_count + 1
		RETURNING test_count`)

	var count int64
	if err := s.db.DB.QueryRowxContext(ctx, query, accountID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment daily test count: %w", err)
	}
	return count, nil
}

// PruneBefore deletes counter rows older than the given day key and
// returns how many were removed
func (s *UsageStore) PruneBefore(ctx context.Context, day string) (int64, error) {
	query := s.db.DB.Rebind(`DELETE FROM usage_counters WHERE day < ?`)
	res, err := s.db.DB.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage counters: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
