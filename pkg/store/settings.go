package store

import (
	"context"
	"fmt"

	"github.com/formlift/formlift/pkg/database"
)

// SettingsStore persists process-wide key/value settings (the two
// model-selection keys live here)
type SettingsStore struct {
	db *database.Client
}

// NewSettingsStore creates a new settings store
func NewSettingsStore(db *database.Client) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns a setting value and whether the key exists
func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := s.db.DB.Rebind(`SELECT value FROM settings WHERE key = ?`)
	err := s.db.DB.GetContext(ctx, &value, query, key)
	if IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a setting value
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	query := s.db.DB.Rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := s.db.DB.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
