package store

import (
	"context"
	"fmt"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/models"
)

// FormStore persists forms
type FormStore struct {
	db *database.Client
}

// NewFormStore creates a new form store
func NewFormStore(db *database.Client) *FormStore {
	return &FormStore{db: db}
}

// Create inserts a new form
func (s *FormStore) Create(ctx context.Context, accountID int64, name, slug string, wantImage bool) (*models.Form, error) {
	query := s.db.DB.Rebind(`
		INSERT INTO forms (account_id, name, slug, want_image)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	var id int64
	if err := s.db.DB.QueryRowxContext(ctx, query, accountID, name, slug, wantImage).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID retrieves a form by ID
func (s *FormStore) GetByID(ctx context.Context, id int64) (*models.Form, error) {
	var f models.Form
	query := s.db.DB.Rebind(`SELECT * FROM forms WHERE id = ?`)
	if err := s.db.DB.GetContext(ctx, &f, query, id); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetBySlug retrieves a form by its public slug
func (s *FormStore) GetBySlug(ctx context.Context, slug string) (*models.Form, error) {
	var f models.Form
	query := s.db.DB.Rebind(`SELECT * FROM forms WHERE slug = ?`)
	if err := s.db.DB.GetContext(ctx, &f, query, slug); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByAccount lists all forms owned by an account
func (s *FormStore) ListByAccount(ctx context.Context, accountID int64) ([]models.Form, error) {
	forms := []models.Form{}
	query := s.db.DB.Rebind(`SELECT * FROM forms WHERE account_id = ? ORDER BY created_at DESC`)
	if err := s.db.DB.SelectContext(ctx, &forms, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return forms, nil
}

// CountByAccount counts forms owned by an account
func (s *FormStore) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	query := s.db.DB.Rebind(`SELECT COUNT(*) FROM forms WHERE account_id = ?`)
	if err := s.db.DB.GetContext(ctx, &count, query, accountID); err != nil {
		return 0, fmt.Errorf("failed to count forms: %w", err)
	}
	return count, nil
}

// IncrementLeadCount adjusts the denormalized display counter atomically,
// relative to the current value. Quota checks never read this column.
func (s *FormStore) IncrementLeadCount(ctx context.Context, formID, delta int64) error {
	query := s.db.DB.Rebind(`UPDATE forms SET lead_count = lead_count + ? WHERE id = ?`)
	if _, err := s.db.DB.ExecContext(ctx, query, delta, formID); err != nil {
		return fmt.Errorf("failed to update lead count: %w", err)
	}
	return nil
}
