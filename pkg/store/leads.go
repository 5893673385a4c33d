package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/models"
	"github.com/google/uuid"
)

// LeadStore persists leads
type LeadStore struct {
	db *database.Client
}

// NewLeadStore creates a new lead store
func NewLeadStore(db *database.Client) *LeadStore {
	return &LeadStore{db: db}
}

// FindByFormAndEmail returns the lead for (formID, email), or nil when none
// exists. Matching is case-insensitive, same as the unique index.
func (s *LeadStore) FindByFormAndEmail(ctx context.Context, formID int64, email string) (*models.Lead, error) {
	var l models.Lead
	query := s.db.DB.Rebind(`SELECT * FROM leads WHERE form_id = ? AND lower(email) = lower(?)`)
	err := s.db.DB.GetContext(ctx, &l, query, formID, email)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return &l, nil
}

// Insert stores a lead and returns its ID. A unique-constraint violation
// surfaces unwrapped so callers can classify it with IsUniqueViolation.
func (s *LeadStore) Insert(ctx context.Context, l *models.Lead) (int64, error) {
	if l.UUID == "" {
		l.UUID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusPending
	}
	l.Email = strings.TrimSpace(l.Email)

	query := s.db.DB.Rebind(`
		INSERT INTO leads (uuid, form_id, email, url, result_text, result_image_url, status, custom_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := s.db.DB.QueryRowxContext(ctx, query,
		l.UUID, l.FormID, l.Email, l.URL, l.ResultText, l.ResultImageURL, l.Status, l.CustomFields,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	l.ID = id
	return id, nil
}

// DeleteByFormAndEmail removes any lead for (formID, email)
func (s *LeadStore) DeleteByFormAndEmail(ctx context.Context, formID int64, email string) error {
	query := s.db.DB.Rebind(`DELETE FROM leads WHERE form_id = ? AND lower(email) = lower(?)`)
	if _, err := s.db.DB.ExecContext(ctx, query, formID, email); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

// CountByAccount recounts stored leads across all of the account's forms.
// This is the authoritative number for quota checks; the per-form
// lead_count column is display-only and may drift.
func (s *LeadStore) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	query := s.db.DB.Rebind(`
		SELECT COUNT(*) FROM leads l
		JOIN forms f ON l.form_id = f.id
		WHERE f.account_id = ?`)
	if err := s.db.DB.GetContext(ctx, &count, query, accountID); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

// ListByForm lists leads for a form, newest first
func (s *LeadStore) ListByForm(ctx context.Context, formID int64, limit, offset int) ([]models.Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	leads := []models.Lead{}
	query := s.db.DB.Rebind(`SELECT * FROM leads WHERE form_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	if err := s.db.DB.SelectContext(ctx, &leads, query, formID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}
