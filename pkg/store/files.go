package store

import (
	"context"
	"fmt"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/models"
)

// FileStore persists knowledge file metadata. The bytes themselves live in
// object storage; this table is what the storage quota counts.
type FileStore struct {
	db *database.Client
}

// NewFileStore creates a new file store
func NewFileStore(db *database.Client) *FileStore {
	return &FileStore{db: db}
}

// Insert records an uploaded file and returns its ID
func (s *FileStore) Insert(ctx context.Context, f *models.KnowledgeFile) (int64, error) {
	query := s.db.DB.Rebind(`
		INSERT INTO knowledge_files (account_id, form_id, name, size_bytes, storage_key)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := s.db.DB.QueryRowxContext(ctx, query,
		f.AccountID, f.FormID, f.Name, f.SizeBytes, f.StorageKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert file record: %w", err)
	}
	f.ID = id
	return id, nil
}

// SumBytesByAccount returns total stored bytes for an account
func (s *FileStore) SumBytesByAccount(ctx context.Context, accountID int64) (int64, error) {
	var total int64
	query := s.db.DB.Rebind(`SELECT COALESCE(SUM(size_bytes), 0) FROM knowledge_files WHERE account_id = ?`)
	if err := s.db.DB.GetContext(ctx, &total, query, accountID); err != nil {
		return 0, fmt.Errorf("failed to sum storage bytes: %w", err)
	}
	return total, nil
}

// ListByForm lists file records attached to a form
func (s *FileStore) ListByForm(ctx context.Context, formID int64) ([]models.KnowledgeFile, error) {
	files := []models.KnowledgeFile{}
	query := s.db.DB.Rebind(`SELECT * FROM knowledge_files WHERE form_id = ? ORDER BY created_at DESC`)
	if err := s.db.DB.SelectContext(ctx, &files, query, formID); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}
