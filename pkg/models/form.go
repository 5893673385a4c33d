package models

import "time"

// Form belongs to exactly one account. LeadCount is a denormalized display
// counter; quota checks always recount stored leads instead of trusting it.
type Form struct {
	ID        int64     `db:"id" json:"id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	LeadCount int64     `db:"lead_count" json:"lead_count"`
	WantImage bool      `db:"want_image" json:"want_image"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateFormRequest is the payload for creating a form
type CreateFormRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	WantImage bool   `json:"want_image"`
}

// KnowledgeFile is an owner-uploaded reference document attached to a form.
// Its size counts against the account's storage quota.
type KnowledgeFile struct {
	ID         int64     `db:"id" json:"id"`
	AccountID  int64     `db:"account_id" json:"account_id"`
	FormID     int64     `db:"form_id" json:"form_id"`
	Name       string    `db:"name" json:"name"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey string    `db:"storage_key" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
