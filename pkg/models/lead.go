package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Lead statuses
const (
	LeadStatusPending   = "pending"
	LeadStatusCompleted = "completed"
	LeadStatusFailed    = "failed"
)

// CustomFields is a semi-structured map stored as a JSON column
type CustomFields map[string]string

// Value implements driver.Valuer for JSON column storage
func (f CustomFields) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON column storage
func (f *CustomFields) Scan(src interface{}) error {
	if src == nil {
		*f = CustomFields{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported type for custom fields: %T", src)
	}
}

// Lead is a captured visitor submission. At most one lead exists per
// (form, email) pair, except for the designated test address, where a
// re-submission replaces the previous lead.
type Lead struct {
	ID             int64        `db:"id" json:"id"`
	UUID           string       `db:"uuid" json:"uuid"`
	FormID         int64        `db:"form_id" json:"form_id"`
	Email          string       `db:"email" json:"email"`
	URL            string       `db:"url" json:"url"`
	ResultText     string       `db:"result_text" json:"result_text"`
	ResultImageURL string       `db:"result_image_url" json:"result_image_url"`
	Status         string       `db:"status" json:"status"`
	CustomFields   CustomFields `db:"custom_fields" json:"custom_fields"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// SubmissionRequest is the public form submission payload
type SubmissionRequest struct {
	Email        string            `json:"email" validate:"required,email"`
	URL          string            `json:"url" validate:"required,url"`
	CustomFields map[string]string `json:"custom_fields"`
}

// SubmissionResponse is returned to the visitor after fulfillment
type SubmissionResponse struct {
	LeadID     int64    `json:"lead_id"`
	LeadUUID   string   `json:"lead_uuid"`
	Created    bool     `json:"created"`
	ResultText string   `json:"result_text,omitempty"`
	Images     []string `json:"images,omitempty"`
}

// ErrorResponse is the standard error body for API responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Current *int64 `json:"current,omitempty"`
	Limit   *int64 `json:"limit,omitempty"`
}
