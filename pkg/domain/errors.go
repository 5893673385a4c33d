package domain

import (
	"errors"
	"fmt"
)

// Error represents a domain-specific error with a code and message
type Error struct {
	Code    string
	Message string
	Err     error

	// Quota context, set only for ErrCodeQuotaExceeded
	Resource string
	Current  int64
	Limit    int64
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	ErrCodeBackendCapability   = "BACKEND_CAPABILITY"
	ErrCodeBackendFulfillment  = "BACKEND_FULFILLMENT"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// Error constructors

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewConfigurationError creates a configuration error. Missing or empty
// model settings are fatal and never retried.
func NewConfigurationError(msg string) error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Message: msg,
	}
}

// NewQuotaExceededError creates a quota exceeded error carrying the counter
// state so callers can render "current/limit" to the user.
func NewQuotaExceededError(resource string, current, limit int64) error {
	return &Error{
		Code:     ErrCodeQuotaExceeded,
		Message:  fmt.Sprintf("%s quota exceeded: %d/%d used. Please upgrade your plan.", resource, current, limit),
		Resource: resource,
		Current:  current,
		Limit:    limit,
	}
}

// NewDuplicateSubmissionError creates a duplicate submission error (terminal,
// user-visible, not retried)
func NewDuplicateSubmissionError(email string) error {
	return &Error{
		Code:    ErrCodeDuplicateSubmission,
		Message: fmt.Sprintf("a submission for %s already exists on this form", email),
	}
}

// NewBackendCapabilityError marks the "no endpoint/model route" signal from
// an AI backend. Internal only: it selects the fallback strategy and must
// never cross the fulfillment boundary.
func NewBackendCapabilityError(provider, modelID string, err error) error {
	return &Error{
		Code:    ErrCodeBackendCapability,
		Message: fmt.Sprintf("%s has no route for model %s", provider, modelID),
		Err:     err,
	}
}

// NewBackendFulfillmentError creates a backend fulfillment error with
// provider and model context
func NewBackendFulfillmentError(provider, modelID string, err error) error {
	return &Error{
		Code:    ErrCodeBackendFulfillment,
		Message: fmt.Sprintf("generation failed (provider: %s, model: %s)", provider, modelID),
		Err:     err,
	}
}

// NewPersistenceError creates a persistence error for storage write failures
func NewPersistenceError(err error) error {
	return &Error{
		Code:    ErrCodePersistence,
		Message: "failed to persist data",
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &Error{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &Error{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Helper functions to check error types

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsQuotaExceeded checks if the error is a quota exceeded error
func IsQuotaExceeded(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

// IsDuplicateSubmission checks if the error is a duplicate submission error
func IsDuplicateSubmission(err error) bool {
	return hasCode(err, ErrCodeDuplicateSubmission)
}

// IsBackendCapability checks if the error is the capability-missing signal
func IsBackendCapability(err error) bool {
	return hasCode(err, ErrCodeBackendCapability)
}

// IsBackendFulfillment checks if the error is a backend fulfillment error
func IsBackendFulfillment(err error) bool {
	return hasCode(err, ErrCodeBackendFulfillment)
}

// IsPersistence checks if the error is a persistence error
func IsPersistence(err error) bool {
	return hasCode(err, ErrCodePersistence)
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

func hasCode(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
