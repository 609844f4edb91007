package shopify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"compareat-sync/internal/adapters/shopify/dto"
)

// ConflictError means a bulk operation is already running for the store.
// The caller must await or let the existing job finish instead of
// submitting a duplicate.
type ConflictError struct {
	OperationID string
	Status      string
}

func (e *ConflictError) Error() string {
	if e.OperationID == "" {
		return "shopify bulk operation already in progress"
	}
	return fmt.Sprintf("shopify bulk operation %s already in progress (status %s)", e.OperationID, e.Status)
}

// TimeoutError means a bulk operation did not complete within the allowed
// wait. The run fails; the next scheduled pass retries from scratch.
type TimeoutError struct {
	OperationID string
	Waited      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("shopify bulk operation %s did not complete within %s", e.OperationID, e.Waited)
}

// RemoteJobError means Shopify reported the bulk export itself as failed
// or canceled.
type RemoteJobError struct {
	OperationID string
	Status      string
	Code        string
}

func (e *RemoteJobError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("shopify bulk operation %s finished as %s", e.OperationID, strings.ToLower(e.Status))
	}
	return fmt.Sprintf("shopify bulk operation %s finished as %s: %s", e.OperationID, strings.ToLower(e.Status), e.Code)
}

// DownloadError wraps a transport failure while fetching bulk results.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("shopify bulk download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ValidationError carries the field-level userErrors a mutation was
// rejected with. It concerns the mutated items only, not the transport.
type ValidationError struct {
	Action string
	Errors []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		field := strings.TrimSpace(fieldErr.Field)
		message := strings.TrimSpace(fieldErr.Message)
		if field == "" {
			parts = append(parts, message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, message))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("shopify %s failed with user errors", e.Action)
	}
	return fmt.Sprintf("shopify %s failed: %s", e.Action, strings.Join(parts, "; "))
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var typed *ConflictError
	return errors.As(err, &typed)
}

// IsValidation extracts a ValidationError from err if present.
func IsValidation(err error) (*ValidationError, bool) {
	var typed *ValidationError
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

func userErrorsToError(action string, errs []dto.ShopifyUserError) error {
	if len(errs) == 0 {
		return nil
	}
	details := make([]FieldError, 0, len(errs))
	for _, userErr := range errs {
		message := strings.TrimSpace(userErr.Message)
		if message == "" {
			continue
		}
		field := ""
		if len(userErr.Field) > 0 {
			field = strings.Join(userErr.Field, ".")
		}
		details = append(details, FieldError{Field: field, Message: message})
	}
	if len(details) == 0 {
		details = []FieldError{{Message: "user errors returned"}}
	}
	return &ValidationError{Action: action, Errors: details}
}
