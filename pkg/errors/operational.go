package errors

import (
	"fmt"
	"time"
)

// OperationalError wraps an error with the profile/rule context it occurred
// in, for error tracking around storage and header-rewrite call sites.
type OperationalError struct {
	Operation  string                 // What operation was being performed
	ProfileID  string                 // Which profile (if applicable)
	RuleID     string                 // Which rule (if applicable)
	Timestamp  time.Time              // When the error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error                  // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
func NewOperationalError(operation, profileID, ruleID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation: operation,
		ProfileID: profileID,
		RuleID:    ruleID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewOperationalErrorWithAttrs creates an OperationalError with additional
// attributes.
//
// Returns nil if cause is nil (no error to wrap).
func NewOperationalErrorWithAttrs(operation, profileID, ruleID string, cause error, attrs map[string]interface{}) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation:  operation,
		ProfileID:  profileID,
		RuleID:     ruleID,
		Timestamp:  time.Now(),
		Attributes: attrs,
		Cause:      cause,
	}
}

// Error implements the error interface.
//
// Format: "[timestamp] operation: profile={id} rule={id}: {cause}"
// Empty profile/rule IDs are omitted from the message.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	msg := "[" + e.Timestamp.Format(time.RFC3339) + "] " + e.Operation
	if e.ProfileID != "" {
		msg += " profile=" + e.ProfileID
	}
	if e.RuleID != "" {
		msg += " rule=" + e.RuleID
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
