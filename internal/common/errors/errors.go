// Package errors provides standardized error handling for the intake pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Transient collaborator errors. Retried with bounded backoff.
	ErrCodePollerUnavailable      ErrorCode = "POLLER_UNAVAILABLE"
	ErrCodeObjectStoreUnavailable ErrorCode = "OBJECT_STORE_UNAVAILABLE"
	ErrCodeRecordsUnavailable     ErrorCode = "RECORDS_UNAVAILABLE"
	ErrCodeValidatorUnavailable   ErrorCode = "VALIDATOR_UNAVAILABLE"
	ErrCodeValidatorTimeout       ErrorCode = "VALIDATOR_TIMEOUT"
	ErrCodeNotifierUnavailable    ErrorCode = "NOTIFIER_UNAVAILABLE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	// Verdict failures. Valid terminal data, never retried.
	ErrCodeValidationRejected ErrorCode = "VALIDATION_REJECTED"

	// Malformed input. Identity is still derived via the fallback hash.
	ErrCodeMalformedEvent ErrorCode = "MALFORMED_EVENT"

	// Concurrent-write contention on one identity.
	ErrCodeStateConflict ErrorCode = "STATE_CONFLICT"

	// Batch canceled before the item was submitted.
	ErrCodeBatchCanceled ErrorCode = "BATCH_CANCELED"

	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewCollaboratorUnavailableError creates a retryable transport-level error
// for the named collaborator.
func NewCollaboratorUnavailableError(code ErrorCode, collaborator string, err error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("Collaborator '%s' unreachable", collaborator),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"collaborator": collaborator},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidatorTimeoutError creates a retryable validator timeout error.
func NewValidatorTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidatorTimeout,
		Message:   "Document validation call timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationRejectedError creates a non-retryable verdict failure. The
// rejection is an expected business outcome, not a transport fault.
func NewValidationRejectedError(feedback string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationRejected,
		Message:   "Documents rejected by validation",
		Details:   feedback,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedEventError creates a non-retryable malformed-input error.
func NewMalformedEventError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedEvent,
		Message:   "Application event failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateConflictError creates a non-retryable same-identity contention error.
func NewStateConflictError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateConflict,
		Message:   "Concurrent run in flight for identity",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordNotFoundError creates a non-retryable lookup miss.
func NewRecordNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordNotFound,
		Message:   "No workflow record for application",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePollerUnavailable,
		ErrCodeObjectStoreUnavailable,
		ErrCodeRecordsUnavailable,
		ErrCodeValidatorUnavailable,
		ErrCodeNotifierUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed:
		return 3 // Retryable technical errors

	case ErrCodeValidatorTimeout:
		return 2 // Timeouts get a shorter budget

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ==========================
// 4. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from an error chain, if present.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryable reports whether the error chain carries a retryable StandardError.
// Unclassified errors are not retried.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf returns the error code carried by the chain, or empty.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ""
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "VALIDATOR") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOTIFIER"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "UNAVAILABLE"):
		return "COLLABORATOR"
	case strings.Contains(codeStr, "MALFORMED"):
		return "INPUT"
	case strings.Contains(codeStr, "CONFLICT"):
		return "CONCURRENCY"
	default:
		return "OTHER"
	}
}
