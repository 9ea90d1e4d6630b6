// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Classification Tests
// ==========================

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{
			name:      "collaborator unavailable",
			err:       NewCollaboratorUnavailableError(ErrCodeValidatorUnavailable, "validator", assert.AnError),
			retryable: true,
		},
		{
			name:      "validator timeout",
			err:       NewValidatorTimeoutError("deadline exceeded"),
			retryable: true,
		},
		{
			name:      "query execution failed",
			err:       NewQueryExecutionFailedError("upsert", assert.AnError),
			retryable: true,
		},
		{
			name:      "validation rejected is data",
			err:       NewValidationRejectedError("incomplete"),
			retryable: false,
		},
		{
			name:      "malformed event",
			err:       NewMalformedEventError("no sender"),
			retryable: false,
		},
		{
			name:      "state conflict",
			err:       NewStateConflictError("APP_2025_abc"),
			retryable: false,
		},
		{
			name:      "record not found",
			err:       NewRecordNotFoundError("APP_2025_abc"),
			retryable: false,
		},
		{
			name:      "unclassified error",
			err:       assert.AnError,
			retryable: false,
		},
		{
			name:      "nil",
			err:       nil,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestCodeOf_SurvivesWrapping(t *testing.T) {
	inner := NewCollaboratorUnavailableError(ErrCodeObjectStoreUnavailable, "object-store", assert.AnError)
	wrapped := fmt.Errorf("upload transcript.pdf: %w", fmt.Errorf("attempt 3: %w", inner))

	assert.Equal(t, ErrCodeObjectStoreUnavailable, CodeOf(wrapped))
	assert.True(t, IsRetryable(wrapped))

	std, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, "object-store", std.Metadata["collaborator"])
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(assert.AnError))
}

// ==========================
// Retry Budget Tests
// ==========================

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		count int
	}{
		{ErrCodePollerUnavailable, 3},
		{ErrCodeObjectStoreUnavailable, 3},
		{ErrCodeRecordsUnavailable, 3},
		{ErrCodeValidatorUnavailable, 3},
		{ErrCodeNotifierUnavailable, 3},
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeValidatorTimeout, 2},
		{ErrCodeValidationRejected, 0},
		{ErrCodeMalformedEvent, 0},
		{ErrCodeStateConflict, 0},
		{ErrCodeBatchCanceled, 0},
		{ErrCodeRecordNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.count, GetRetryCount(tt.code))
			assert.Equal(t, tt.count > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

// ==========================
// Category Tests
// ==========================

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryExecutionFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidatorTimeout))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotifierUnavailable))
	assert.Equal(t, "COLLABORATOR", GetErrorCategory(ErrCodePollerUnavailable))
	assert.Equal(t, "INPUT", GetErrorCategory(ErrCodeMalformedEvent))
	assert.Equal(t, "CONCURRENCY", GetErrorCategory(ErrCodeStateConflict))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeRecordNotFound))
}
