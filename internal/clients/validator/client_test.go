// internal/clients/validator/client_test.go
package validator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func sampleDocs() []Document {
	return []Document{
		{StudentID: "STU_AB12CD34", ObjectName: "transcript.pdf"},
		{StudentID: "STU_AB12CD34", ObjectName: "essay.pdf"},
	}
}

// ==========================
// Verdict Tests
// ==========================

func TestValidate_PassVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validate", r.URL.Path)

		var body map[string][]Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["documents"], 2)

		w.Write([]byte(`{"verdict": "pass", "feedback": "all documents verified"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger(t))

	result, err := client.Validate(context.Background(), sampleDocs())
	require.NoError(t, err)
	assert.Equal(t, "pass", result.Verdict)
	assert.Equal(t, "all documents verified", result.Feedback)
}

func TestValidate_FailVerdictIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"verdict": "fail", "feedback": "transcript is illegible", "details": {"pages": 2}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger(t))

	result, err := client.Validate(context.Background(), sampleDocs())
	require.NoError(t, err)
	assert.Equal(t, "fail", result.Verdict)
	assert.Equal(t, "transcript is illegible", result.Feedback)
}

func TestValidate_UnknownVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"verdict": "maybe"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger(t))

	_, err := client.Validate(context.Background(), sampleDocs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown verdict")
}

// ==========================
// Transport Failure Tests
// ==========================

func TestValidate_TimeoutIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read notices the
		// client's timeout disconnect and cancels the request context.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Validate(ctx, sampleDocs())
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeValidatorTimeout, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsRetryable(err))
}

func TestValidate_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger(t))

	_, err := client.Validate(context.Background(), sampleDocs())
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeValidatorUnavailable, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsRetryable(err))
}

func TestValidate_ConnectionRefused(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, logger.NewTestLogger(t))

	_, err := client.Validate(context.Background(), sampleDocs())
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeValidatorUnavailable, stderrors.CodeOf(err))
}
