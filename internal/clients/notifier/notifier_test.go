// internal/clients/notifier/notifier_test.go
package notifier

import (
	"context"
	"encoding/json"
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
// HTTPNotifier Tests
// ==========================

func TestHTTPNotifier_SendTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email/template/application_received", r.URL.Path)

		var body struct {
			Recipient string            `json:"recipient"`
			Fields    map[string]string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jane.doe@example.com", body.Recipient)
		assert.Equal(t, "APP_2025_abc123def456", body.Fields["applicationId"])

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, 5*time.Second, logger.NewTestLogger(t))

	err := n.SendTemplate(context.Background(), TemplateApplicationReceived, "jane.doe@example.com",
		map[string]string{"applicationId": "APP_2025_abc123def456"})
	assert.NoError(t, err)
}

func TestHTTPNotifier_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, 5*time.Second, logger.NewTestLogger(t))

	err := n.SendTemplate(context.Background(), TemplateApplicationValidated, "jane.doe@example.com", nil)
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeNotifierUnavailable, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsRetryable(err))
}

func TestHTTPNotifier_BadRequestNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, 5*time.Second, logger.NewTestLogger(t))

	err := n.SendTemplate(context.Background(), TemplateValidationFailed, "jane.doe@example.com", nil)
	require.Error(t, err)
	assert.False(t, stderrors.IsRetryable(err))
}

// ==========================
// Template Rendering Tests
// ==========================

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fields   map[string]string
		expected string
	}{
		{
			name:     "single placeholder",
			text:     "Application {applicationId} received",
			fields:   map[string]string{"applicationId": "APP_2025_abc123def456"},
			expected: "Application APP_2025_abc123def456 received",
		},
		{
			name:     "multiple placeholders",
			text:     "{applicationId}: {feedback}",
			fields:   map[string]string{"applicationId": "APP_2025_abc", "feedback": "illegible"},
			expected: "APP_2025_abc: illegible",
		},
		{
			name:     "unmatched placeholder untouched",
			text:     "Download: {downloadUrl}",
			fields:   map[string]string{"applicationId": "APP_2025_abc"},
			expected: "Download: {downloadUrl}",
		},
		{
			name:     "no fields",
			text:     "plain text",
			fields:   nil,
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderTemplate(tt.text, tt.fields))
		})
	}
}
