// internal/intake/identity/identity_test.go
package identity

import (
	"strings"
	"testing"
	"time"

	"application-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createEvent(sender string, receivedAt time.Time) *models.ApplicationEvent {
	return &models.ApplicationEvent{
		Sender:     sender,
		Subject:    "Application Documents",
		Body:       "Please find my documents attached.",
		ReceivedAt: receivedAt,
		Attachments: []models.Attachment{
			{Filename: "transcript.pdf", ContentType: "application/pdf", Size: 1024},
		},
	}
}

// ==========================
// Determinism Tests
// ==========================

func TestDerive_Deterministic(t *testing.T) {
	receivedAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	first := Derive(createEvent("jane.doe@example.com", receivedAt))
	second := Derive(createEvent("jane.doe@example.com", receivedAt))

	assert.Equal(t, first.ApplicationID, second.ApplicationID)
	assert.Equal(t, first.StudentID, second.StudentID)
	assert.False(t, first.Fallback)
}

func TestDerive_NormalizesSender(t *testing.T) {
	receivedAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		sender string
	}{
		{name: "uppercase", sender: "JANE.DOE@EXAMPLE.COM"},
		{name: "mixed case", sender: "Jane.Doe@Example.com"},
		{name: "surrounding whitespace", sender: "  jane.doe@example.com  "},
	}

	base := Derive(createEvent("jane.doe@example.com", receivedAt))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := Derive(createEvent(tt.sender, receivedAt))
			assert.Equal(t, base.ApplicationID, id.ApplicationID)
			assert.Equal(t, base.StudentID, id.StudentID)
		})
	}
}

func TestDerive_YearPartitionsIdentity(t *testing.T) {
	in2024 := Derive(createEvent("jane.doe@example.com", time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)))
	in2025 := Derive(createEvent("jane.doe@example.com", time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)))

	assert.NotEqual(t, in2024.ApplicationID, in2025.ApplicationID)
	// Student identity has no year component
	assert.Equal(t, in2024.StudentID, in2025.StudentID)
}

func TestDerive_DistinctSendersDistinctIdentities(t *testing.T) {
	receivedAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	a := Derive(createEvent("jane.doe@example.com", receivedAt))
	b := Derive(createEvent("john.smith@example.com", receivedAt))

	assert.NotEqual(t, a.ApplicationID, b.ApplicationID)
	assert.NotEqual(t, a.StudentID, b.StudentID)
}

// ==========================
// Format Tests
// ==========================

func TestDerive_IdentifierFormat(t *testing.T) {
	id := Derive(createEvent("jane.doe@example.com", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)))

	require.True(t, strings.HasPrefix(id.ApplicationID, "APP_2025_"))
	assert.Len(t, id.ApplicationID, len("APP_2025_")+12)

	require.True(t, strings.HasPrefix(id.StudentID, "STU_"))
	suffix := strings.TrimPrefix(id.StudentID, "STU_")
	assert.Len(t, suffix, 8)
	assert.Equal(t, strings.ToUpper(suffix), suffix)
}

// ==========================
// Fallback Tests
// ==========================

func TestDerive_MalformedSenderFallsBack(t *testing.T) {
	receivedAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	ev := createEvent("not-an-address", receivedAt)
	id := Derive(ev)

	assert.True(t, id.Fallback)
	assert.NotEmpty(t, id.ApplicationID)
	assert.NotEmpty(t, id.StudentID)

	// Still deterministic over the full content
	again := Derive(createEvent("not-an-address", receivedAt))
	assert.Equal(t, id.ApplicationID, again.ApplicationID)
}

func TestDerive_FallbackVariesWithContent(t *testing.T) {
	receivedAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	a := createEvent("not-an-address", receivedAt)
	b := createEvent("not-an-address", receivedAt)
	b.Body = "different body"

	assert.NotEqual(t, Derive(a).ApplicationID, Derive(b).ApplicationID)
}

func TestDerive_EmptySenderFallsBack(t *testing.T) {
	id := Derive(createEvent("", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)))
	assert.True(t, id.Fallback)
	assert.NotEmpty(t, id.ApplicationID)
}
