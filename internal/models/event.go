// internal/models/event.go
package models

import "time"

// Attachment describes one document attached to an application email. The
// bytes live in the polling service; ContentRef points at them.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	ContentRef  string `json:"contentRef"`
}

// ApplicationEvent is the raw "application detected" input. Immutable once
// received.
type ApplicationEvent struct {
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
	ReceivedAt  time.Time    `json:"receivedAt"`
	ContentHash string       `json:"contentHash,omitempty"`
}

// Identity is the deterministic (application_id, student_id) pair derived
// from an event.
type Identity struct {
	ApplicationID string `json:"applicationId"`
	StudentID     string `json:"studentId"`
	Fallback      bool   `json:"fallback,omitempty"` // sender was malformed, hashed raw content instead
}
