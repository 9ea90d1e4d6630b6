// internal/models/review.go
package models

import "time"

// ReviewEntry is the denormalized snapshot appended to the review queue when
// an application reaches REVIEW_ADMITTED.
type ReviewEntry struct {
	ApplicationID    string    `json:"applicationId"`
	StudentID        string    `json:"studentId"`
	StudentEmail     string    `json:"studentEmail"`
	ValidationStatus string    `json:"validationStatus"`
	Feedback         string    `json:"feedback,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
