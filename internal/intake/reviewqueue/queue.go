// internal/intake/reviewqueue/queue.go
package reviewqueue

import (
	"context"

	"application-intake/internal/models"
)

// Queue is the append-only log of applications awaiting human review.
// Appends are globally serialized (single-writer discipline) so concurrent
// workflow completions never interleave records; no update or delete exists.
type Queue interface {
	Append(ctx context.Context, entry models.ReviewEntry) error
	ListAll(ctx context.Context) ([]models.ReviewEntry, error)
	// Find returns the newest entry for the student or a RECORD_NOT_FOUND
	// StandardError.
	Find(ctx context.Context, studentID string) (*models.ReviewEntry, error)
}
