// internal/intake/state/store.go
package state

import (
	"context"

	"application-intake/internal/models"
)

// Store is the durable source of truth for workflow records. Upserts are
// atomic per record; the per-identity mutual exclusion upstream guarantees
// serialized writers for one application_id, so the store only needs to keep
// distinct identities from interleaving. No delete is exposed: terminal
// records are retained for audit and status queries.
type Store interface {
	// Get returns the record or a RECORD_NOT_FOUND StandardError.
	Get(ctx context.Context, applicationID string) (*models.WorkflowRecord, error)
	Upsert(ctx context.Context, rec *models.WorkflowRecord) error
	ListByStage(ctx context.Context, stage models.Stage) ([]models.WorkflowRecord, error)
}
