// internal/intake/state/memory.go
package state

import (
	"context"
	"sync"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/models"
)

// MemoryStore keeps workflow records in process memory. Used when postgres
// is not configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.WorkflowRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.WorkflowRecord)}
}

func (s *MemoryStore) Get(_ context.Context, applicationID string) (*models.WorkflowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[applicationID]
	if !ok {
		return nil, stderrors.NewRecordNotFoundError(applicationID)
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec *models.WorkflowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	s.records[rec.ApplicationID] = cloneRecord(*rec)
	return nil
}

func (s *MemoryStore) ListByStage(_ context.Context, stage models.Stage) ([]models.WorkflowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.WorkflowRecord
	for _, rec := range s.records {
		if rec.Stage == stage {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// cloneRecord copies slices so callers cannot mutate stored state.
func cloneRecord(rec models.WorkflowRecord) models.WorkflowRecord {
	out := rec
	out.Errors = append([]string(nil), rec.Errors...)
	out.StoredObjects = append([]string(nil), rec.StoredObjects...)
	out.FailedObjects = append([]string(nil), rec.FailedObjects...)
	return out
}
