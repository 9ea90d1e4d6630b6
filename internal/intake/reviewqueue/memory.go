// internal/intake/reviewqueue/memory.go
package reviewqueue

import (
	"context"
	"sync"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/models"
)

// MemoryQueue is the in-process implementation, used when postgres is not
// configured and in tests. Append order is preserved.
type MemoryQueue struct {
	mu      sync.Mutex
	entries []models.ReviewEntry
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Append(_ context.Context, entry models.ReviewEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	q.entries = append(q.entries, entry)
	return nil
}

func (q *MemoryQueue) ListAll(_ context.Context) ([]models.ReviewEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.ReviewEntry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *MemoryQueue) Find(_ context.Context, studentID string) (*models.ReviewEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := len(q.entries) - 1; i >= 0; i-- {
		if q.entries[i].StudentID == studentID {
			e := q.entries[i]
			return &e, nil
		}
	}
	return nil, stderrors.NewRecordNotFoundError(studentID)
}
