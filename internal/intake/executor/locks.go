// internal/intake/executor/locks.go
package executor

import (
	"context"
	"sync"

	stderrors "application-intake/internal/common/errors"
)

// identityLocks enforces at-most-one-in-flight-per-identity. A second caller
// for the same application_id waits on the holder; if its context expires
// while queued it surfaces STATE_CONFLICT instead of deadlocking a batch of
// pathological duplicates.
type identityLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	refs  map[string]int
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{
		slots: make(map[string]chan struct{}),
		refs:  make(map[string]int),
	}
}

func (l *identityLocks) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.refs[key]++
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.decref(key)
		return stderrors.NewStateConflictError(key)
	}
}

func (l *identityLocks) release(key string) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	l.mu.Unlock()
	if !ok {
		return
	}

	<-slot
	l.decref(key)
}

func (l *identityLocks) decref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refs[key]--
	if l.refs[key] <= 0 {
		delete(l.refs, key)
		delete(l.slots, key)
	}
}
