// internal/intake/batch/coordinator.go
package batch

import (
	"context"
	"sync"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"
	"application-intake/internal/common/metrics"
	"application-intake/internal/intake/executor"
	"application-intake/internal/intake/identity"
	"application-intake/internal/models"

	"github.com/google/uuid"
)

// Coordinator fans a batch of events out to the stage executor under a fixed
// global concurrency ceiling, so collaborators see a bounded number of
// in-flight applications regardless of batch size.
type Coordinator struct {
	exec          *executor.Executor
	maxConcurrent int
	logger        logger.Logger
}

func New(exec *executor.Executor, maxConcurrent int, log logger.Logger) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Coordinator{
		exec:          exec,
		maxConcurrent: maxConcurrent,
		logger:        log.WithFields(map[string]interface{}{"component": "batch"}),
	}
}

// ProcessBatch submits every event and aggregates per-item outcomes. One
// item's fatal failure never aborts the batch. On context cancellation,
// in-flight items finish naturally and unstarted items are reported as
// failed without being submitted.
func (c *Coordinator) ProcessBatch(ctx context.Context, events []models.ApplicationEvent, opts executor.Options) *models.BatchReport {
	start := time.Now()
	report := &models.BatchReport{
		BatchID:   uuid.New().String(),
		Submitted: len(events),
		Items:     make([]models.ItemReport, len(events)),
		StartedAt: start.UTC(),
	}

	log := c.logger.WithFields(map[string]interface{}{"batchId": report.BatchID})
	log.Info("batch started", map[string]interface{}{
		"events":        len(events),
		"maxConcurrent": c.maxConcurrent,
	})

	sem := make(chan struct{}, c.maxConcurrent)
	var wg sync.WaitGroup

	for i := range events {
		if ctx.Err() != nil {
			report.Items[i] = canceledItem(&events[i])
			continue
		}

		select {
		case <-ctx.Done():
			report.Items[i] = canceledItem(&events[i])
			continue
		case sem <- struct{}{}:
			// A cancellation racing the semaphore still wins: an item never
			// starts on a dead context.
			if ctx.Err() != nil {
				<-sem
				report.Items[i] = canceledItem(&events[i])
				continue
			}
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			item := c.exec.ProcessOne(ctx, &events[idx], opts)
			report.Items[idx] = *item
		}(i)
	}

	wg.Wait()

	for _, item := range report.Items {
		switch item.Status {
		case models.ItemSucceeded:
			report.Succeeded++
		case models.ItemPartial:
			report.Partial++
		case models.ItemSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
		if item.Error != "" {
			report.Errors = append(report.Errors, itemError(item))
		}
	}

	report.Duration = time.Since(start)
	metrics.BatchesProcessed.WithLabelValues("batch").Inc()

	log.Info("batch finished", map[string]interface{}{
		"succeeded": report.Succeeded,
		"partial":   report.Partial,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"duration":  report.Duration.String(),
	})
	return report
}

// ProcessOne runs a single event through the executor, outside any batch.
func (c *Coordinator) ProcessOne(ctx context.Context, ev *models.ApplicationEvent, opts executor.Options) *models.ItemReport {
	return c.exec.ProcessOne(ctx, ev, opts)
}

// canceledItem reports an unsubmitted item. Identity derivation is pure, so
// the report still carries the ids the caller would use to resubmit.
func canceledItem(ev *models.ApplicationEvent) models.ItemReport {
	id := identity.Derive(ev)
	return models.ItemReport{
		ApplicationID: id.ApplicationID,
		StudentID:     id.StudentID,
		Status:        models.ItemFailed,
		Error:         "batch canceled before item started",
		ErrorCode:     string(stderrors.ErrCodeBatchCanceled),
		ProcessedAt:   time.Now().UTC(),
	}
}

func itemError(item models.ItemReport) string {
	id := item.ApplicationID
	if id == "" {
		id = "unknown"
	}
	msg := id + ": " + item.Error
	if item.ErrorCode != "" {
		msg = id + ": [" + item.ErrorCode + "] " + item.Error
	}
	return msg
}
