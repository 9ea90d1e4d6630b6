// internal/models/report.go
package models

import "time"

// ItemStatus classifies one application's run for reporting.
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemPartial   ItemStatus = "partial"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped" // duplicate event, short-circuited to the stored record
)

// ItemReport is the per-application result returned by process_one.
type ItemReport struct {
	ApplicationID string        `json:"applicationId"`
	StudentID     string        `json:"studentId"`
	Stage         Stage         `json:"stage"`
	Status        ItemStatus    `json:"status"`
	ErrorCode     string        `json:"errorCode,omitempty"`
	Error         string        `json:"error,omitempty"`
	Errors        []string      `json:"errors,omitempty"` // non-fatal errors accumulated this run
	Duration      time.Duration `json:"duration"`
	ProcessedAt   time.Time     `json:"processedAt"`
}

// BatchReport aggregates per-item outcomes for one process_batch call. A
// single item's failure never aborts the batch, so Items always covers every
// submitted event.
type BatchReport struct {
	BatchID   string        `json:"batchId"`
	Submitted int           `json:"submitted"`
	Succeeded int           `json:"succeeded"`
	Partial   int           `json:"partial"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Items     []ItemReport  `json:"items"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"startedAt"`
}
