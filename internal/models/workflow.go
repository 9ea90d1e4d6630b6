// internal/models/workflow.go
package models

import "time"

// Stage is one step of the fixed workflow state machine. The stored value is
// the last stage the application completed.
type Stage string

const (
	StageReceived        Stage = "RECEIVED"
	StageAckSent         Stage = "ACK_SENT"
	StageDocumentsStored Stage = "DOCUMENTS_STORED"
	StageValidating      Stage = "VALIDATING"
	StageValidated       Stage = "VALIDATED"
	StageNotified        Stage = "NOTIFIED"
	StageReviewAdmitted  Stage = "REVIEW_ADMITTED"
	StageRejected        Stage = "REJECTED"
)

// IsTerminal reports whether no further transitions are possible.
func (s Stage) IsTerminal() bool {
	return s == StageReviewAdmitted || s == StageRejected
}

// Outcome classifies the last-run stage execution.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial" // some sub-steps failed, pipeline proceeded
	OutcomeSkipped Outcome = "skipped"
	OutcomeFatal   Outcome = "fatal" // retries exhausted, parked at current stage
)

// Validation verdicts. A verdict is data, not an error.
const (
	VerdictPass = "pass"
	VerdictFail = "fail"
)

// WorkflowRecord is the durable per-application state, one per
// application_id. Created on first sight, mutated once per stage transition,
// never deleted.
type WorkflowRecord struct {
	ApplicationID string  `json:"applicationId"`
	StudentID     string  `json:"studentId"`
	StudentEmail  string  `json:"studentEmail"`
	Stage         Stage   `json:"stage"`
	LastOutcome   Outcome `json:"lastOutcome"`

	// Accumulated non-fatal error messages, oldest first.
	Errors []string `json:"errors,omitempty"`

	ValidationVerdict  string `json:"validationVerdict,omitempty"` // pass|fail, empty until VALIDATED
	ValidationFeedback string `json:"validationFeedback,omitempty"`

	AttachmentsTotal  int      `json:"attachmentsTotal"`
	AttachmentsStored int      `json:"attachmentsStored"`
	StoredObjects     []string `json:"storedObjects,omitempty"`
	FailedObjects     []string `json:"failedObjects,omitempty"`

	ContentHash string    `json:"contentHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AddError appends a non-fatal error message to the record's history.
func (r *WorkflowRecord) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// HasStored reports whether objectName was already uploaded in a prior run.
func (r *WorkflowRecord) HasStored(objectName string) bool {
	for _, name := range r.StoredObjects {
		if name == objectName {
			return true
		}
	}
	return false
}
