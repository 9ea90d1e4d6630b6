// internal/intake/executor/executor.go
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"application-intake/internal/clients/notifier"
	"application-intake/internal/clients/validator"
	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"
	"application-intake/internal/common/metrics"
	"application-intake/internal/common/retry"
	"application-intake/internal/intake/dedup"
	"application-intake/internal/intake/event"
	"application-intake/internal/intake/identity"
	"application-intake/internal/intake/reviewqueue"
	"application-intake/internal/intake/state"
	"application-intake/internal/models"
)

// Collaborator ports. Implementations live under internal/clients; the
// executor only sees these contracts.
type ObjectStore interface {
	Put(ctx context.Context, studentID, objectName string, data []byte) error
	PresignedURL(ctx context.Context, studentID, objectName string, ttl time.Duration) (string, error)
}

type AttachmentSource interface {
	Fetch(ctx context.Context, contentRef string) ([]byte, error)
}

type DocumentValidator interface {
	Validate(ctx context.Context, docs []validator.Document) (*validator.Result, error)
}

type Notifier interface {
	SendTemplate(ctx context.Context, templateName, recipient string, fields map[string]string) error
}

// RecordMirror keeps the structured store's student/application rows in sync.
// Mirror failures are never fatal: the workflow record store, not the mirror,
// is the source of truth.
type RecordMirror interface {
	EnsureStudent(ctx context.Context, studentID, email string) error
	EnsureApplication(ctx context.Context, applicationID, studentID string) error
	UpdateApplicationStatus(ctx context.Context, applicationID, status string) error
}

// Config holds per-collaborator timeouts and the transient-error retry budget.
type Config struct {
	UploadTimeout   time.Duration
	ValidateTimeout time.Duration
	NotifyTimeout   time.Duration
	RecordsTimeout  time.Duration
	PresignTTL      time.Duration
	Retry           retry.Policy
}

// Options modifies one ProcessOne invocation.
type Options struct {
	// Reprocess restarts the pipeline from RECEIVED even when later progress
	// exists. Stored objects are uploaded again, overwriting in place.
	Reprocess bool
}

// Executor drives one application through the stage machine. All state lives
// in the store; the executor caches nothing across invocations, which is what
// lets distinct identities run concurrently while one identity is serialized
// by the keyed lock.
type Executor struct {
	store     state.Store
	queue     reviewqueue.Queue
	objects   ObjectStore
	source    AttachmentSource
	validator DocumentValidator
	notifier  Notifier
	mirror    RecordMirror
	dedup     dedup.Cache
	config    *Config
	locks     *identityLocks
	logger    logger.Logger
}

func New(
	store state.Store,
	queue reviewqueue.Queue,
	objects ObjectStore,
	source AttachmentSource,
	docValidator DocumentValidator,
	notif Notifier,
	mirror RecordMirror,
	dedupCache dedup.Cache,
	config *Config,
	log logger.Logger,
) *Executor {
	return &Executor{
		store:     store,
		queue:     queue,
		objects:   objects,
		source:    source,
		validator: docValidator,
		notifier:  notif,
		mirror:    mirror,
		dedup:     dedupCache,
		config:    config,
		locks:     newIdentityLocks(),
		logger:    log.WithFields(map[string]interface{}{"component": "executor"}),
	}
}

// ProcessOne runs the stage machine for a single event and always returns a
// structured per-item report; it never panics an item's failure up to the
// batch.
func (e *Executor) ProcessOne(ctx context.Context, ev *models.ApplicationEvent, opts Options) *models.ItemReport {
	start := time.Now()
	id := identity.Derive(ev)

	report := &models.ItemReport{
		ApplicationID: id.ApplicationID,
		StudentID:     id.StudentID,
		ProcessedAt:   start.UTC(),
	}

	log := e.logger.WithFields(map[string]interface{}{
		"applicationId": id.ApplicationID,
		"studentId":     id.StudentID,
	})

	if err := e.locks.acquire(ctx, id.ApplicationID); err != nil {
		e.finishReport(report, models.ItemFailed, err, start)
		log.Warn("identity contention", map[string]interface{}{"error": err.Error()})
		return report
	}
	defer e.locks.release(id.ApplicationID)

	metrics.ItemsInFlight.Inc()
	defer metrics.ItemsInFlight.Dec()

	hash := event.ContentHash(ev)

	// Content-level dedup: the same email delivered twice short-circuits to
	// the stored record. Identity-based resume below handles re-derived
	// duplicates with different content.
	if e.dedup != nil && !opts.Reprocess && e.dedup.Seen(ctx, hash) {
		if rec, err := e.store.Get(ctx, id.ApplicationID); err == nil {
			report.Stage = rec.Stage
			report.Status = models.ItemSkipped
			report.Duration = time.Since(start)
			log.Info("duplicate event skipped", map[string]interface{}{"contentHash": hash})
			return report
		}
	}

	rec, created, err := e.loadOrCreate(ctx, ev, id, hash, opts)
	if err != nil {
		e.finishReport(report, models.ItemFailed, err, start)
		return report
	}

	if verr := event.Validate(ev); verr != nil {
		// Identity is already derived via the fallback hash; park the record
		// immediately, no retry.
		rec.LastOutcome = models.OutcomeFatal
		rec.AddError(verr.Error())
		if uerr := e.store.Upsert(ctx, rec); uerr != nil {
			log.Error("failed to park malformed event", map[string]interface{}{"error": uerr.Error()})
		}
		report.Stage = rec.Stage
		e.finishReport(report, models.ItemFailed, verr, start)
		metrics.StageFailed.WithLabelValues(string(rec.Stage), string(stderrors.ErrCodeMalformedEvent)).Inc()
		return report
	}

	if rec.Stage.IsTerminal() && !opts.Reprocess {
		report.Stage = rec.Stage
		report.Status = statusFromRecord(rec)
		report.Duration = time.Since(start)
		if e.dedup != nil {
			e.dedup.Mark(ctx, hash)
		}
		log.Info("already complete, resume is a no-op", map[string]interface{}{"stage": rec.Stage})
		return report
	}

	if created {
		log.Info("workflow started", map[string]interface{}{"attachments": rec.AttachmentsTotal})
	} else {
		log.Info("workflow resumed", map[string]interface{}{"stage": rec.Stage, "reprocess": opts.Reprocess})
	}

	errsBefore := len(rec.Errors)
	fatalErr := e.advance(ctx, rec, ev, log)

	report.Stage = rec.Stage
	report.Errors = append([]string(nil), rec.Errors[errsBefore:]...)

	switch {
	case fatalErr != nil:
		e.finishReport(report, models.ItemFailed, fatalErr, start)
		metrics.StageFailed.WithLabelValues(string(rec.Stage), string(stderrors.CodeOf(fatalErr))).Inc()
	case len(report.Errors) > 0:
		report.Status = models.ItemPartial
		report.Duration = time.Since(start)
	default:
		report.Status = models.ItemSucceeded
		report.Duration = time.Since(start)
	}

	if fatalErr == nil && e.dedup != nil {
		e.dedup.Mark(ctx, hash)
	}

	metrics.ItemDuration.WithLabelValues(string(report.Status)).Observe(report.Duration.Seconds())
	return report
}

// loadOrCreate fetches the record or creates it at RECEIVED, mirroring
// student/application rows on first sight.
func (e *Executor) loadOrCreate(ctx context.Context, ev *models.ApplicationEvent, id models.Identity, hash string, opts Options) (*models.WorkflowRecord, bool, error) {
	rec, err := e.store.Get(ctx, id.ApplicationID)
	if err == nil {
		if opts.Reprocess {
			rec.Stage = models.StageReceived
			rec.LastOutcome = models.OutcomeSuccess
			rec.Errors = nil
			rec.StoredObjects = nil
			rec.FailedObjects = nil
			rec.AttachmentsStored = 0
			rec.ValidationVerdict = ""
			rec.ValidationFeedback = ""
		}
		// Last-write-wins for follow-up submissions: the latest event's
		// attachment set drives the counters, stored objects carry over.
		rec.AttachmentsTotal = len(ev.Attachments)
		rec.ContentHash = hash
		if err := e.store.Upsert(ctx, rec); err != nil {
			return nil, false, err
		}
		return rec, false, nil
	}
	if stderrors.CodeOf(err) != stderrors.ErrCodeRecordNotFound {
		return nil, false, err
	}

	rec = &models.WorkflowRecord{
		ApplicationID:    id.ApplicationID,
		StudentID:        id.StudentID,
		StudentEmail:     ev.Sender,
		Stage:            models.StageReceived,
		LastOutcome:      models.OutcomeSuccess,
		AttachmentsTotal: len(ev.Attachments),
		ContentHash:      hash,
	}
	if err := e.store.Upsert(ctx, rec); err != nil {
		return nil, false, err
	}

	if e.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, e.config.RecordsTimeout)
		defer cancel()
		if err := retry.Do(mctx, e.config.Retry, e.logger, "mirror student row", func() error {
			return e.mirror.EnsureStudent(mctx, id.StudentID, ev.Sender)
		}); err != nil {
			rec.AddError(fmt.Sprintf("mirror student: %v", err))
		} else if err := retry.Do(mctx, e.config.Retry, e.logger, "mirror application row", func() error {
			return e.mirror.EnsureApplication(mctx, id.ApplicationID, id.StudentID)
		}); err != nil {
			rec.AddError(fmt.Sprintf("mirror application: %v", err))
		}
	}

	return rec, true, nil
}

// advance walks the record to a terminal stage or a fatal halt. Stage order
// within one application is strictly sequential; the record is upserted once
// per transition.
func (e *Executor) advance(ctx context.Context, rec *models.WorkflowRecord, ev *models.ApplicationEvent, log logger.Logger) error {
	for !rec.Stage.IsTerminal() {
		var err error
		switch rec.Stage {
		case models.StageReceived:
			err = e.stageAck(ctx, rec, ev, log)
		case models.StageAckSent:
			err = e.stageStoreDocuments(ctx, rec, ev, log)
		case models.StageDocumentsStored:
			rec.Stage = models.StageValidating
			err = e.store.Upsert(ctx, rec)
		case models.StageValidating:
			err = e.stageValidate(ctx, rec, log)
		case models.StageValidated:
			err = e.stageNotifyVerdict(ctx, rec, log)
		case models.StageNotified:
			err = e.stageFinalize(ctx, rec, log)
		default:
			err = fmt.Errorf("unknown stage %q", rec.Stage)
		}

		if err != nil {
			if errors.Is(err, errAwaitingDocuments) {
				log.Info("parked awaiting documents", map[string]interface{}{"stage": rec.Stage})
				return nil
			}
			rec.LastOutcome = models.OutcomeFatal
			rec.AddError(err.Error())
			if uerr := e.store.Upsert(ctx, rec); uerr != nil {
				log.Error("failed to persist fatal outcome", map[string]interface{}{"error": uerr.Error()})
			}
			log.Error("stage halted", map[string]interface{}{
				"stage": rec.Stage,
				"error": err.Error(),
			})
			return err
		}

		metrics.StageCompleted.WithLabelValues(string(rec.Stage)).Inc()
	}

	return nil
}

// stageAck sends the received acknowledgment. A lost acknowledgment must not
// block document processing, so failures here are recorded and skipped over.
func (e *Executor) stageAck(ctx context.Context, rec *models.WorkflowRecord, ev *models.ApplicationEvent, log logger.Logger) error {
	rec.LastOutcome = models.OutcomeSuccess

	template := notifier.TemplateApplicationReceived
	if len(ev.Attachments) == 0 {
		// No documents yet: ask for them instead of acknowledging blindly
		template = notifier.TemplateInformationRequired
	}

	nctx, cancel := context.WithTimeout(ctx, e.config.NotifyTimeout)
	defer cancel()

	err := retry.Do(nctx, e.config.Retry, log, "acknowledgment send", func() error {
		return e.notifier.SendTemplate(nctx, template, rec.StudentEmail, map[string]string{
			"applicationId": rec.ApplicationID,
			"studentId":     rec.StudentID,
		})
	})
	if err != nil {
		rec.AddError(fmt.Sprintf("acknowledgment: %v", err))
		rec.LastOutcome = models.OutcomePartial
		log.Warn("acknowledgment failed, proceeding", map[string]interface{}{"error": err.Error()})
	}

	rec.Stage = models.StageAckSent
	return e.store.Upsert(ctx, rec)
}

// errAwaitingDocuments halts the walk without a fatal outcome: the record
// stays parked at ACK_SENT until a follow-up event carries documents.
var errAwaitingDocuments = errors.New("awaiting documents")

// stageStoreDocuments uploads each attachment independently; one failure
// never aborts the others. The stage succeeds when at least one attachment
// is stored and records the exact subset that failed. Zero attachments park
// the application awaiting the information-required reply; the follow-up
// event resumes from here with its documents.
func (e *Executor) stageStoreDocuments(ctx context.Context, rec *models.WorkflowRecord, ev *models.ApplicationEvent, log logger.Logger) error {
	if len(ev.Attachments) == 0 {
		rec.LastOutcome = models.OutcomeSkipped
		if err := e.store.Upsert(ctx, rec); err != nil {
			return err
		}
		return errAwaitingDocuments
	}

	rec.FailedObjects = nil
	stored := 0

	for _, att := range ev.Attachments {
		if rec.HasStored(att.Filename) {
			stored++
			continue
		}

		uctx, cancel := context.WithTimeout(ctx, e.config.UploadTimeout)
		err := retry.Do(uctx, e.config.Retry, log, "attachment upload", func() error {
			data, ferr := e.source.Fetch(uctx, att.ContentRef)
			if ferr != nil {
				return ferr
			}
			return e.objects.Put(uctx, rec.StudentID, att.Filename, data)
		})
		cancel()

		if err != nil {
			rec.FailedObjects = append(rec.FailedObjects, att.Filename)
			rec.AddError(fmt.Sprintf("upload %s: %v", att.Filename, err))
			log.Warn("attachment upload failed", map[string]interface{}{
				"filename": att.Filename,
				"error":    err.Error(),
			})
			continue
		}

		rec.StoredObjects = append(rec.StoredObjects, att.Filename)
		stored++
	}

	rec.AttachmentsStored = stored

	if stored == 0 {
		return fmt.Errorf("document store: all %d uploads failed", len(ev.Attachments))
	}

	e.archiveEventBody(ctx, rec, ev, log)

	if len(rec.FailedObjects) > 0 {
		rec.LastOutcome = models.OutcomePartial
	} else {
		rec.LastOutcome = models.OutcomeSuccess
	}
	rec.Stage = models.StageDocumentsStored
	return e.store.Upsert(ctx, rec)
}

// archiveEventBody stores the raw email body next to the documents,
// best-effort.
func (e *Executor) archiveEventBody(ctx context.Context, rec *models.WorkflowRecord, ev *models.ApplicationEvent, log logger.Logger) {
	payload, err := json.Marshal(map[string]string{
		"sender":     ev.Sender,
		"subject":    ev.Subject,
		"body":       ev.Body,
		"receivedAt": ev.ReceivedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	uctx, cancel := context.WithTimeout(ctx, e.config.UploadTimeout)
	defer cancel()

	objectName := "emails/" + rec.ContentHash + ".json"
	if err := e.objects.Put(uctx, rec.StudentID, objectName, payload); err != nil {
		log.Debug("email body archive failed", map[string]interface{}{"error": err.Error()})
	}
}

// stageValidate submits stored documents for validation. Transport failures
// and timeouts burn the retry budget; a fail verdict is a normal outcome and
// advances the stage.
func (e *Executor) stageValidate(ctx context.Context, rec *models.WorkflowRecord, log logger.Logger) error {
	docs := make([]validator.Document, 0, len(rec.StoredObjects))
	for _, name := range rec.StoredObjects {
		docs = append(docs, validator.Document{StudentID: rec.StudentID, ObjectName: name})
	}

	var result *validator.Result
	err := retry.Do(ctx, e.config.Retry, log, "document validation", func() error {
		vctx, cancel := context.WithTimeout(ctx, e.config.ValidateTimeout)
		defer cancel()

		var verr error
		result, verr = e.validator.Validate(vctx, docs)
		return verr
	})
	if err != nil {
		return fmt.Errorf("validation call: %w", err)
	}

	rec.ValidationVerdict = result.Verdict
	rec.ValidationFeedback = result.Feedback
	rec.LastOutcome = models.OutcomeSuccess
	rec.Stage = models.StageValidated

	if err := e.store.Upsert(ctx, rec); err != nil {
		return err
	}

	e.mirrorStatus(ctx, rec, "validated_"+result.Verdict, log)
	return nil
}

// stageNotifyVerdict mails the pass/fail outcome, same non-fatal policy as
// the acknowledgment.
func (e *Executor) stageNotifyVerdict(ctx context.Context, rec *models.WorkflowRecord, log logger.Logger) error {
	rec.LastOutcome = models.OutcomeSuccess

	fields := map[string]string{
		"applicationId": rec.ApplicationID,
		"studentId":     rec.StudentID,
		"feedback":      rec.ValidationFeedback,
	}

	template := notifier.TemplateApplicationValidated
	if rec.ValidationVerdict == models.VerdictFail {
		template = notifier.TemplateValidationFailed
		if url := e.presignFirstStored(ctx, rec, log); url != "" {
			fields["downloadUrl"] = url
		}
	}

	nctx, cancel := context.WithTimeout(ctx, e.config.NotifyTimeout)
	defer cancel()

	err := retry.Do(nctx, e.config.Retry, log, "verdict notification", func() error {
		return e.notifier.SendTemplate(nctx, template, rec.StudentEmail, fields)
	})
	if err != nil {
		rec.AddError(fmt.Sprintf("verdict notification: %v", err))
		rec.LastOutcome = models.OutcomePartial
		log.Warn("verdict notification failed, proceeding", map[string]interface{}{"error": err.Error()})
	}

	rec.Stage = models.StageNotified
	return e.store.Upsert(ctx, rec)
}

// presignFirstStored builds a download link for the rejected document set,
// best-effort.
func (e *Executor) presignFirstStored(ctx context.Context, rec *models.WorkflowRecord, log logger.Logger) string {
	if len(rec.StoredObjects) == 0 {
		return ""
	}

	uctx, cancel := context.WithTimeout(ctx, e.config.UploadTimeout)
	defer cancel()

	url, err := e.objects.PresignedURL(uctx, rec.StudentID, rec.StoredObjects[0], e.config.PresignTTL)
	if err != nil {
		log.Debug("presign failed", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return url
}

// stageFinalize admits passing applications to the review queue and parks
// failing ones at REJECTED. The append is the only stage step that is fatal
// on retry exhaustion here: losing a review entry silently would break the
// queue's completeness.
func (e *Executor) stageFinalize(ctx context.Context, rec *models.WorkflowRecord, log logger.Logger) error {
	if rec.ValidationVerdict == models.VerdictPass {
		entry := models.ReviewEntry{
			ApplicationID:    rec.ApplicationID,
			StudentID:        rec.StudentID,
			StudentEmail:     rec.StudentEmail,
			ValidationStatus: rec.ValidationVerdict,
			Feedback:         rec.ValidationFeedback,
			CreatedAt:        time.Now().UTC(),
		}
		if err := retry.Do(ctx, e.config.Retry, log, "review queue append", func() error {
			return e.queue.Append(ctx, entry)
		}); err != nil {
			return fmt.Errorf("review admission: %w", err)
		}

		rec.Stage = models.StageReviewAdmitted
		rec.LastOutcome = models.OutcomeSuccess
		if err := e.store.Upsert(ctx, rec); err != nil {
			return err
		}
		e.mirrorStatus(ctx, rec, "review_admitted", log)
		return nil
	}

	rec.Stage = models.StageRejected
	rec.LastOutcome = models.OutcomeSuccess
	if err := e.store.Upsert(ctx, rec); err != nil {
		return err
	}
	e.mirrorStatus(ctx, rec, "rejected", log)
	return nil
}

func (e *Executor) mirrorStatus(ctx context.Context, rec *models.WorkflowRecord, status string, log logger.Logger) {
	if e.mirror == nil {
		return
	}

	mctx, cancel := context.WithTimeout(ctx, e.config.RecordsTimeout)
	defer cancel()

	if err := e.mirror.UpdateApplicationStatus(mctx, rec.ApplicationID, status); err != nil {
		log.Debug("status mirror failed", map[string]interface{}{
			"status": status,
			"error":  err.Error(),
		})
	}
}

func (e *Executor) finishReport(report *models.ItemReport, status models.ItemStatus, err error, start time.Time) {
	report.Status = status
	report.Duration = time.Since(start)
	if err != nil {
		report.Error = err.Error()
		report.ErrorCode = string(stderrors.CodeOf(err))
	}
}

func statusFromRecord(rec *models.WorkflowRecord) models.ItemStatus {
	switch {
	case rec.LastOutcome == models.OutcomeFatal:
		return models.ItemFailed
	case len(rec.Errors) > 0:
		return models.ItemPartial
	default:
		return models.ItemSucceeded
	}
}
