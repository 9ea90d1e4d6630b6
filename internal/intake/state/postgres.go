// internal/intake/state/postgres.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"
	"application-intake/internal/models"

	"github.com/lib/pq"
)

// PostgresStore persists workflow records in the workflow_records table.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "state-store"}),
	}
}

const selectColumns = `application_id, student_id, student_email, stage, last_outcome,
	errors, validation_verdict, validation_feedback,
	attachments_total, attachments_stored, stored_objects, failed_objects,
	content_hash, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, applicationID string) (*models.WorkflowRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM workflow_records WHERE application_id = $1`

	var rec models.WorkflowRecord
	err := s.db.QueryRowContext(ctx, query, applicationID).Scan(
		&rec.ApplicationID, &rec.StudentID, &rec.StudentEmail, &rec.Stage, &rec.LastOutcome,
		pq.Array(&rec.Errors), &rec.ValidationVerdict, &rec.ValidationFeedback,
		&rec.AttachmentsTotal, &rec.AttachmentsStored, pq.Array(&rec.StoredObjects), pq.Array(&rec.FailedObjects),
		&rec.ContentHash, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewRecordNotFoundError(applicationID)
		}
		return nil, fmt.Errorf("get workflow record: %w", stderrors.NewQueryExecutionFailedError("get", err))
	}

	return &rec, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec *models.WorkflowRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO workflow_records (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (application_id) DO UPDATE SET
			student_id = EXCLUDED.student_id,
			student_email = EXCLUDED.student_email,
			stage = EXCLUDED.stage,
			last_outcome = EXCLUDED.last_outcome,
			errors = EXCLUDED.errors,
			validation_verdict = EXCLUDED.validation_verdict,
			validation_feedback = EXCLUDED.validation_feedback,
			attachments_total = EXCLUDED.attachments_total,
			attachments_stored = EXCLUDED.attachments_stored,
			stored_objects = EXCLUDED.stored_objects,
			failed_objects = EXCLUDED.failed_objects,
			content_hash = EXCLUDED.content_hash,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.ApplicationID, rec.StudentID, rec.StudentEmail, rec.Stage, rec.LastOutcome,
		pq.Array(rec.Errors), rec.ValidationVerdict, rec.ValidationFeedback,
		rec.AttachmentsTotal, rec.AttachmentsStored, pq.Array(rec.StoredObjects), pq.Array(rec.FailedObjects),
		rec.ContentHash, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert workflow record: %w", stderrors.NewQueryExecutionFailedError("upsert", err))
	}

	return nil
}

func (s *PostgresStore) ListByStage(ctx context.Context, stage models.Stage) ([]models.WorkflowRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM workflow_records WHERE stage = $1 ORDER BY updated_at`

	rows, err := s.db.QueryContext(ctx, query, stage)
	if err != nil {
		return nil, fmt.Errorf("list workflow records: %w", stderrors.NewQueryExecutionFailedError("list_by_stage", err))
	}
	defer rows.Close()

	var records []models.WorkflowRecord
	for rows.Next() {
		var rec models.WorkflowRecord
		if err := rows.Scan(
			&rec.ApplicationID, &rec.StudentID, &rec.StudentEmail, &rec.Stage, &rec.LastOutcome,
			pq.Array(&rec.Errors), &rec.ValidationVerdict, &rec.ValidationFeedback,
			&rec.AttachmentsTotal, &rec.AttachmentsStored, pq.Array(&rec.StoredObjects), pq.Array(&rec.FailedObjects),
			&rec.ContentHash, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workflow record: %w", stderrors.NewQueryExecutionFailedError("list_by_stage", err))
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow records: %w", stderrors.NewQueryExecutionFailedError("list_by_stage", err))
	}

	return records, nil
}
