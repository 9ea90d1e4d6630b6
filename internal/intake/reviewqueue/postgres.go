// internal/intake/reviewqueue/postgres.go
package reviewqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"
	"application-intake/internal/models"
)

// PostgresQueue appends review entries to the review_queue table. A process
// mutex serializes appends on top of the database's own atomicity, keeping
// the single-writer discipline independent of the backing engine.
type PostgresQueue struct {
	db     *sql.DB
	mu     sync.Mutex
	logger logger.Logger
}

func NewPostgresQueue(db *sql.DB, log logger.Logger) *PostgresQueue {
	return &PostgresQueue{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "review-queue"}),
	}
}

func (q *PostgresQueue) Append(ctx context.Context, entry models.ReviewEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO review_queue (application_id, student_id, student_email, validation_status, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := q.db.ExecContext(ctx, query,
		entry.ApplicationID, entry.StudentID, entry.StudentEmail,
		entry.ValidationStatus, entry.Feedback, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append review entry: %w", stderrors.NewQueryExecutionFailedError("append", err))
	}

	q.logger.Info("review entry appended", map[string]interface{}{
		"applicationId": entry.ApplicationID,
		"studentId":     entry.StudentID,
	})
	return nil
}

func (q *PostgresQueue) ListAll(ctx context.Context) ([]models.ReviewEntry, error) {
	query := `
		SELECT application_id, student_id, student_email, validation_status, feedback, created_at
		FROM review_queue ORDER BY created_at`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", stderrors.NewQueryExecutionFailedError("list_all", err))
	}
	defer rows.Close()

	var entries []models.ReviewEntry
	for rows.Next() {
		var e models.ReviewEntry
		if err := rows.Scan(&e.ApplicationID, &e.StudentID, &e.StudentEmail, &e.ValidationStatus, &e.Feedback, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review entry: %w", stderrors.NewQueryExecutionFailedError("list_all", err))
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review queue: %w", stderrors.NewQueryExecutionFailedError("list_all", err))
	}

	return entries, nil
}

func (q *PostgresQueue) Find(ctx context.Context, studentID string) (*models.ReviewEntry, error) {
	query := `
		SELECT application_id, student_id, student_email, validation_status, feedback, created_at
		FROM review_queue WHERE student_id = $1 ORDER BY created_at DESC LIMIT 1`

	var e models.ReviewEntry
	err := q.db.QueryRowContext(ctx, query, studentID).Scan(
		&e.ApplicationID, &e.StudentID, &e.StudentEmail, &e.ValidationStatus, &e.Feedback, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewRecordNotFoundError(studentID)
		}
		return nil, fmt.Errorf("find review entry: %w", stderrors.NewQueryExecutionFailedError("find", err))
	}

	return &e, nil
}
