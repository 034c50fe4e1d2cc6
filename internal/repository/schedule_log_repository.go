package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edt-planner/edt-api/internal/models"
)

// ScheduleLogRepository manages generation log entries.
type ScheduleLogRepository struct {
	db *sqlx.DB
}

// NewScheduleLogRepository constructs a ScheduleLogRepository.
func NewScheduleLogRepository(db *sqlx.DB) *ScheduleLogRepository {
	return &ScheduleLogRepository{db: db}
}

// CreateWithTx appends log entries using an existing transaction.
func (r *ScheduleLogRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, logs []models.ScheduleLog) error {
	if len(logs) == 0 {
		return nil
	}
	const query = `INSERT INTO schedule_logs (id, course_id, status, summary, messages, window_start, window_end, created_at)
        VALUES (:id, :course_id, :status, :summary, :messages, :window_start, :window_end, :created_at)`
	now := time.Now().UTC()
	for i := range logs {
		entry := &logs[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return fmt.Errorf("insert schedule log: %w", err)
		}
	}
	return nil
}

// ListByCourse returns log entries for a course, newest first.
func (r *ScheduleLogRepository) ListByCourse(ctx context.Context, courseID string, limit int) ([]models.ScheduleLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, course_id, status, summary, messages, window_start, window_end, created_at
        FROM schedule_logs WHERE course_id = $1 ORDER BY created_at DESC LIMIT $2`
	var logs []models.ScheduleLog
	if err := r.db.SelectContext(ctx, &logs, query, courseID, limit); err != nil {
		return nil, fmt.Errorf("list schedule logs: %w", err)
	}
	return logs, nil
}
