package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edt-planner/edt-api/internal/models"
)

// SessionRepository manages persisted timetable sessions and their
// attendance links.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListInWindow returns every session overlapping [start, end], ordered by
// start time then id. The generation job seeds its availability index from
// this.
func (r *SessionRepository) ListInWindow(ctx context.Context, start, end time.Time) ([]models.Session, error) {
	const query = `SELECT id, course_id, class_group_id, subgroup, teacher_id, second_teacher_id, room_id,
        start_time, end_time, created_at, updated_at
        FROM sessions WHERE start_time < $2 AND end_time > $1 ORDER BY start_time ASC, id ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, start, end); err != nil {
		return nil, fmt.Errorf("list sessions in window: %w", err)
	}
	return sessions, nil
}

// ListAttendance returns attendance rows for the given sessions.
func (r *SessionRepository) ListAttendance(ctx context.Context, sessionIDs []string) ([]models.SessionAttendance, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, session_id, class_group_id FROM session_attendances
        WHERE session_id IN (?) ORDER BY session_id ASC, class_group_id ASC`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}
	var rows []models.SessionAttendance
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return rows, nil
}

// List returns session views matching the filter plus the total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionView, int, error) {
	base := `FROM sessions s
        JOIN courses co ON co.id = s.course_id
        JOIN class_groups cg ON cg.id = s.class_group_id
        JOIN teachers te ON te.id = s.teacher_id
        JOIN rooms ro ON ro.id = s.room_id`
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ClassGroupID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_group_id = $%d", len(args)+1))
		args = append(args, filter.ClassGroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(s.teacher_id = $%d OR s.second_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("s.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.WeekStart != nil {
		conditions = append(conditions, fmt.Sprintf("s.start_time >= $%d AND s.start_time < $%d", len(args)+1, len(args)+2))
		args = append(args, *filter.WeekStart, filter.WeekStart.AddDate(0, 0, 7))
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, co.name AS course_name, co.course_type, cg.name AS class_name, s.subgroup,
        te.full_name AS teacher_name, ro.name AS room_name, s.start_time, s.end_time
        %s ORDER BY s.start_time ASC, s.id ASC LIMIT %d OFFSET %d`, base, size, offset)

	var views []models.SessionView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return views, total, nil
}

// BulkCreateWithTx inserts sessions using an existing transaction, filling
// ids and timestamps where missing.
func (r *SessionRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	const query = `INSERT INTO sessions (id, course_id, class_group_id, subgroup, teacher_id, second_teacher_id,
        room_id, start_time, end_time, created_at, updated_at)
        VALUES (:id, :course_id, :class_group_id, :subgroup, :teacher_id, :second_teacher_id,
        :room_id, :start_time, :end_time, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range sessions {
		session := &sessions[i]
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		session.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}
	return nil
}

// BulkCreateAttendanceWithTx inserts attendance rows using an existing
// transaction.
func (r *SessionRepository) BulkCreateAttendanceWithTx(ctx context.Context, tx *sqlx.Tx, rows []models.SessionAttendance) error {
	if len(rows) == 0 {
		return nil
	}
	const query = `INSERT INTO session_attendances (id, session_id, class_group_id)
        VALUES (:id, :session_id, :class_group_id)`
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert session attendance: %w", err)
		}
	}
	return nil
}
