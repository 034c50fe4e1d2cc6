package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edt-planner/edt-api/internal/models"
)

// TeacherRepository manages persistence for teachers and their availability.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListActive returns active teachers ordered by name.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, email, active, max_weekly_hours, day_start_min, day_end_min, created_at, updated_at
        FROM teachers WHERE active = TRUE ORDER BY full_name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// ListAvailabilities returns every weekly availability window.
func (r *TeacherRepository) ListAvailabilities(ctx context.Context) ([]models.TeacherAvailability, error) {
	const query = `SELECT id, teacher_id, weekday, start_min, end_min
        FROM teacher_availabilities ORDER BY teacher_id ASC, weekday ASC, start_min ASC`
	var windows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &windows, query); err != nil {
		return nil, fmt.Errorf("list teacher availabilities: %w", err)
	}
	return windows, nil
}

// ListUnavailabilities returns every date-range unavailability.
func (r *TeacherRepository) ListUnavailabilities(ctx context.Context) ([]models.TeacherUnavailability, error) {
	const query = `SELECT id, teacher_id, start_date, end_date, reason
        FROM teacher_unavailabilities ORDER BY teacher_id ASC, start_date ASC`
	var ranges []models.TeacherUnavailability
	if err := r.db.SelectContext(ctx, &ranges, query); err != nil {
		return nil, fmt.Errorf("list teacher unavailabilities: %w", err)
	}
	return ranges, nil
}
