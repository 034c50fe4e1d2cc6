package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edt-planner/edt-api/internal/models"
)

// CourseRepository manages persistence for courses and their link tables.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course ordered by priority then name.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, course_type, session_hours, sessions_required, window_start, window_end,
        priority, computers, required_equipment, required_software, created_at, updated_at
        FROM courses ORDER BY priority ASC, name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches one course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, course_type, session_hours, sessions_required, window_start, window_end,
        priority, computers, required_equipment, required_software, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ListByIDs fetches the given courses, preserving priority/name ordering.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, course_type, session_hours, sessions_required, window_start, window_end,
        priority, computers, required_equipment, required_software, created_at, updated_at
        FROM courses WHERE id IN (?) ORDER BY priority ASC, name ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build course query: %w", err)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list courses by ids: %w", err)
	}
	return courses, nil
}

// ListClassLinks returns class links for the given courses in declaration
// order. With no ids it returns every link.
func (r *CourseRepository) ListClassLinks(ctx context.Context, courseIDs []string) ([]models.CourseClassLink, error) {
	base := `SELECT id, course_id, class_group_id, group_count, teacher_a_id, teacher_b_id,
        subgroup_a_label, subgroup_b_label, position
        FROM course_class_links`
	var links []models.CourseClassLink
	if len(courseIDs) == 0 {
		if err := r.db.SelectContext(ctx, &links, base+" ORDER BY course_id ASC, position ASC"); err != nil {
			return nil, fmt.Errorf("list class links: %w", err)
		}
		return links, nil
	}
	query, args, err := sqlx.In(base+" WHERE course_id IN (?) ORDER BY course_id ASC, position ASC", courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build class link query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list class links: %w", err)
	}
	return links, nil
}

// ListTeacherLinks returns eligible-teacher links for the given courses in
// declaration order. With no ids it returns every link.
func (r *CourseRepository) ListTeacherLinks(ctx context.Context, courseIDs []string) ([]models.CourseTeacherLink, error) {
	base := `SELECT id, course_id, teacher_id, position FROM course_teacher_links`
	var links []models.CourseTeacherLink
	if len(courseIDs) == 0 {
		if err := r.db.SelectContext(ctx, &links, base+" ORDER BY course_id ASC, position ASC"); err != nil {
			return nil, fmt.Errorf("list teacher links: %w", err)
		}
		return links, nil
	}
	query, args, err := sqlx.In(base+" WHERE course_id IN (?) ORDER BY course_id ASC, position ASC", courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build teacher link query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list teacher links: %w", err)
	}
	return links, nil
}
