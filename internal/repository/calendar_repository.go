package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edt-planner/edt-api/internal/models"
)

// CalendarRepository manages closing periods and allowed-week restrictions.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a CalendarRepository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListClosingPeriods returns every closing period ordered by start date.
func (r *CalendarRepository) ListClosingPeriods(ctx context.Context) ([]models.ClosingPeriod, error) {
	const query = `SELECT id, label, start_date, end_date FROM closing_periods ORDER BY start_date ASC`
	var periods []models.ClosingPeriod
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list closing periods: %w", err)
	}
	return periods, nil
}

// ListAllowedWeeks returns allowed-week rows for the given courses, or all
// rows with no ids.
func (r *CalendarRepository) ListAllowedWeeks(ctx context.Context, courseIDs []string) ([]models.AllowedWeek, error) {
	base := `SELECT id, course_id, week_start, quota FROM allowed_weeks`
	var weeks []models.AllowedWeek
	if len(courseIDs) == 0 {
		if err := r.db.SelectContext(ctx, &weeks, base+" ORDER BY course_id ASC, week_start ASC"); err != nil {
			return nil, fmt.Errorf("list allowed weeks: %w", err)
		}
		return weeks, nil
	}
	query, args, err := sqlx.In(base+" WHERE course_id IN (?) ORDER BY course_id ASC, week_start ASC", courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build allowed week query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &weeks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list allowed weeks: %w", err)
	}
	return weeks, nil
}
