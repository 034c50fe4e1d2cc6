package models

import "time"

// ClosingPeriod is a global date range forbidden to all placements, bounds
// inclusive.
type ClosingPeriod struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
}

// Contains reports whether the date falls inside the period.
func (p *ClosingPeriod) Contains(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// AllowedWeek restricts a course to listed ISO weeks. Quota is the maximum
// sessions the course may place in that week; nil means the week is allowed
// without a numeric cap.
type AllowedWeek struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	WeekStart time.Time `db:"week_start" json:"week_start"`
	Quota     *int      `db:"quota" json:"quota,omitempty"`
}
