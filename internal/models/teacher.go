package models

import "time"

// Teacher represents an instructor record.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Active         bool      `db:"active" json:"active"`
	MaxWeeklyHours int       `db:"max_weekly_hours" json:"max_weekly_hours"`
	DayStartMin    int       `db:"day_start_min" json:"day_start_min"`
	DayEndMin      int       `db:"day_end_min" json:"day_end_min"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherAvailability is a recurring weekly teaching window. Weekday follows
// ISO numbering: 1 = Monday .. 5 = Friday. Times are minutes from midnight.
type TeacherAvailability struct {
	ID        string `db:"id" json:"id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Weekday   int    `db:"weekday" json:"weekday"`
	StartMin  int    `db:"start_min" json:"start_min"`
	EndMin    int    `db:"end_min" json:"end_min"`
}

// TeacherUnavailability blocks a teacher over a date range, bounds inclusive.
type TeacherUnavailability struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
}
