package models

import (
	"time"

	"github.com/lib/pq"
)

// ScheduleLogStatus classifies the outcome of a generation run.
type ScheduleLogStatus string

const (
	ScheduleLogStatusSuccess ScheduleLogStatus = "success"
	ScheduleLogStatusPartial ScheduleLogStatus = "partial"
	ScheduleLogStatusError   ScheduleLogStatus = "error"
)

// ScheduleLog is one generation log entry appended per course per run.
type ScheduleLog struct {
	ID          string            `db:"id" json:"id"`
	CourseID    string            `db:"course_id" json:"course_id"`
	Status      ScheduleLogStatus `db:"status" json:"status"`
	Summary     string            `db:"summary" json:"summary"`
	Messages    pq.StringArray    `db:"messages" json:"messages"`
	WindowStart *time.Time        `db:"window_start" json:"window_start,omitempty"`
	WindowEnd   *time.Time        `db:"window_end" json:"window_end,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}
