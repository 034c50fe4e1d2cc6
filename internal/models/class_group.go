package models

import "time"

// ClassGroup is a cohort of students scheduled as one unit.
type ClassGroup struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Size      int       `db:"size" json:"size"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassGroupUnavailability blocks a class group over a date range, bounds
// inclusive (internships, trips).
type ClassGroupUnavailability struct {
	ID           string    `db:"id" json:"id"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	Reason       *string   `db:"reason" json:"reason,omitempty"`
}

// Pagination describes page metadata returned by list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
