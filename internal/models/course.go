package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseType tags the pedagogical format of a course's sessions.
type CourseType string

const (
	CourseTypeCM   CourseType = "CM"
	CourseTypeSAE  CourseType = "SAE"
	CourseTypeEval CourseType = "Eval"
	CourseTypeTD   CourseType = "TD"
	CourseTypeTP   CourseType = "TP"
)

// TypePriority orders course types for weekly placement: lectures first,
// practicals last. Unknown types sort after every known one.
func (t CourseType) TypePriority() int {
	switch t {
	case CourseTypeCM:
		return 0
	case CourseTypeSAE:
		return 1
	case CourseTypeEval:
		return 2
	case CourseTypeTD:
		return 3
	case CourseTypeTP:
		return 4
	default:
		return 5
	}
}

// Relocatable reports whether already-placed sessions of this type may be
// moved to free a slot. Only TD and TP sessions are ever reshuffled.
func (t CourseType) Relocatable() bool {
	return t == CourseTypeTD || t == CourseTypeTP
}

// Course is a teaching unit requiring a series of placed sessions.
type Course struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Type              CourseType     `db:"course_type" json:"course_type"`
	SessionHours      int            `db:"session_hours" json:"session_hours"`
	SessionsRequired  int            `db:"sessions_required" json:"sessions_required"`
	WindowStart       *time.Time     `db:"window_start" json:"window_start,omitempty"`
	WindowEnd         *time.Time     `db:"window_end" json:"window_end,omitempty"`
	Priority          int            `db:"priority" json:"priority"`
	Computers         int            `db:"computers" json:"computers"`
	RequiredEquipment pq.StringArray `db:"required_equipment" json:"required_equipment"`
	RequiredSoftware  pq.StringArray `db:"required_software" json:"required_software"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseClassLink attaches a class group to a course. GroupCount 2 splits the
// class into subgroups A and B, each with its own preferred teacher and
// session series.
type CourseClassLink struct {
	ID             string  `db:"id" json:"id"`
	CourseID       string  `db:"course_id" json:"course_id"`
	ClassGroupID   string  `db:"class_group_id" json:"class_group_id"`
	GroupCount     int     `db:"group_count" json:"group_count"`
	TeacherAID     *string `db:"teacher_a_id" json:"teacher_a_id,omitempty"`
	TeacherBID     *string `db:"teacher_b_id" json:"teacher_b_id,omitempty"`
	SubgroupALabel *string `db:"subgroup_a_label" json:"subgroup_a_label,omitempty"`
	SubgroupBLabel *string `db:"subgroup_b_label" json:"subgroup_b_label,omitempty"`
	Position       int     `db:"position" json:"position"`
}

// CourseTeacherLink lists teachers eligible for a course, in declaration
// order. The placement engine falls back to this list when neither the
// continuity teacher nor the preferred teacher is free.
type CourseTeacherLink struct {
	ID        string `db:"id" json:"id"`
	CourseID  string `db:"course_id" json:"course_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Position  int    `db:"position" json:"position"`
}
