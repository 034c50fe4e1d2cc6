package models

import "time"

// Session is a placed occurrence of a course for a class group. Subgroup is
// set when the owning link splits the class (TP groups A/B). SecondTeacherID
// records the co-teacher of SAE sessions.
type Session struct {
	ID              string    `db:"id" json:"id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	ClassGroupID    string    `db:"class_group_id" json:"class_group_id"`
	Subgroup        *string   `db:"subgroup" json:"subgroup,omitempty"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	SecondTeacherID *string   `db:"second_teacher_id" json:"second_teacher_id,omitempty"`
	RoomID          string    `db:"room_id" json:"room_id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SessionAttendance registers an attending class group. CM sessions carry one
// row per attending class beyond the session's own class group.
type SessionAttendance struct {
	ID           string `db:"id" json:"id"`
	SessionID    string `db:"session_id" json:"session_id"`
	ClassGroupID string `db:"class_group_id" json:"class_group_id"`
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	CourseID     string
	ClassGroupID string
	TeacherID    string
	RoomID       string
	WeekStart    *time.Time
	Page         int
	PageSize     int
}

// SessionView joins a session with display names for API and export output.
type SessionView struct {
	ID          string    `db:"id" json:"id"`
	CourseName  string    `db:"course_name" json:"course_name"`
	CourseType  string    `db:"course_type" json:"course_type"`
	ClassName   string    `db:"class_name" json:"class_name"`
	Subgroup    *string   `db:"subgroup" json:"subgroup,omitempty"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
	RoomName    string    `db:"room_name" json:"room_name"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
}
