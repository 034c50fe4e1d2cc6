package dto

import "time"

// SessionQuery filters the session listing.
type SessionQuery struct {
	CourseID     string `form:"courseId" json:"courseId"`
	ClassGroupID string `form:"classGroupId" json:"classGroupId"`
	TeacherID    string `form:"teacherId" json:"teacherId"`
	RoomID       string `form:"roomId" json:"roomId"`
	WeekStart    string `form:"weekStart" json:"weekStart"`
	Page         int    `form:"page" json:"page"`
	PageSize     int    `form:"pageSize" json:"pageSize"`
}

// SessionExportQuery selects the export rendering.
type SessionExportQuery struct {
	SessionQuery
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// SessionItem renders one timetable session for API consumers.
type SessionItem struct {
	ID         string    `json:"id"`
	CourseName string    `json:"courseName"`
	CourseType string    `json:"courseType"`
	ClassName  string    `json:"className"`
	Subgroup   *string   `json:"subgroup,omitempty"`
	Teacher    string    `json:"teacher"`
	Room       string    `json:"room"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
}
