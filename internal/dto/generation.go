package dto

import "time"

// GenerateRequest submits a timetable generation job. CourseIDs empty means
// every course in scope; the window defaults to the configured horizon when
// omitted.
type GenerateRequest struct {
	CourseIDs   []string   `json:"courseIds" validate:"omitempty,dive,required"`
	WindowStart *time.Time `json:"windowStart" validate:"omitempty"`
	WindowEnd   *time.Time `json:"windowEnd" validate:"omitempty,gtfield=WindowStart"`
}

// GenerateResponse acknowledges an accepted generation job.
type GenerateResponse struct {
	JobID     string `json:"jobId"`
	Label     string `json:"label"`
	StatusURL string `json:"statusUrl"`
	ResultURL string `json:"resultUrl"`
}

// JobStatusResponse is the live snapshot of a generation job.
type JobStatusResponse struct {
	JobID               string            `json:"jobId"`
	State               string            `json:"state"`
	Percent             float64           `json:"percent"`
	ETASeconds          *float64          `json:"etaSeconds,omitempty"`
	Message             string            `json:"message,omitempty"`
	CurrentWeek         string            `json:"currentWeek,omitempty"`
	CurrentWeekSessions []SessionNoteView `json:"currentWeekSessions,omitempty"`
	Weeks               []WeekSummary     `json:"weeks"`
	Finished            bool              `json:"finished"`
}

// SessionNoteView is one session placed in the week being planned.
type SessionNoteView struct {
	Course     string  `json:"course"`
	CourseType string  `json:"courseType"`
	ClassLabel string  `json:"classLabel"`
	Subgroup   *string `json:"subgroup,omitempty"`
	TeacherID  string  `json:"teacherId"`
	RoomID     string  `json:"roomId"`
	Time       string  `json:"time"`
}

// WeekSummary is one row of the status week table.
type WeekSummary struct {
	Label     string `json:"label"`
	Placed    int    `json:"placed"`
	Failed    int    `json:"failed"`
	Relocated int    `json:"relocated"`
}

// PlacedSessionView renders one generated session in job results.
type PlacedSessionView struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"courseId"`
	CourseName   string    `json:"courseName"`
	CourseType   string    `json:"courseType"`
	ClassGroupID string    `json:"classGroupId"`
	Subgroup     *string   `json:"subgroup,omitempty"`
	TeacherID    string    `json:"teacherId"`
	CoTeacherID  *string   `json:"coTeacherId,omitempty"`
	RoomID       string    `json:"roomId"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
}

// PlacementFailureView names a request the planner could not satisfy.
type PlacementFailureView struct {
	CourseID     string  `json:"courseId"`
	CourseName   string  `json:"courseName"`
	CourseType   string  `json:"courseType"`
	ClassGroupID string  `json:"classGroupId"`
	Subgroup     *string `json:"subgroup,omitempty"`
	Missing      int     `json:"missing"`
	Reason       string  `json:"reason"`
	Detail       string  `json:"detail"`
}

// JobResultResponse is the final outcome of a finished job.
type JobResultResponse struct {
	JobID       string                 `json:"jobId"`
	State       string                 `json:"state"`
	Message     string                 `json:"message,omitempty"`
	Placed      []PlacedSessionView    `json:"placed"`
	Failures    []PlacementFailureView `json:"failures"`
	Relocations int                    `json:"relocations"`
}
