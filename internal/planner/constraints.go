package planner

import (
	"time"

	"github.com/edt-planner/edt-api/internal/models"
)

// RejectReason explains why a candidate placement was refused.
type RejectReason string

const (
	ReasonNone                    RejectReason = ""
	ReasonWindowOutOfCoursePeriod RejectReason = "WindowOutOfCoursePeriod"
	ReasonDateClosed              RejectReason = "DateClosed"
	ReasonOutsideWorkingWindow    RejectReason = "OutsideWorkingWindow"
	ReasonWeekQuotaReached        RejectReason = "WeekQuotaReached"
	ReasonClassUnavailable        RejectReason = "ClassUnavailable"
	ReasonTeacherUnavailable      RejectReason = "TeacherUnavailable"
	ReasonTeacherBusy             RejectReason = "TeacherBusy"
	ReasonClassBusy               RejectReason = "ClassBusy"
	ReasonRoomBusy                RejectReason = "RoomBusy"
	ReasonCapacityInsufficient    RejectReason = "CapacityInsufficient"
	ReasonComputersInsufficient   RejectReason = "ComputersInsufficient"
	ReasonEquipmentMissing        RejectReason = "EquipmentMissing"
	ReasonSoftwareMissing         RejectReason = "SoftwareMissing"
)

// specificity ranks reasons from trivial calendar mismatches to hard resource
// conflicts. Placement failures report the most specific reason seen.
var specificity = map[RejectReason]int{
	ReasonNone:                    0,
	ReasonWindowOutOfCoursePeriod: 1,
	ReasonDateClosed:              2,
	ReasonOutsideWorkingWindow:    3,
	ReasonWeekQuotaReached:        4,
	ReasonClassUnavailable:        5,
	ReasonTeacherUnavailable:      6,
	ReasonTeacherBusy:             7,
	ReasonClassBusy:               8,
	ReasonRoomBusy:                9,
	ReasonCapacityInsufficient:    10,
	ReasonComputersInsufficient:   11,
	ReasonEquipmentMissing:        12,
	ReasonSoftwareMissing:         13,
}

// MoreSpecific keeps the stronger of two rejection reasons.
func MoreSpecific(current, candidate RejectReason) RejectReason {
	if specificity[candidate] > specificity[current] {
		return candidate
	}
	return current
}

// Message renders a human readable rejection.
func (r RejectReason) Message() string {
	switch r {
	case ReasonWindowOutOfCoursePeriod:
		return "no working day inside the course planning window"
	case ReasonDateClosed:
		return "every candidate date falls on a closing period or weekend"
	case ReasonOutsideWorkingWindow:
		return "no canonical slot fits the session length"
	case ReasonWeekQuotaReached:
		return "weekly quota reached for the course"
	case ReasonClassUnavailable:
		return "class group unavailable on every candidate date"
	case ReasonTeacherUnavailable:
		return "no eligible teacher available"
	case ReasonTeacherBusy:
		return "every eligible teacher already teaches in the candidate slots"
	case ReasonClassBusy:
		return "class group already occupied in the candidate slots"
	case ReasonRoomBusy:
		return "all suitable rooms occupied in the candidate slots"
	case ReasonCapacityInsufficient:
		return "no room offers enough seats"
	case ReasonComputersInsufficient:
		return "no room offers enough computers"
	case ReasonEquipmentMissing:
		return "required equipment missing from every room"
	case ReasonSoftwareMissing:
		return "required software missing from every room"
	default:
		return "no candidate slot found"
	}
}

// Candidate is a fully specified placement proposal handed to the evaluator.
type Candidate struct {
	Course          *models.Course
	Request         *SessionRequest
	TeacherID       string
	SecondTeacherID *string
	Room            *models.Room
	Day             time.Time
	StartMin        int
	EndMin          int
	// Classes attending the session; one entry except for CM.
	AttendeeClassIDs []string
	// RequiredSeats accounts for subgroup halving and CM aggregation.
	RequiredSeats int
}

// Start returns the concrete start timestamp of the candidate.
func (c *Candidate) Start() time.Time { return At(c.Day, c.StartMin) }

// End returns the concrete end timestamp of the candidate.
func (c *Candidate) End() time.Time { return At(c.Day, c.EndMin) }

// Evaluator applies the hard-constraint checks in a fixed, documented order:
// calendar checks first (cheapest), then availability, then resource fit.
// It never mutates state; reasons are values, not control flow.
type Evaluator struct {
	calendar *Calendar
	index    *Index
	quotas   *QuotaTracker
}

// NewEvaluator wires the evaluator over the run's calendar, index and quotas.
func NewEvaluator(calendar *Calendar, index *Index, quotas *QuotaTracker) *Evaluator {
	return &Evaluator{calendar: calendar, index: index, quotas: quotas}
}

// Evaluate validates a candidate. exclude lists session ids to ignore in
// occupancy checks, used by relocation while a session is lifted out.
func (e *Evaluator) Evaluate(cand *Candidate, exclude ...string) RejectReason {
	day := Midnight(cand.Day)
	course := cand.Course

	if course.WindowStart != nil && day.Before(Midnight(*course.WindowStart)) {
		return ReasonWindowOutOfCoursePeriod
	}
	if course.WindowEnd != nil && day.After(Midnight(*course.WindowEnd)) {
		return ReasonWindowOutOfCoursePeriod
	}
	if weekday := day.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
		return ReasonDateClosed
	}
	if e.calendar.IsClosed(day) {
		return ReasonDateClosed
	}
	if !InsideWorkingWindow(cand.StartMin, cand.EndMin) {
		return ReasonOutsideWorkingWindow
	}
	if !e.quotas.Allows(course.ID, MondayOf(day)) {
		return ReasonWeekQuotaReached
	}

	start, end := cand.Start(), cand.End()

	for _, classID := range cand.AttendeeClassIDs {
		if !e.index.ClassAvailable(classID, day) {
			return ReasonClassUnavailable
		}
	}
	if !e.index.TeacherAvailable(cand.TeacherID, start, end) {
		return ReasonTeacherUnavailable
	}
	if cand.SecondTeacherID != nil && !e.index.TeacherAvailable(*cand.SecondTeacherID, start, end) {
		return ReasonTeacherUnavailable
	}
	if !e.index.TeacherClear(cand.TeacherID, start, end, exclude...) {
		return ReasonTeacherBusy
	}
	if cand.SecondTeacherID != nil && !e.index.TeacherClear(*cand.SecondTeacherID, start, end, exclude...) {
		return ReasonTeacherBusy
	}
	if e.index.ExceedsWeeklyLoad(cand.TeacherID, start, end) {
		return ReasonTeacherBusy
	}
	if cand.SecondTeacherID != nil && e.index.ExceedsWeeklyLoad(*cand.SecondTeacherID, start, end) {
		return ReasonTeacherBusy
	}
	for _, classID := range cand.AttendeeClassIDs {
		if !e.index.ClassClear(classID, cand.Request.Subgroup, start, end, exclude...) {
			return ReasonClassBusy
		}
	}
	if !e.index.RoomFree(cand.Room.ID, start, end, exclude...) {
		return ReasonRoomBusy
	}

	if cand.Room.Capacity < cand.RequiredSeats {
		return ReasonCapacityInsufficient
	}
	if cand.Room.Computers < course.Computers {
		return ReasonComputersInsufficient
	}
	if !cand.Room.HasEquipment(course.RequiredEquipment) {
		return ReasonEquipmentMissing
	}
	if !cand.Room.HasSoftware(course.RequiredSoftware) {
		return ReasonSoftwareMissing
	}
	return ReasonNone
}

// QuotaTracker enforces AllowedWeek restrictions: which weeks a course may
// use, an optional numeric cap per week, and the running count of placements.
type QuotaTracker struct {
	// allowed maps course → week start → cap (nil = week allowed, no cap).
	allowed map[string]map[time.Time]*int
	placed  map[string]map[time.Time]int
}

// NewQuotaTracker indexes AllowedWeek rows. Courses without rows may use any
// week of their planning window.
func NewQuotaTracker(weeks []models.AllowedWeek) *QuotaTracker {
	tracker := &QuotaTracker{
		allowed: make(map[string]map[time.Time]*int),
		placed:  make(map[string]map[time.Time]int),
	}
	for _, week := range weeks {
		if tracker.allowed[week.CourseID] == nil {
			tracker.allowed[week.CourseID] = make(map[time.Time]*int)
		}
		tracker.allowed[week.CourseID][MondayOf(week.WeekStart)] = week.Quota
	}
	return tracker
}

// WeekAllowed reports whether the course may place sessions in the week at
// all (ignoring the numeric cap).
func (q *QuotaTracker) WeekAllowed(courseID string, weekStart time.Time) bool {
	restrictions, restricted := q.allowed[courseID]
	if !restricted {
		return true
	}
	_, ok := restrictions[MondayOf(weekStart)]
	return ok
}

// Allows reports whether one more session fits the week's cap.
func (q *QuotaTracker) Allows(courseID string, weekStart time.Time) bool {
	week := MondayOf(weekStart)
	if !q.WeekAllowed(courseID, week) {
		return false
	}
	restrictions := q.allowed[courseID]
	if restrictions == nil {
		return true
	}
	cap := restrictions[week]
	if cap == nil {
		return true
	}
	return q.placed[courseID][week] < *cap
}

// ExplicitQuota returns the numeric cap for the week, if one is set.
func (q *QuotaTracker) ExplicitQuota(courseID string, weekStart time.Time) (int, bool) {
	restrictions := q.allowed[courseID]
	if restrictions == nil {
		return 0, false
	}
	cap, ok := restrictions[MondayOf(weekStart)]
	if !ok || cap == nil {
		return 0, false
	}
	return *cap, true
}

// NotePlaced records a placement against the week's cap.
func (q *QuotaTracker) NotePlaced(courseID string, weekStart time.Time) {
	week := MondayOf(weekStart)
	if q.placed[courseID] == nil {
		q.placed[courseID] = make(map[time.Time]int)
	}
	q.placed[courseID][week]++
}

// NoteRemoved releases a placement, used when relocation lifts a session out.
func (q *QuotaTracker) NoteRemoved(courseID string, weekStart time.Time) {
	week := MondayOf(weekStart)
	if q.placed[courseID] != nil && q.placed[courseID][week] > 0 {
		q.placed[courseID][week]--
	}
}

// Placed reports how many sessions the course placed in the week so far.
func (q *QuotaTracker) Placed(courseID string, weekStart time.Time) int {
	return q.placed[courseID][MondayOf(weekStart)]
}
