package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edt-planner/edt-api/internal/models"
)

func intPtr(v int) *int { return &v }

func evaluatorFixture(t *testing.T) (*Evaluator, *Candidate) {
	t.Helper()
	idx := testIndex()
	calendar := NewCalendar(nil)
	quotas := NewQuotaTracker(nil)

	course := &models.Course{
		ID:               "c1",
		Name:             "Networks",
		Type:             models.CourseTypeTD,
		SessionHours:     2,
		SessionsRequired: 4,
	}
	request := &SessionRequest{Course: course, ClassGroupID: "a2", Attendees: []string{"a2"}, RequiredSeats: 20}
	cand := &Candidate{
		Course:           course,
		Request:          request,
		TeacherID:        "t1",
		Room:             &models.Room{ID: "r15", Capacity: 20, Computers: 20},
		Day:              date(2025, time.October, 13),
		StartMin:         480,
		EndMin:           600,
		AttendeeClassIDs: []string{"a2"},
		RequiredSeats:    20,
	}
	return NewEvaluator(calendar, idx, quotas), cand
}

func TestEvaluateAccepts(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	assert.Equal(t, ReasonNone, eval.Evaluate(cand))
}

func TestEvaluateCourseWindow(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	start := date(2025, time.October, 20)
	cand.Course.WindowStart = &start
	assert.Equal(t, ReasonWindowOutOfCoursePeriod, eval.Evaluate(cand))
}

func TestEvaluateWeekend(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	cand.Day = date(2025, time.October, 18) // Saturday
	assert.Equal(t, ReasonDateClosed, eval.Evaluate(cand))
}

func TestEvaluateClosingPeriod(t *testing.T) {
	_, cand := evaluatorFixture(t)
	calendar := NewCalendar([]models.ClosingPeriod{{
		StartDate: date(2025, time.October, 13),
		EndDate:   date(2025, time.October, 17),
	}})
	eval := NewEvaluator(calendar, testIndex(), NewQuotaTracker(nil))
	assert.Equal(t, ReasonDateClosed, eval.Evaluate(cand))
}

func TestEvaluateMisalignedSlot(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	cand.StartMin, cand.EndMin = 510, 630
	assert.Equal(t, ReasonOutsideWorkingWindow, eval.Evaluate(cand))
}

func TestEvaluateTeacherUnavailable(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	cand.Day = date(2025, time.October, 20) // inside t1's blocked range
	assert.Equal(t, ReasonTeacherUnavailable, eval.Evaluate(cand))
}

func TestEvaluateSecondTeacher(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	// t2 only teaches Monday and Tuesday mornings plus afternoons Mon/Tue.
	cand.SecondTeacherID = strPtr("t2")
	assert.Equal(t, ReasonNone, eval.Evaluate(cand))

	cand.Day = date(2025, time.October, 15) // Wednesday: t1 fine, t2 not
	assert.Equal(t, ReasonTeacherUnavailable, eval.Evaluate(cand))
}

func TestEvaluateResourceFit(t *testing.T) {
	eval, cand := evaluatorFixture(t)

	cand.Room = &models.Room{ID: "r1", Capacity: 10, Computers: 20}
	assert.Equal(t, ReasonCapacityInsufficient, eval.Evaluate(cand))

	cand.Room = &models.Room{ID: "r2", Capacity: 20, Computers: 0}
	cand.Course.Computers = 12
	assert.Equal(t, ReasonComputersInsufficient, eval.Evaluate(cand))
	cand.Course.Computers = 0

	cand.Room = &models.Room{ID: "r3", Capacity: 20}
	cand.Course.RequiredEquipment = []string{"projector"}
	assert.Equal(t, ReasonEquipmentMissing, eval.Evaluate(cand))
	cand.Course.RequiredEquipment = nil

	cand.Course.RequiredSoftware = []string{"matlab"}
	assert.Equal(t, ReasonSoftwareMissing, eval.Evaluate(cand))
	cand.Room = &models.Room{ID: "r4", Capacity: 20, Software: []string{"matlab", "octave"}}
	assert.Equal(t, ReasonNone, eval.Evaluate(cand))
}

func TestEvaluateBusyDimensions(t *testing.T) {
	eval, cand := evaluatorFixture(t)
	monday := date(2025, time.October, 13)

	blocker := placedAt("s1", monday, 480, 2)
	blocker.TeacherID = "t2"
	blocker.ClassGroupID = "b1"
	blocker.RoomID = "r99"
	eval.index.Place(blocker)

	// Same slot, shares nothing: fine.
	assert.Equal(t, ReasonNone, eval.Evaluate(cand))

	cand.TeacherID = "t2"
	assert.Equal(t, ReasonTeacherBusy, eval.Evaluate(cand))
	cand.TeacherID = "t1"

	cand.AttendeeClassIDs = []string{"b1"}
	assert.Equal(t, ReasonClassBusy, eval.Evaluate(cand))
	cand.AttendeeClassIDs = []string{"a2"}

	cand.Room = &models.Room{ID: "r99", Capacity: 20, Computers: 20}
	assert.Equal(t, ReasonRoomBusy, eval.Evaluate(cand))
}

func TestMoreSpecificOrdering(t *testing.T) {
	assert.Equal(t, ReasonTeacherBusy, MoreSpecific(ReasonDateClosed, ReasonTeacherBusy))
	assert.Equal(t, ReasonTeacherBusy, MoreSpecific(ReasonTeacherBusy, ReasonDateClosed))
	assert.Equal(t, ReasonSoftwareMissing, MoreSpecific(ReasonRoomBusy, ReasonSoftwareMissing))
	assert.Equal(t, ReasonDateClosed, MoreSpecific(ReasonNone, ReasonDateClosed))
}

func TestQuotaTrackerUnrestrictedCourse(t *testing.T) {
	quotas := NewQuotaTracker(nil)
	week := date(2025, time.October, 13)
	assert.True(t, quotas.WeekAllowed("c1", week))
	assert.True(t, quotas.Allows("c1", week))
	_, explicit := quotas.ExplicitQuota("c1", week)
	assert.False(t, explicit)
}

func TestQuotaTrackerRestrictsWeeks(t *testing.T) {
	week1 := date(2025, time.October, 13)
	week2 := date(2025, time.October, 20)
	quotas := NewQuotaTracker([]models.AllowedWeek{
		{CourseID: "c1", WeekStart: week1, Quota: intPtr(2)},
		{CourseID: "c1", WeekStart: week2}, // allowed, no cap
	})

	assert.True(t, quotas.Allows("c1", week1))
	quotas.NotePlaced("c1", week1)
	quotas.NotePlaced("c1", week1)
	assert.False(t, quotas.Allows("c1", week1))
	assert.Equal(t, 2, quotas.Placed("c1", week1))

	// Releasing one placement reopens the cap.
	quotas.NoteRemoved("c1", week1)
	assert.True(t, quotas.Allows("c1", week1))

	// Null quota means no numeric ceiling.
	for i := 0; i < 10; i++ {
		quotas.NotePlaced("c1", week2)
	}
	assert.True(t, quotas.Allows("c1", week2))

	// Weeks outside the allowed set are rejected outright.
	assert.False(t, quotas.Allows("c1", date(2025, time.October, 27)))

	// Other courses stay unrestricted.
	assert.True(t, quotas.Allows("c2", date(2025, time.October, 27)))
}

func TestQuotaTrackerExplicitQuota(t *testing.T) {
	week := date(2025, time.October, 13)
	quotas := NewQuotaTracker([]models.AllowedWeek{{CourseID: "c1", WeekStart: week, Quota: intPtr(3)}})

	quota, ok := quotas.ExplicitQuota("c1", week)
	require.True(t, ok)
	assert.Equal(t, 3, quota)

	_, ok = quotas.ExplicitQuota("c1", date(2025, time.October, 20))
	assert.False(t, ok)
}
