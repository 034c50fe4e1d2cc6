package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edt-planner/edt-api/internal/models"
)

func strPtr(s string) *string { return &s }

func morningAndAfternoon(teacherID string, weekdays ...int) []models.TeacherAvailability {
	var avail []models.TeacherAvailability
	for _, weekday := range weekdays {
		avail = append(avail,
			models.TeacherAvailability{TeacherID: teacherID, Weekday: weekday, StartMin: 480, EndMin: 735},
			models.TeacherAvailability{TeacherID: teacherID, Weekday: weekday, StartMin: 810, EndMin: 1065},
		)
	}
	return avail
}

func testIndex() *Index {
	return NewIndex(IndexInput{
		Teachers: []models.Teacher{
			{ID: "t1", MaxWeeklyHours: 4},
			{ID: "t2"},
		},
		TeacherAvailabilities: append(
			morningAndAfternoon("t1", 1, 2, 3, 4),
			morningAndAfternoon("t2", 1, 2)...),
		TeacherUnavailabilities: []models.TeacherUnavailability{
			{TeacherID: "t1", StartDate: date(2025, time.October, 20), EndDate: date(2025, time.October, 21)},
		},
		ClassUnavailabilities: []models.ClassGroupUnavailability{
			{ClassGroupID: "a2", StartDate: date(2025, time.November, 3), EndDate: date(2025, time.November, 7)},
		},
	})
}

func placedAt(id string, day time.Time, startMin, hours int) *PlacedSession {
	return &PlacedSession{
		ID:           id,
		CourseID:     "c1",
		CourseType:   models.CourseTypeTD,
		ClassGroupID: "a2",
		TeacherID:    "t1",
		RoomID:       "r15",
		Start:        At(day, startMin),
		End:          At(day, startMin+hours*60),
	}
}

func TestTeacherAvailableWeeklyWindows(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)

	assert.True(t, idx.TeacherAvailable("t1", At(monday, 480), At(monday, 600)))
	// Friday has no declared window.
	friday := date(2025, time.October, 17)
	assert.False(t, idx.TeacherAvailable("t1", At(friday, 480), At(friday, 600)))
	// Interval crossing the lunch gap is not covered by a single window.
	assert.False(t, idx.TeacherAvailable("t1", At(monday, 675), At(monday, 870)))
}

func TestTeacherAvailableDateUnavailability(t *testing.T) {
	idx := testIndex()

	blocked := date(2025, time.October, 20)
	assert.False(t, idx.TeacherAvailable("t1", At(blocked, 480), At(blocked, 600)))
	clear := date(2025, time.October, 22)
	assert.True(t, idx.TeacherAvailable("t1", At(clear, 480), At(clear, 600)))
}

func TestTeacherClearAndExclude(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	idx.Place(placedAt("s1", monday, 480, 2))

	assert.False(t, idx.TeacherClear("t1", At(monday, 540), At(monday, 600)))
	assert.True(t, idx.TeacherClear("t1", At(monday, 540), At(monday, 600), "s1"))
	assert.True(t, idx.TeacherClear("t1", At(monday, 615), At(monday, 735)))
}

func TestExceedsWeeklyLoad(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	idx.Place(placedAt("s1", monday, 480, 2))
	idx.Place(placedAt("s2", monday.AddDate(0, 0, 1), 480, 2))

	// t1 is capped at 4 hours per week and already carries 4.
	assert.True(t, idx.ExceedsWeeklyLoad("t1", At(monday, 810), At(monday, 930)))
	// Next week the counter resets.
	nextMonday := monday.AddDate(0, 0, 7)
	assert.False(t, idx.ExceedsWeeklyLoad("t1", At(nextMonday, 480), At(nextMonday, 600)))
	// t2 has no ceiling.
	assert.False(t, idx.ExceedsWeeklyLoad("t2", At(monday, 480), At(monday, 600)))
}

func TestClassClearSubgroups(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	session := placedAt("s1", monday, 480, 2)
	session.Subgroup = strPtr("A")
	idx.Place(session)

	// The other subgroup may share the slot; the full class may not.
	assert.True(t, idx.ClassClear("a2", strPtr("B"), At(monday, 480), At(monday, 600)))
	assert.False(t, idx.ClassClear("a2", strPtr("A"), At(monday, 480), At(monday, 600)))
	assert.False(t, idx.ClassClear("a2", nil, At(monday, 480), At(monday, 600)))
}

func TestClassAvailableDateRange(t *testing.T) {
	idx := testIndex()
	assert.False(t, idx.ClassAvailable("a2", date(2025, time.November, 5)))
	assert.True(t, idx.ClassAvailable("a2", date(2025, time.November, 10)))
}

func TestPlaceRemoveRoundTrip(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	session := placedAt("s1", monday, 480, 2)
	idx.Place(session)

	require.False(t, idx.RoomFree("r15", At(monday, 480), At(monday, 600)))

	removed := idx.Remove("s1")
	require.Same(t, session, removed)
	assert.True(t, idx.RoomFree("r15", At(monday, 480), At(monday, 600)))
	assert.True(t, idx.TeacherClear("t1", At(monday, 480), At(monday, 600)))
	assert.True(t, idx.ClassClear("a2", nil, At(monday, 480), At(monday, 600)))
	assert.Nil(t, idx.Remove("s1"))
}

func TestLastTeacherContinuity(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	idx.Place(placedAt("s1", monday, 480, 2))

	assert.Equal(t, "t1", idx.LastTeacher("c1", "a2", nil))
	assert.Equal(t, "", idx.LastTeacher("c1", "a2", strPtr("A")))
	assert.Equal(t, "", idx.LastTeacher("c9", "a2", nil))
}

func TestMovableSessionsFiltersTypeAndPersistence(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)

	td := placedAt("s-td", monday, 480, 2)
	lecture := placedAt("s-cm", monday, 615, 2)
	lecture.CourseType = models.CourseTypeCM
	persisted := placedAt("s-old", monday, 810, 2)
	persisted.Persisted = true
	idx.Place(td)
	idx.Place(lecture)
	idx.Place(persisted)

	movable := idx.MovableSessions("a2", monday)
	require.Len(t, movable, 1)
	assert.Equal(t, "s-td", movable[0].ID)
}

func TestNewSessionsExcludesPersisted(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	persisted := placedAt("s-old", monday, 480, 2)
	persisted.Persisted = true
	idx.Place(persisted)
	idx.Place(placedAt("s-new", monday, 615, 2))

	sessions := idx.NewSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "s-new", sessions[0].ID)
}

func TestPlacedCountCountsPersistedSeries(t *testing.T) {
	idx := testIndex()
	monday := date(2025, time.October, 13)
	for i, startMin := range []int{480, 615} {
		session := placedAt("old-"+string(rune('a'+i)), monday.AddDate(0, 0, i), startMin, 2)
		session.Persisted = true
		idx.Place(session)
	}
	idx.Place(placedAt("fresh", monday.AddDate(0, 0, 2), 480, 2))

	assert.Equal(t, 2, idx.PlacedCount("c1", "a2", nil))
	assert.Equal(t, 0, idx.PlacedCount("c1", "a2", strPtr("A")))
}
