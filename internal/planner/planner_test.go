package planner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edt-planner/edt-api/internal/models"
)

func runEngine(t *testing.T, input Input) *Result {
	t.Helper()
	engine := NewEngine(Config{Input: input, RelocationEnabled: true})
	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	return result
}

// assertNoConflicts checks the pairwise overlap invariants over an output:
// no shared teacher, class (except distinct subgroups) or room in
// overlapping sessions.
func assertNoConflicts(t *testing.T, sessions []*PlacedSession) {
	t.Helper()
	for i, a := range sessions {
		for _, b := range sessions[i+1:] {
			if !a.overlaps(b.Start, b.End) {
				continue
			}
			assert.NotEqual(t, a.TeacherID, b.TeacherID,
				"teacher %s double booked at %s", a.TeacherID, a.Start)
			if a.SecondTeacherID != nil && b.SecondTeacherID != nil {
				assert.NotEqual(t, *a.SecondTeacherID, *b.SecondTeacherID,
					"co-teacher double booked at %s", a.Start)
			}
			assert.NotEqual(t, a.RoomID, b.RoomID,
				"room %s double booked at %s", a.RoomID, a.Start)
			for _, classA := range a.attendingClasses() {
				for _, classB := range b.attendingClasses() {
					if classA != classB {
						continue
					}
					distinctSubgroups := a.Subgroup != nil && b.Subgroup != nil && *a.Subgroup != *b.Subgroup
					assert.True(t, distinctSubgroups,
						"class %s double booked at %s", classA, a.Start)
				}
			}
		}
	}
}

func tutorialFixture() Input {
	windowStart := date(2025, time.October, 13)
	windowEnd := date(2025, time.November, 21)
	return Input{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Courses: []models.Course{{
			ID:               "c1",
			Name:             "Networks",
			Type:             models.CourseTypeTD,
			SessionHours:     2,
			SessionsRequired: 4,
			WindowStart:      &windowStart,
			WindowEnd:        &windowEnd,
		}},
		ClassLinks: []models.CourseClassLink{{
			CourseID: "c1", ClassGroupID: "a2", GroupCount: 1, TeacherAID: strPtr("t1"),
		}},
		TeacherLinks:          []models.CourseTeacherLink{{CourseID: "c1", TeacherID: "t1"}},
		Teachers:              []models.Teacher{{ID: "t1"}},
		TeacherAvailabilities: morningAndAfternoon("t1", 1, 2, 3, 4),
		ClassGroups:           []models.ClassGroup{{ID: "a2", Name: "A2", Size: 20}},
		Rooms:                 []models.Room{{ID: "r15", Name: "R15", Capacity: 20, Computers: 20}},
	}
}

func TestEnginePlacesWeeklyTutorialSeries(t *testing.T) {
	result := runEngine(t, tutorialFixture())

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 4)
	assertNoConflicts(t, result.Placed)

	// One per week, each on the earliest Monday slot, same teacher and room.
	for i, session := range result.Placed {
		expectedDay := date(2025, time.October, 13).AddDate(0, 0, 7*i)
		assert.Equal(t, At(expectedDay, 480), session.Start, "session %d", i)
		assert.Equal(t, At(expectedDay, 600), session.End, "session %d", i)
		assert.Equal(t, "t1", session.TeacherID)
		assert.Equal(t, "r15", session.RoomID)
	}
}

func TestEngineSplitsPracticalIntoSubgroups(t *testing.T) {
	input := tutorialFixture()
	input.Courses[0].Type = models.CourseTypeTP
	input.ClassLinks[0].GroupCount = 2
	input.ClassLinks[0].TeacherBID = strPtr("t2")
	input.TeacherLinks = append(input.TeacherLinks, models.CourseTeacherLink{CourseID: "c1", TeacherID: "t2", Position: 1})
	input.Teachers = append(input.Teachers, models.Teacher{ID: "t2"})
	input.TeacherAvailabilities = append(input.TeacherAvailabilities, morningAndAfternoon("t2", 1, 2, 3, 4)...)
	input.Rooms = append(input.Rooms, models.Room{ID: "r19", Name: "R19", Capacity: 20, Computers: 20})

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 8)
	assertNoConflicts(t, result.Placed)

	byWeek := make(map[time.Time][]*PlacedSession)
	for _, session := range result.Placed {
		byWeek[MondayOf(session.Start)] = append(byWeek[MondayOf(session.Start)], session)
	}
	require.Len(t, byWeek, 4)
	for week, pair := range byWeek {
		require.Len(t, pair, 2, "week %s", week)
		a, b := pair[0], pair[1]
		require.NotNil(t, a.Subgroup)
		require.NotNil(t, b.Subgroup)
		assert.NotEqual(t, *a.Subgroup, *b.Subgroup)
		assert.NotEqual(t, a.TeacherID, b.TeacherID)
		assert.NotEqual(t, a.RoomID, b.RoomID)
		// Parallel subgroups share the same slot.
		assert.Equal(t, a.Start, b.Start)
	}
}

func TestEngineAvoidsTeacherUnavailableDates(t *testing.T) {
	input := tutorialFixture()
	input.WindowStart = date(2025, time.October, 20)
	input.WindowEnd = date(2025, time.October, 24)
	input.Courses[0].SessionsRequired = 1
	input.Courses[0].WindowStart = &input.WindowStart
	input.Courses[0].WindowEnd = &input.WindowEnd
	input.TeacherUnavailabilities = []models.TeacherUnavailability{{
		TeacherID: "t1",
		StartDate: date(2025, time.October, 20),
		EndDate:   date(2025, time.October, 21),
	}}

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 1)
	assert.Equal(t, At(date(2025, time.October, 22), 480), result.Placed[0].Start)
}

// relocationFixture builds a single-week board where three tutorials of one
// class fill the first three slots of the only equipped room, and a
// practical needing that room can only be taught in those occupied slots.
func relocationFixture(tutorTeacher []models.TeacherAvailability) Input {
	windowStart := date(2025, time.October, 13)
	windowEnd := date(2025, time.October, 17)
	courses := []models.Course{
		{ID: "td-a", Name: "Algorithms", Type: models.CourseTypeTD, SessionHours: 2, SessionsRequired: 1},
		{ID: "td-b", Name: "Databases", Type: models.CourseTypeTD, SessionHours: 2, SessionsRequired: 1},
		{ID: "td-c", Name: "Statistics", Type: models.CourseTypeTD, SessionHours: 2, SessionsRequired: 1},
		{ID: "tp-x", Name: "Unix Lab", Type: models.CourseTypeTP, SessionHours: 2, SessionsRequired: 1, Computers: 20},
	}
	var links []models.CourseClassLink
	var teacherLinks []models.CourseTeacherLink
	for _, course := range courses {
		teacherID := "t1"
		if course.Type == models.CourseTypeTP {
			teacherID = "t2"
		}
		links = append(links, models.CourseClassLink{
			CourseID: course.ID, ClassGroupID: "a2", GroupCount: 1, TeacherAID: strPtr(teacherID),
		})
		teacherLinks = append(teacherLinks, models.CourseTeacherLink{CourseID: course.ID, TeacherID: teacherID})
	}
	return Input{
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		Courses:      courses,
		ClassLinks:   links,
		TeacherLinks: teacherLinks,
		Teachers:     []models.Teacher{{ID: "t1"}, {ID: "t2"}},
		TeacherAvailabilities: append(tutorTeacher,
			// The practical's teacher only covers the first three slots.
			models.TeacherAvailability{TeacherID: "t2", Weekday: 1, StartMin: 480, EndMin: 735},
			models.TeacherAvailability{TeacherID: "t2", Weekday: 1, StartMin: 810, EndMin: 930},
		),
		ClassGroups: []models.ClassGroup{{ID: "a2", Name: "A2", Size: 20}},
		Rooms: []models.Room{
			{ID: "r15", Name: "R15", Capacity: 20, Computers: 20},
			{ID: "r10", Name: "R10", Capacity: 30},
		},
	}
}

func TestEngineRelocatesTutorialForBlockedPractical(t *testing.T) {
	result := runEngine(t, relocationFixture(morningAndAfternoon("t1", 1)))

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 4)
	assert.Equal(t, 1, result.Relocations)
	assertNoConflicts(t, result.Placed)

	starts := make(map[string]time.Time)
	for _, session := range result.Placed {
		starts[session.CourseID] = session.Start
	}
	monday := date(2025, time.October, 13)
	// The practical takes the vacated first slot; the moved tutorial lands
	// on the last one.
	assert.Equal(t, At(monday, 480), starts["tp-x"])
	assert.Equal(t, At(monday, 945), starts["td-a"])
}

func TestEngineCarriesOverWhenRelocationImpossible(t *testing.T) {
	// The tutorial teacher cannot teach the last slot either, so no lifted
	// session finds a new home and every swap rolls back.
	input := relocationFixture([]models.TeacherAvailability{
		{TeacherID: "t1", Weekday: 1, StartMin: 480, EndMin: 735},
		{TeacherID: "t1", Weekday: 1, StartMin: 810, EndMin: 930},
	})
	input.WindowEnd = date(2025, time.October, 24)

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 4)
	assert.Equal(t, 0, result.Relocations)
	assertNoConflicts(t, result.Placed)

	week1 := date(2025, time.October, 13)
	for _, session := range result.Placed {
		if session.CourseID == "tp-x" {
			assert.Equal(t, At(date(2025, time.October, 20), 480), session.Start)
			continue
		}
		assert.Equal(t, week1, MondayOf(session.Start), "tutorials stay in the first week")
	}
}

func TestEngineSkipsClosedWeeks(t *testing.T) {
	input := tutorialFixture()
	input.WindowStart = date(2025, time.December, 22)
	input.WindowEnd = date(2026, time.January, 16)
	input.Courses[0].SessionsRequired = 1
	input.Courses[0].WindowStart = &input.WindowStart
	input.Courses[0].WindowEnd = &input.WindowEnd
	input.Closings = []models.ClosingPeriod{{
		Label:     "winter break",
		StartDate: date(2025, time.December, 20),
		EndDate:   date(2026, time.January, 2),
	}}

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 1)
	assert.Equal(t, At(date(2026, time.January, 5), 480), result.Placed[0].Start)
}

func TestEngineJointLectureSharesOneSession(t *testing.T) {
	windowStart := date(2025, time.October, 13)
	windowEnd := date(2025, time.October, 17)
	input := Input{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Courses: []models.Course{{
			ID: "cm1", Name: "Architecture", Type: models.CourseTypeCM,
			SessionHours: 2, SessionsRequired: 1,
		}},
		ClassLinks: []models.CourseClassLink{
			{CourseID: "cm1", ClassGroupID: "a1", GroupCount: 1, TeacherAID: strPtr("t1"), Position: 0},
			{CourseID: "cm1", ClassGroupID: "a2", GroupCount: 1, Position: 1},
		},
		TeacherLinks:          []models.CourseTeacherLink{{CourseID: "cm1", TeacherID: "t1"}},
		Teachers:              []models.Teacher{{ID: "t1"}},
		TeacherAvailabilities: morningAndAfternoon("t1", 1),
		ClassGroups: []models.ClassGroup{
			{ID: "a1", Name: "A1", Size: 15},
			{ID: "a2", Name: "A2", Size: 20},
		},
		Rooms: []models.Room{
			{ID: "amphi", Name: "Amphi A", Capacity: 120},
			{ID: "r15", Name: "R15", Capacity: 20},
		},
	}

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 1)
	session := result.Placed[0]
	assert.Equal(t, []string{"a1", "a2"}, session.Attendees)
	// R15 is tighter but cannot seat both classes.
	assert.Equal(t, "amphi", session.RoomID)
}

func TestEngineProjectSessionsUseTwoTeachers(t *testing.T) {
	input := tutorialFixture()
	input.Courses[0].Type = models.CourseTypeSAE
	input.Courses[0].SessionsRequired = 1
	input.TeacherLinks = append(input.TeacherLinks, models.CourseTeacherLink{CourseID: "c1", TeacherID: "t2", Position: 1})
	input.Teachers = append(input.Teachers, models.Teacher{ID: "t2"})
	input.TeacherAvailabilities = append(input.TeacherAvailabilities, morningAndAfternoon("t2", 1, 2)...)

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 1)
	session := result.Placed[0]
	require.NotNil(t, session.SecondTeacherID)
	assert.Equal(t, "t1", session.TeacherID)
	assert.Equal(t, "t2", *session.SecondTeacherID)
}

func TestEngineKeepsTeacherContinuity(t *testing.T) {
	input := tutorialFixture()
	// Two eligible teachers, no preferred one: the first pick must stick
	// for the whole series.
	input.ClassLinks[0].TeacherAID = nil
	input.TeacherLinks = append(input.TeacherLinks, models.CourseTeacherLink{CourseID: "c1", TeacherID: "t2", Position: 1})
	input.Teachers = append(input.Teachers, models.Teacher{ID: "t2"})
	input.TeacherAvailabilities = append(input.TeacherAvailabilities, morningAndAfternoon("t2", 1, 2, 3, 4)...)

	result := runEngine(t, input)

	require.Len(t, result.Placed, 4)
	for _, session := range result.Placed {
		assert.Equal(t, result.Placed[0].TeacherID, session.TeacherID)
	}
}

func TestEngineHonoursWeekQuotas(t *testing.T) {
	input := tutorialFixture()
	week1 := date(2025, time.October, 13)
	week2 := date(2025, time.October, 20)
	// Only two weeks allowed; the first may hold three sessions.
	input.AllowedWeeks = []models.AllowedWeek{
		{CourseID: "c1", WeekStart: week1, Quota: intPtr(3)},
		{CourseID: "c1", WeekStart: week2, Quota: intPtr(1)},
	}

	result := runEngine(t, input)

	require.Empty(t, result.Failures)
	require.Len(t, result.Placed, 4)
	assertNoConflicts(t, result.Placed)
	perWeek := make(map[time.Time]int)
	for _, session := range result.Placed {
		perWeek[MondayOf(session.Start)]++
	}
	assert.Equal(t, 3, perWeek[week1])
	assert.Equal(t, 1, perWeek[week2])
}

func TestEngineDeterministicOutput(t *testing.T) {
	signature := func(result *Result) []string {
		var keys []string
		for _, session := range result.Placed {
			subgroup := ""
			if session.Subgroup != nil {
				subgroup = *session.Subgroup
			}
			keys = append(keys, fmt.Sprintf("%s/%s/%s/%s/%s/%s",
				session.CourseID, session.ClassGroupID, subgroup,
				session.TeacherID, session.RoomID, session.Start.Format(time.RFC3339)))
		}
		return keys
	}

	first := runEngine(t, relocationFixture(morningAndAfternoon("t1", 1)))
	second := runEngine(t, relocationFixture(morningAndAfternoon("t1", 1)))
	assert.Equal(t, signature(first), signature(second))
}

func TestEngineIdempotentAfterCommit(t *testing.T) {
	first := runEngine(t, tutorialFixture())
	require.Len(t, first.Placed, 4)

	input := tutorialFixture()
	for _, session := range first.Placed {
		persisted := *session
		persisted.Persisted = true
		input.ExistingSessions = append(input.ExistingSessions, &persisted)
	}

	second := runEngine(t, input)
	assert.Empty(t, second.Placed)
	assert.Empty(t, second.Failures)
}

func TestEngineReportsUnplaceableRequests(t *testing.T) {
	input := tutorialFixture()
	// No room is large enough for the class.
	input.Rooms = []models.Room{{ID: "r1", Name: "R1", Capacity: 5}}

	result := runEngine(t, input)

	assert.Empty(t, result.Placed)
	require.Len(t, result.Failures, 1)
	failure := result.Failures[0]
	assert.Equal(t, "c1", failure.CourseID)
	assert.Equal(t, 4, failure.Missing)
	assert.Equal(t, ReasonCapacityInsufficient, failure.Reason)
}

func TestEngineEmptyWindow(t *testing.T) {
	input := tutorialFixture()
	input.Closings = []models.ClosingPeriod{{
		StartDate: date(2025, time.October, 1),
		EndDate:   date(2025, time.December, 31),
	}}

	engine := NewEngine(Config{Input: input})
	result, err := engine.Run(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrWindowEmpty)
}

func TestEngineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(Config{Input: tutorialFixture()})
	result, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Placed)
	require.Len(t, result.Failures, 1)
}
