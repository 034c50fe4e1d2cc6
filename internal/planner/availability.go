package planner

import (
	"sort"
	"time"

	"github.com/edt-planner/edt-api/internal/models"
)

// PlacedSession is the in-memory record of one placed (or pre-existing)
// session tracked by the availability index. Persisted sessions loaded at job
// start are never moved; sessions placed during the run stay movable until
// commit.
type PlacedSession struct {
	ID              string
	CourseID        string
	CourseName      string
	CourseType      models.CourseType
	ClassGroupID    string
	Subgroup        *string
	Attendees       []string
	TeacherID       string
	SecondTeacherID *string
	RoomID          string
	Start           time.Time
	End             time.Time
	Persisted       bool
}

// DurationHours is the session length in whole hours.
func (p *PlacedSession) DurationHours() int {
	return int(p.End.Sub(p.Start) / time.Hour)
}

func (p *PlacedSession) overlaps(start, end time.Time) bool {
	return p.Start.Before(end) && start.Before(p.End)
}

// attendingClasses lists every class group occupied by the session.
func (p *PlacedSession) attendingClasses() []string {
	if len(p.Attendees) > 0 {
		return p.Attendees
	}
	return []string{p.ClassGroupID}
}

type dayKey struct {
	id  string
	day time.Time
}

// Index holds the mutable availability state of one generation run: static
// teacher/class availability plus every session occupying teachers, classes
// and rooms. All placements mutate it; relocation removes and restores
// entries transactionally.
type Index struct {
	teacherWeekly map[string]map[int][]Window // teacher → ISO weekday → open intervals
	teacherOff    map[string][]dateRange
	classOff      map[string][]dateRange
	teacherMaxHrs map[string]int

	teacherBusy map[dayKey][]*PlacedSession
	classBusy   map[dayKey][]*PlacedSession
	roomBusy    map[dayKey][]*PlacedSession
	placed      map[string]*PlacedSession

	// lastTeacher keeps teacher continuity per (course, class, subgroup).
	lastTeacher map[string]string
}

type dateRange struct {
	start time.Time
	end   time.Time
}

func (r dateRange) contains(day time.Time) bool {
	return !day.Before(r.start) && !day.After(r.end)
}

// IndexInput bundles the persisted state the index is built from.
type IndexInput struct {
	Teachers                []models.Teacher
	TeacherAvailabilities   []models.TeacherAvailability
	TeacherUnavailabilities []models.TeacherUnavailability
	ClassUnavailabilities   []models.ClassGroupUnavailability
	ExistingSessions        []*PlacedSession
}

// NewIndex precomputes availability lookups from persisted state.
func NewIndex(in IndexInput) *Index {
	idx := &Index{
		teacherWeekly: make(map[string]map[int][]Window),
		teacherOff:    make(map[string][]dateRange),
		classOff:      make(map[string][]dateRange),
		teacherMaxHrs: make(map[string]int),
		teacherBusy:   make(map[dayKey][]*PlacedSession),
		classBusy:     make(map[dayKey][]*PlacedSession),
		roomBusy:      make(map[dayKey][]*PlacedSession),
		placed:        make(map[string]*PlacedSession),
		lastTeacher:   make(map[string]string),
	}

	globalWindow := make(map[string]Window, len(in.Teachers))
	for _, teacher := range in.Teachers {
		idx.teacherMaxHrs[teacher.ID] = teacher.MaxWeeklyHours
		window := Window{StartMin: teacher.DayStartMin, EndMin: teacher.DayEndMin}
		if window.EndMin <= window.StartMin {
			window = Window{StartMin: 0, EndMin: 24 * 60}
		}
		globalWindow[teacher.ID] = window
	}

	for _, avail := range in.TeacherAvailabilities {
		window := Window{StartMin: avail.StartMin, EndMin: avail.EndMin}
		if global, ok := globalWindow[avail.TeacherID]; ok {
			// Weekly windows are clipped by the teacher's global day window.
			if window.StartMin < global.StartMin {
				window.StartMin = global.StartMin
			}
			if window.EndMin > global.EndMin {
				window.EndMin = global.EndMin
			}
		}
		if window.EndMin <= window.StartMin {
			continue
		}
		if idx.teacherWeekly[avail.TeacherID] == nil {
			idx.teacherWeekly[avail.TeacherID] = make(map[int][]Window)
		}
		idx.teacherWeekly[avail.TeacherID][avail.Weekday] = append(
			idx.teacherWeekly[avail.TeacherID][avail.Weekday], window)
	}

	for _, off := range in.TeacherUnavailabilities {
		idx.teacherOff[off.TeacherID] = append(idx.teacherOff[off.TeacherID],
			dateRange{start: Midnight(off.StartDate), end: Midnight(off.EndDate)})
	}
	for _, off := range in.ClassUnavailabilities {
		idx.classOff[off.ClassGroupID] = append(idx.classOff[off.ClassGroupID],
			dateRange{start: Midnight(off.StartDate), end: Midnight(off.EndDate)})
	}

	existing := make([]*PlacedSession, len(in.ExistingSessions))
	copy(existing, in.ExistingSessions)
	sort.Slice(existing, func(i, j int) bool {
		if !existing[i].Start.Equal(existing[j].Start) {
			return existing[i].Start.Before(existing[j].Start)
		}
		return existing[i].ID < existing[j].ID
	})
	for _, session := range existing {
		idx.Place(session)
	}
	return idx
}

// isoWeekday maps Go weekdays onto ISO numbering (Monday = 1).
func isoWeekday(day time.Time) int {
	wd := int(day.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// TeacherAvailable reports whether the teacher's static availability covers
// [start, end]: a weekly window on that weekday contains the interval and no
// date unavailability hits the date.
func (idx *Index) TeacherAvailable(teacherID string, start, end time.Time) bool {
	day := Midnight(start)
	for _, off := range idx.teacherOff[teacherID] {
		if off.contains(day) {
			return false
		}
	}
	windows := idx.teacherWeekly[teacherID][isoWeekday(day)]
	startMin := MinuteOfDay(start)
	endMin := MinuteOfDay(end)
	for _, window := range windows {
		if window.StartMin <= startMin && endMin <= window.EndMin {
			return true
		}
	}
	return false
}

// TeacherClear reports whether no tracked session occupies the teacher over
// [start, end]. Sessions listed in exclude are ignored.
func (idx *Index) TeacherClear(teacherID string, start, end time.Time, exclude ...string) bool {
	for _, session := range idx.teacherBusy[dayKey{id: teacherID, day: Midnight(start)}] {
		if session.overlaps(start, end) && !excluded(session.ID, exclude) {
			return false
		}
	}
	return true
}

// TeacherFree combines static availability, occupancy and the weekly load
// ceiling for an extra session of the given length.
func (idx *Index) TeacherFree(teacherID string, start, end time.Time) bool {
	if !idx.TeacherAvailable(teacherID, start, end) {
		return false
	}
	if !idx.TeacherClear(teacherID, start, end) {
		return false
	}
	maxHrs := idx.teacherMaxHrs[teacherID]
	if maxHrs > 0 {
		extra := int(end.Sub(start) / time.Hour)
		if idx.TeacherWeekHours(teacherID, start)+extra > maxHrs {
			return false
		}
	}
	return true
}

// ExceedsWeeklyLoad reports whether adding [start, end] would push the
// teacher past the weekly hour ceiling. A zero ceiling means unlimited.
func (idx *Index) ExceedsWeeklyLoad(teacherID string, start, end time.Time) bool {
	maxHrs := idx.teacherMaxHrs[teacherID]
	if maxHrs <= 0 {
		return false
	}
	extra := int(end.Sub(start) / time.Hour)
	return idx.TeacherWeekHours(teacherID, start)+extra > maxHrs
}

// TeacherWeekHours sums tracked session hours of the teacher in the week
// containing the given date.
func (idx *Index) TeacherWeekHours(teacherID string, at time.Time) int {
	monday := MondayOf(at)
	total := 0
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		for _, session := range idx.teacherBusy[dayKey{id: teacherID, day: day}] {
			if session.TeacherID == teacherID || (session.SecondTeacherID != nil && *session.SecondTeacherID == teacherID) {
				total += session.DurationHours()
			}
		}
	}
	return total
}

// ClassAvailable reports whether the class group is not blocked on the date.
func (idx *Index) ClassAvailable(classID string, day time.Time) bool {
	d := Midnight(day)
	for _, off := range idx.classOff[classID] {
		if off.contains(d) {
			return false
		}
	}
	return true
}

// ClassClear reports whether the class group (restricted to the subgroup if
// set) has no overlapping session. Two sessions of the same class may share a
// slot only when both carry distinct subgroup labels.
func (idx *Index) ClassClear(classID string, subgroup *string, start, end time.Time, exclude ...string) bool {
	for _, session := range idx.classBusy[dayKey{id: classID, day: Midnight(start)}] {
		if !session.overlaps(start, end) || excluded(session.ID, exclude) {
			continue
		}
		if subgroup != nil && session.Subgroup != nil && *session.Subgroup != *subgroup {
			continue
		}
		return false
	}
	return true
}

// RoomFree reports whether no tracked session occupies the room over
// [start, end], ignoring excluded session ids.
func (idx *Index) RoomFree(roomID string, start, end time.Time, exclude ...string) bool {
	for _, session := range idx.roomBusy[dayKey{id: roomID, day: Midnight(start)}] {
		if session.overlaps(start, end) && !excluded(session.ID, exclude) {
			return false
		}
	}
	return true
}

// Place registers a session in every occupancy dimension and records teacher
// continuity for its series.
func (idx *Index) Place(session *PlacedSession) {
	day := Midnight(session.Start)
	idx.placed[session.ID] = session

	idx.teacherBusy[dayKey{id: session.TeacherID, day: day}] = append(
		idx.teacherBusy[dayKey{id: session.TeacherID, day: day}], session)
	if session.SecondTeacherID != nil {
		key := dayKey{id: *session.SecondTeacherID, day: day}
		idx.teacherBusy[key] = append(idx.teacherBusy[key], session)
	}
	for _, classID := range session.attendingClasses() {
		key := dayKey{id: classID, day: day}
		idx.classBusy[key] = append(idx.classBusy[key], session)
	}
	idx.roomBusy[dayKey{id: session.RoomID, day: day}] = append(
		idx.roomBusy[dayKey{id: session.RoomID, day: day}], session)

	key := seriesKey(session.CourseID, session.ClassGroupID, session.Subgroup)
	idx.lastTeacher[key] = session.TeacherID
}

// Remove withdraws a session from every dimension and returns it so callers
// can restore it verbatim on rollback.
func (idx *Index) Remove(sessionID string) *PlacedSession {
	session, ok := idx.placed[sessionID]
	if !ok {
		return nil
	}
	delete(idx.placed, sessionID)
	day := Midnight(session.Start)

	idx.drop(idx.teacherBusy, dayKey{id: session.TeacherID, day: day}, sessionID)
	if session.SecondTeacherID != nil {
		idx.drop(idx.teacherBusy, dayKey{id: *session.SecondTeacherID, day: day}, sessionID)
	}
	for _, classID := range session.attendingClasses() {
		idx.drop(idx.classBusy, dayKey{id: classID, day: day}, sessionID)
	}
	idx.drop(idx.roomBusy, dayKey{id: session.RoomID, day: day}, sessionID)
	return session
}

func (idx *Index) drop(m map[dayKey][]*PlacedSession, key dayKey, sessionID string) {
	entries := m[key]
	for i, entry := range entries {
		if entry.ID == sessionID {
			m[key] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// LastTeacher returns the teacher used for the previous session of the
// series, or empty when none was placed yet.
func (idx *Index) LastTeacher(courseID, classGroupID string, subgroup *string) string {
	return idx.lastTeacher[seriesKey(courseID, classGroupID, subgroup)]
}

// MovableSessions lists the non-persisted TD/TP sessions of a class group in
// the given week, ordered by start time then id. These are the relocation
// candidates.
func (idx *Index) MovableSessions(classID string, weekStart time.Time) []*PlacedSession {
	monday := MondayOf(weekStart)
	var result []*PlacedSession
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		for _, session := range idx.classBusy[dayKey{id: classID, day: day}] {
			if session.Persisted || !session.CourseType.Relocatable() {
				continue
			}
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Start.Equal(result[j].Start) {
			return result[i].Start.Before(result[j].Start)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// NewSessions lists every session placed during the current run, ordered by
// start time then id. Relocated sessions appear at their final slot only.
func (idx *Index) NewSessions() []*PlacedSession {
	var result []*PlacedSession
	for _, session := range idx.placed {
		if session.Persisted {
			continue
		}
		result = append(result, session)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Start.Equal(result[j].Start) {
			return result[i].Start.Before(result[j].Start)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// PlacedCount reports persisted sessions for a series, used to derive the
// remaining occurrences of a request.
func (idx *Index) PlacedCount(courseID, classGroupID string, subgroup *string) int {
	count := 0
	for _, session := range idx.placed {
		if !session.Persisted || session.CourseID != courseID || session.ClassGroupID != classGroupID {
			continue
		}
		if !subgroupEqual(session.Subgroup, subgroup) {
			continue
		}
		count++
	}
	return count
}

func seriesKey(courseID, classGroupID string, subgroup *string) string {
	key := courseID + "/" + classGroupID
	if subgroup != nil {
		key += "/" + *subgroup
	}
	return key
}

func subgroupEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func excluded(id string, exclude []string) bool {
	for _, candidate := range exclude {
		if candidate == id {
			return true
		}
	}
	return false
}
