package planner

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/edt-planner/edt-api/internal/models"
)

// Placer searches for a valid slot for one session request inside one week.
// It scans days earliest first, canonical slots in daily order, teachers in
// continuity order and rooms tightest fit first, and takes the first
// candidate passing every hard constraint. The scan order is fully
// deterministic so a re-run over identical data yields identical timetables.
type Placer struct {
	calendar  *Calendar
	index     *Index
	quotas    *QuotaTracker
	evaluator *Evaluator
	rooms     []models.Room
	newID     func() string
}

// NewPlacer wires a placer over the run's calendar, index and quota state.
// Rooms are re-sorted by ascending capacity then id so the smallest room
// satisfying a request is always picked first.
func NewPlacer(calendar *Calendar, index *Index, quotas *QuotaTracker, rooms []models.Room) *Placer {
	sorted := make([]models.Room, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Capacity != sorted[j].Capacity {
			return sorted[i].Capacity < sorted[j].Capacity
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &Placer{
		calendar:  calendar,
		index:     index,
		quotas:    quotas,
		evaluator: NewEvaluator(calendar, index, quotas),
		rooms:     sorted,
		newID:     uuid.NewString,
	}
}

// PlaceOne attempts to place one occurrence of the request inside the week.
// On success the session is registered in the index and counted against the
// course's week quota. On failure the most specific rejection seen across
// every candidate is returned.
func (p *Placer) PlaceOne(request *SessionRequest, weekStart time.Time) (*PlacedSession, RejectReason) {
	return p.place(request, weekStart, nil)
}

// PlaceAvoiding is PlaceOne with a veto: candidates for which avoid returns
// true are skipped without being evaluated. Relocation uses it to forbid a
// lifted session's original slot.
func (p *Placer) PlaceAvoiding(request *SessionRequest, weekStart time.Time, avoid func(*Candidate) bool) (*PlacedSession, RejectReason) {
	return p.place(request, weekStart, avoid)
}

func (p *Placer) place(request *SessionRequest, weekStart time.Time, avoid func(*Candidate) bool) (*PlacedSession, RejectReason) {
	days := p.calendar.WorkingDays(weekStart)
	if len(days) == 0 {
		return nil, ReasonDateClosed
	}
	slots := SlotsForDuration(request.Course.SessionHours)
	if len(slots) == 0 {
		return nil, ReasonOutsideWorkingWindow
	}
	teachers := p.candidateTeachers(request)
	if len(teachers) == 0 {
		return nil, ReasonTeacherUnavailable
	}

	reject := ReasonNone
	for _, day := range days {
		for _, slot := range slots {
			for _, teacherID := range teachers {
				for _, second := range p.secondTeachers(request, teachers, teacherID) {
					for ri := range p.rooms {
						cand := &Candidate{
							Course:           request.Course,
							Request:          request,
							TeacherID:        teacherID,
							SecondTeacherID:  second,
							Room:             &p.rooms[ri],
							Day:              day,
							StartMin:         slot.StartMin,
							EndMin:           slot.EndMin,
							AttendeeClassIDs: request.Attendees,
							RequiredSeats:    request.RequiredSeats,
						}
						if avoid != nil && avoid(cand) {
							continue
						}
						reason := p.evaluator.Evaluate(cand)
						if reason != ReasonNone {
							reject = MoreSpecific(reject, reason)
							continue
						}
						return p.commit(request, cand), ReasonNone
					}
				}
			}
		}
	}
	if reject == ReasonNone {
		reject = ReasonRoomBusy
	}
	return nil, reject
}

// commit materialises an accepted candidate into the index.
func (p *Placer) commit(request *SessionRequest, cand *Candidate) *PlacedSession {
	attendees := make([]string, len(cand.AttendeeClassIDs))
	copy(attendees, cand.AttendeeClassIDs)
	session := &PlacedSession{
		ID:              p.newID(),
		CourseID:        request.Course.ID,
		CourseName:      request.Course.Name,
		CourseType:      request.Course.Type,
		ClassGroupID:    request.ClassGroupID,
		Subgroup:        request.Subgroup,
		Attendees:       attendees,
		TeacherID:       cand.TeacherID,
		SecondTeacherID: cand.SecondTeacherID,
		RoomID:          cand.Room.ID,
		Start:           cand.Start(),
		End:             cand.End(),
	}
	p.index.Place(session)
	p.quotas.NotePlaced(request.Course.ID, MondayOf(cand.Day))
	return session
}

// candidateTeachers orders the teachers to try: the teacher of the series'
// previous session first, then the link's preferred teacher, then the
// course's teacher list in declaration order.
func (p *Placer) candidateTeachers(request *SessionRequest) []string {
	ordered := make([]string, 0, len(request.EligibleTeacherIDs)+2)
	if last := p.index.LastTeacher(request.Course.ID, request.ClassGroupID, request.Subgroup); last != "" {
		ordered = append(ordered, last)
	}
	if request.PreferredTeacherID != nil && *request.PreferredTeacherID != "" {
		ordered = append(ordered, *request.PreferredTeacherID)
	}
	ordered = append(ordered, request.EligibleTeacherIDs...)
	return dedupStrings(ordered)
}

// secondTeachers yields the co-teacher candidates for a primary teacher. A
// request without a second teacher yields the single nil entry so the
// candidate loop stays uniform.
func (p *Placer) secondTeachers(request *SessionRequest, teachers []string, primary string) []*string {
	if !request.NeedsSecondTeacher {
		return []*string{nil}
	}
	var seconds []*string
	for i := range teachers {
		if teachers[i] == primary {
			continue
		}
		seconds = append(seconds, &teachers[i])
	}
	return seconds
}

func dedupStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := values[:0:0]
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
