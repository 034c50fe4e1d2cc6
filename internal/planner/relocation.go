package planner

import (
	"sort"
	"time"
)

// Relocator frees a slot for a blocked request by moving exactly one
// already-placed practical session out of the way. Only TD and TP sessions
// placed during the current run are ever touched; lectures, evaluations and
// sessions persisted by earlier runs stay where they are. Every attempt is
// transactional over the index: either the blocked request lands and the
// moved session finds a new slot, or the index is restored verbatim.
type Relocator struct {
	placer *Placer
	quotas *QuotaTracker
	// requests maps a series key back to its request, so a lifted session's
	// series can be re-placed with its own teacher and seat demands.
	requests map[string]*SessionRequest
}

// NewRelocator wires the relocator over the run's placer and quota state.
func NewRelocator(placer *Placer, quotas *QuotaTracker, requests []*SessionRequest) *Relocator {
	byKey := make(map[string]*SessionRequest, len(requests))
	for _, request := range requests {
		byKey[request.Key()] = request
	}
	return &Relocator{placer: placer, quotas: quotas, requests: byKey}
}

// Relocation reports a successful swap: the session placed for the blocked
// request plus the session that moved, with its vacated slot.
type Relocation struct {
	Placed    *PlacedSession
	Moved     *PlacedSession
	MovedFrom time.Time
}

// TryFree attempts to place the blocked request by lifting one movable
// session of the attending classes out, placing the request, then finding the
// lifted session a different slot. Candidates are tried earliest first; the
// first full swap wins. Returns nil when no single swap unblocks the request.
func (r *Relocator) TryFree(request *SessionRequest, weekStart time.Time) *Relocation {
	for _, victim := range r.movable(request, weekStart) {
		series, ok := r.requests[seriesKey(victim.CourseID, victim.ClassGroupID, victim.Subgroup)]
		if !ok {
			continue
		}

		lifted := r.placer.index.Remove(victim.ID)
		if lifted == nil {
			continue
		}
		r.quotas.NoteRemoved(lifted.CourseID, MondayOf(lifted.Start))

		placed, _ := r.placer.PlaceOne(request, weekStart)
		if placed == nil {
			r.restore(lifted)
			continue
		}

		originalStart, originalRoom := lifted.Start, lifted.RoomID
		moved, _ := r.placer.PlaceAvoiding(series, weekStart, func(cand *Candidate) bool {
			return cand.Start().Equal(originalStart) && cand.Room.ID == originalRoom
		})
		if moved == nil {
			r.placer.index.Remove(placed.ID)
			r.quotas.NoteRemoved(placed.CourseID, MondayOf(placed.Start))
			r.restore(lifted)
			continue
		}
		return &Relocation{Placed: placed, Moved: moved, MovedFrom: originalStart}
	}
	return nil
}

// movable lists the current-run TD/TP sessions of every attending class in
// the week, earliest first, deduplicated across shared attendance.
func (r *Relocator) movable(request *SessionRequest, weekStart time.Time) []*PlacedSession {
	seen := make(map[string]struct{})
	var result []*PlacedSession
	for _, classID := range request.Attendees {
		for _, session := range r.placer.index.MovableSessions(classID, weekStart) {
			if _, ok := seen[session.ID]; ok {
				continue
			}
			seen[session.ID] = struct{}{}
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

func (r *Relocator) restore(session *PlacedSession) {
	r.placer.index.Place(session)
	r.quotas.NotePlaced(session.CourseID, MondayOf(session.Start))
}
