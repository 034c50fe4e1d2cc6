package planner

import (
	"sync"
	"time"
)

// State is the lifecycle of a tracked generation run.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Sink receives placement progress from the engine. The engine only ever
// pushes; reading snapshots is the tracker's concern.
type Sink interface {
	Begin(totalUnits int)
	StartWeek(label string)
	Advance(placed bool)
	NoteSession(note SessionNote)
	NoteRelocation()
	Finish(state State, message string)
}

// NopSink discards progress. Used in tests and bulk runs.
type NopSink struct{}

func (NopSink) Begin(int)               {}
func (NopSink) StartWeek(string)        {}
func (NopSink) Advance(bool)            {}
func (NopSink) NoteSession(SessionNote) {}
func (NopSink) NoteRelocation()         {}
func (NopSink) Finish(State, string)    {}

// SessionNote describes one session placed in the week being planned, for
// live status displays.
type SessionNote struct {
	Course     string  `json:"course"`
	CourseType string  `json:"course_type"`
	ClassLabel string  `json:"class_label"`
	Subgroup   *string `json:"subgroup,omitempty"`
	TeacherID  string  `json:"teacher_id"`
	RoomID     string  `json:"room_id"`
	Time       string  `json:"time"`
}

// WeekRow summarises one planned week for status displays.
type WeekRow struct {
	Label     string `json:"label"`
	Placed    int    `json:"placed"`
	Failed    int    `json:"failed"`
	Relocated int    `json:"relocated"`
}

// Snapshot is a point-in-time copy of a run's progress, safe to serialise
// while the run keeps mutating the tracker.
type Snapshot struct {
	JobID        string        `json:"job_id"`
	State        State         `json:"state"`
	Percent      float64       `json:"percent"`
	ETASeconds   *float64      `json:"eta_seconds,omitempty"`
	CurrentWeek  string        `json:"current_week,omitempty"`
	WeekSessions []SessionNote `json:"current_week_sessions,omitempty"`
	Message      string        `json:"message,omitempty"`
	Weeks        []WeekRow     `json:"weeks"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// Tracker accumulates progress for one run. One unit is one attempt to place
// a request in a week; percent and ETA derive from units done over units
// planned, extrapolating elapsed time linearly.
type Tracker struct {
	mu sync.Mutex

	jobID        string
	state        State
	total        int
	done         int
	weeks        []WeekRow
	weekSessions []SessionNote
	message      string
	startedAt    time.Time
	finishedAt   *time.Time
}

// NewTracker creates an idle tracker for a job.
func NewTracker(jobID string) *Tracker {
	return &Tracker{jobID: jobID, state: StateIdle}
}

// Begin marks the run started with the planned number of units.
func (t *Tracker) Begin(totalUnits int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateRunning
	t.total = totalUnits
	t.done = 0
	t.weeks = nil
	t.weekSessions = nil
	t.startedAt = time.Now()
	t.finishedAt = nil
}

// StartWeek opens a new week row; later notes land on it.
func (t *Tracker) StartWeek(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.weeks = append(t.weeks, WeekRow{Label: label})
	t.weekSessions = nil
}

// NoteSession records a session placed in the current week.
func (t *Tracker) NoteSession(note SessionNote) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.weekSessions = append(t.weekSessions, note)
}

// Advance records one finished unit.
func (t *Tracker) Advance(placed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if len(t.weeks) == 0 {
		return
	}
	row := &t.weeks[len(t.weeks)-1]
	if placed {
		row.Placed++
	} else {
		row.Failed++
	}
}

// NoteRelocation records a successful swap in the current week.
func (t *Tracker) NoteRelocation() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.weeks) == 0 {
		return
	}
	t.weeks[len(t.weeks)-1].Relocated++
}

// Finish closes the run with a terminal state.
func (t *Tracker) Finish(state State, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.message = message
	now := time.Now()
	t.finishedAt = &now
}

// Snapshot copies the current progress. The week table is cloned so callers
// may serialise it without holding the lock.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		JobID:     t.jobID,
		State:     t.state,
		Message:   t.message,
		StartedAt: t.startedAt,
	}
	if t.finishedAt != nil {
		finished := *t.finishedAt
		snap.FinishedAt = &finished
	}
	if t.total > 0 {
		snap.Percent = float64(t.done) / float64(t.total) * 100
		if snap.Percent > 100 {
			snap.Percent = 100
		}
	}
	if t.state == StateRunning && t.done > 0 && t.done < t.total {
		elapsed := time.Since(t.startedAt).Seconds()
		eta := elapsed / float64(t.done) * float64(t.total-t.done)
		snap.ETASeconds = &eta
	}
	if len(t.weeks) > 0 {
		snap.Weeks = make([]WeekRow, len(t.weeks))
		copy(snap.Weeks, t.weeks)
		if t.state == StateRunning {
			snap.CurrentWeek = t.weeks[len(t.weeks)-1].Label
		}
	}
	if len(t.weekSessions) > 0 {
		snap.WeekSessions = make([]SessionNote, len(t.weekSessions))
		copy(snap.WeekSessions, t.weekSessions)
	}
	return snap
}

// Registry keeps per-job trackers so status endpoints can read progress while
// jobs run, and purges finished ones after a retention delay.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// Create registers a fresh tracker for the job id, replacing any previous
// one.
func (r *Registry) Create(jobID string) *Tracker {
	tracker := NewTracker(jobID)
	r.mu.Lock()
	r.trackers[jobID] = tracker
	r.mu.Unlock()
	return tracker
}

// Get returns the tracker for a job, or nil when unknown.
func (r *Registry) Get(jobID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackers[jobID]
}

// Purge drops trackers whose run finished more than ttl ago. Returns how
// many were removed.
func (r *Registry) Purge(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for jobID, tracker := range r.trackers {
		tracker.mu.Lock()
		expired := tracker.finishedAt != nil && tracker.finishedAt.Before(cutoff)
		tracker.mu.Unlock()
		if expired {
			delete(r.trackers, jobID)
			removed++
		}
	}
	return removed
}
