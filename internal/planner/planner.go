package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edt-planner/edt-api/internal/models"
)

// ErrWindowEmpty is returned when the planning window contains no working
// week once weekends and closing periods are removed.
var ErrWindowEmpty = errors.New("planning window contains no working week")

// Input bundles the persisted state one generation run works from. The
// engine never touches the database; the caller loads everything up front
// and commits the result in one transaction.
type Input struct {
	WindowStart time.Time
	WindowEnd   time.Time

	Courses      []models.Course
	ClassLinks   []models.CourseClassLink
	TeacherLinks []models.CourseTeacherLink

	Teachers                []models.Teacher
	TeacherAvailabilities   []models.TeacherAvailability
	TeacherUnavailabilities []models.TeacherUnavailability

	ClassGroups           []models.ClassGroup
	ClassUnavailabilities []models.ClassGroupUnavailability

	Rooms        []models.Room
	Closings     []models.ClosingPeriod
	AllowedWeeks []models.AllowedWeek

	ExistingSessions []*PlacedSession
}

// Failure records a request that could not place all its occurrences, with
// the most specific rejection seen on its last failed week.
type Failure struct {
	CourseID     string       `json:"course_id"`
	CourseName   string       `json:"course_name"`
	CourseType   string       `json:"course_type"`
	ClassGroupID string       `json:"class_group_id"`
	Subgroup     *string      `json:"subgroup,omitempty"`
	Missing      int          `json:"missing"`
	Reason       RejectReason `json:"reason"`
	Detail       string       `json:"detail"`
}

// Result is the outcome of one generation run.
type Result struct {
	Placed      []*PlacedSession
	Failures    []Failure
	Relocations int
	Weeks       []time.Time
}

// Complete reports whether every requested occurrence was placed.
func (r *Result) Complete() bool { return len(r.Failures) == 0 }

// Engine runs the greedy week-by-week placement over an in-memory snapshot.
// Within a week, requests are handled lectures first and practicals last so
// the hardest-to-move sessions land before the flexible ones; blocked
// requests may trigger a single-swap relocation of an already placed
// practical session.
type Engine struct {
	input             Input
	sink              Sink
	logger            *zap.Logger
	relocationEnabled bool
	classNames        map[string]string
}

// Config wires an engine.
type Config struct {
	Input             Input
	Sink              Sink
	Logger            *zap.Logger
	RelocationEnabled bool
}

// NewEngine builds an engine. Sink and Logger default to no-ops.
func NewEngine(cfg Config) *Engine {
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		input:             cfg.Input,
		sink:              sink,
		logger:            logger,
		relocationEnabled: cfg.RelocationEnabled,
	}
}

// Run executes the placement until every request is satisfied, the window is
// exhausted, or the context ends. Cancellation is honoured between requests,
// never mid-placement, so the returned partial result is always consistent.
// The context error is returned alongside the partial result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	calendar := NewCalendar(e.input.Closings)
	weeks := calendar.WeeksIn(e.input.WindowStart, e.input.WindowEnd)
	if len(weeks) == 0 {
		e.sink.Finish(StateError, "no working week in the planning window")
		return nil, ErrWindowEmpty
	}

	index := NewIndex(IndexInput{
		Teachers:                e.input.Teachers,
		TeacherAvailabilities:   e.input.TeacherAvailabilities,
		TeacherUnavailabilities: e.input.TeacherUnavailabilities,
		ClassUnavailabilities:   e.input.ClassUnavailabilities,
		ExistingSessions:        e.input.ExistingSessions,
	})
	quotas := NewQuotaTracker(e.input.AllowedWeeks)

	sizes := make(map[string]int, len(e.input.ClassGroups))
	e.classNames = make(map[string]string, len(e.input.ClassGroups))
	for _, class := range e.input.ClassGroups {
		sizes[class.ID] = class.Size
		e.classNames[class.ID] = class.Name
	}
	requests := BuildRequests(RequestInput{
		Courses:      e.input.Courses,
		ClassLinks:   e.input.ClassLinks,
		TeacherLinks: e.input.TeacherLinks,
		ClassSizes:   sizes,
	}, index)

	placer := NewPlacer(calendar, index, quotas, e.input.Rooms)
	relocator := NewRelocator(placer, quotas, requests)

	totalUnits := 0
	for _, request := range requests {
		totalUnits += request.Remaining
	}
	e.sink.Begin(totalUnits)
	e.logger.Info("generation started",
		zap.Int("weeks", len(weeks)),
		zap.Int("requests", len(requests)),
		zap.Int("occurrences", totalUnits))

	result := &Result{Weeks: weeks}
	lastReason := make(map[*SessionRequest]RejectReason)

	for _, week := range weeks {
		if pending(requests) == 0 {
			break
		}
		e.sink.StartWeek(WeekLabel(week))
		e.logger.Debug("planning week", zap.String("week", WeekLabel(week)))

		for _, request := range requests {
			if request.Remaining <= 0 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return e.finish(result, index, requests, lastReason, err)
			}
			e.placeWeek(request, week, placer, relocator, quotas, result, lastReason)
		}
	}
	return e.finish(result, index, requests, lastReason, nil)
}

// placeWeek places the request's occurrences for one week: one by default,
// more when an explicit week quota raises the goal.
func (e *Engine) placeWeek(request *SessionRequest, week time.Time, placer *Placer, relocator *Relocator, quotas *QuotaTracker, result *Result, lastReason map[*SessionRequest]RejectReason) {
	goal := 1
	if quota, ok := quotas.ExplicitQuota(request.Course.ID, week); ok {
		goal = quota - quotas.Placed(request.Course.ID, week)
	}
	if goal > request.Remaining {
		goal = request.Remaining
	}

	for i := 0; i < goal; i++ {
		session, reason := placer.PlaceOne(request, week)
		if session == nil && e.relocationEnabled && occupancyConflict(reason) {
			if swap := relocator.TryFree(request, week); swap != nil {
				session = swap.Placed
				result.Relocations++
				e.sink.NoteRelocation()
				e.logger.Debug("relocated session",
					zap.String("course", swap.Moved.CourseName),
					zap.Time("from", swap.MovedFrom),
					zap.Time("to", swap.Moved.Start))
			}
		}
		if session == nil {
			lastReason[request] = reason
			e.sink.Advance(false)
			return
		}
		request.Remaining--
		e.sink.NoteSession(e.sessionNote(session))
		e.sink.Advance(true)
	}
}

func (e *Engine) sessionNote(session *PlacedSession) SessionNote {
	label := session.ClassGroupID
	if name, ok := e.classNames[session.ClassGroupID]; ok && name != "" {
		label = name
	}
	startMin := session.Start.Hour()*60 + session.Start.Minute()
	endMin := session.End.Hour()*60 + session.End.Minute()
	return SessionNote{
		Course:     session.CourseName,
		CourseType: string(session.CourseType),
		ClassLabel: label,
		Subgroup:   session.Subgroup,
		TeacherID:  session.TeacherID,
		RoomID:     session.RoomID,
		Time:       session.Start.Format("Mon 02/01") + " " + ClockRange(startMin, endMin),
	}
}

func (e *Engine) finish(result *Result, index *Index, requests []*SessionRequest, lastReason map[*SessionRequest]RejectReason, ctxErr error) (*Result, error) {
	result.Placed = index.NewSessions()
	for _, request := range requests {
		if request.Remaining <= 0 {
			continue
		}
		reason := lastReason[request]
		result.Failures = append(result.Failures, Failure{
			CourseID:     request.Course.ID,
			CourseName:   request.Course.Name,
			CourseType:   string(request.Course.Type),
			ClassGroupID: request.ClassGroupID,
			Subgroup:     request.Subgroup,
			Missing:      request.Remaining,
			Reason:       reason,
			Detail:       reason.Message(),
		})
	}

	switch {
	case ctxErr != nil:
		e.sink.Finish(StateError, ctxErr.Error())
		e.logger.Warn("generation interrupted",
			zap.Int("placed", len(result.Placed)),
			zap.Int("failures", len(result.Failures)),
			zap.Error(ctxErr))
	case result.Complete():
		e.sink.Finish(StateSuccess, fmt.Sprintf("%d sessions placed", len(result.Placed)))
		e.logger.Info("generation complete",
			zap.Int("placed", len(result.Placed)),
			zap.Int("relocations", result.Relocations))
	default:
		names := make([]string, 0, len(result.Failures))
		for _, failure := range result.Failures {
			names = append(names, failure.CourseName)
		}
		e.sink.Finish(StateSuccess, fmt.Sprintf("%d sessions placed, unplaced: %s",
			len(result.Placed), strings.Join(names, ", ")))
		e.logger.Info("generation partial",
			zap.Int("placed", len(result.Placed)),
			zap.Int("failures", len(result.Failures)),
			zap.Int("relocations", result.Relocations))
	}
	return result, ctxErr
}

func pending(requests []*SessionRequest) int {
	count := 0
	for _, request := range requests {
		if request.Remaining > 0 {
			count++
		}
	}
	return count
}

func occupancyConflict(reason RejectReason) bool {
	switch reason {
	case ReasonTeacherBusy, ReasonClassBusy, ReasonRoomBusy:
		return true
	}
	return false
}
