package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/edt-planner/edt-api/internal/dto"
	"github.com/edt-planner/edt-api/internal/models"
	"github.com/edt-planner/edt-api/internal/planner"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
	"github.com/edt-planner/edt-api/pkg/jobs"
)

type generationCourseReader interface {
	List(ctx context.Context) ([]models.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	ListClassLinks(ctx context.Context, courseIDs []string) ([]models.CourseClassLink, error)
	ListTeacherLinks(ctx context.Context, courseIDs []string) ([]models.CourseTeacherLink, error)
}

type generationTeacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	ListAvailabilities(ctx context.Context) ([]models.TeacherAvailability, error)
	ListUnavailabilities(ctx context.Context) ([]models.TeacherUnavailability, error)
}

type generationClassReader interface {
	List(ctx context.Context) ([]models.ClassGroup, error)
	ListUnavailabilities(ctx context.Context) ([]models.ClassGroupUnavailability, error)
}

type generationRoomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

type generationCalendarReader interface {
	ListClosingPeriods(ctx context.Context) ([]models.ClosingPeriod, error)
	ListAllowedWeeks(ctx context.Context, courseIDs []string) ([]models.AllowedWeek, error)
}

type generationSessionStore interface {
	ListInWindow(ctx context.Context, start, end time.Time) ([]models.Session, error)
	ListAttendance(ctx context.Context, sessionIDs []string) ([]models.SessionAttendance, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.Session) error
	BulkCreateAttendanceWithTx(ctx context.Context, tx *sqlx.Tx, rows []models.SessionAttendance) error
}

type scheduleLogWriter interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, logs []models.ScheduleLog) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

type listingInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GenerationServiceConfig tunes the job runner.
type GenerationServiceConfig struct {
	APIPrefix          string
	SoftTimeout        time.Duration
	DefaultWindowWeeks int
	RelocationEnabled  bool
}

type jobPhase string

const (
	jobQueued    jobPhase = "queued"
	jobRunning   jobPhase = "running"
	jobSucceeded jobPhase = "success"
	jobFailed    jobPhase = "failed"
	jobCancelled jobPhase = "cancelled"
)

func (p jobPhase) terminal() bool {
	return p == jobSucceeded || p == jobFailed || p == jobCancelled
}

type jobRun struct {
	id         string
	phase      jobPhase
	result     *dto.JobResultResponse
	failure    string
	cancel     context.CancelFunc
	finishedAt time.Time
}

type generationPayload struct {
	CourseIDs   []string
	WindowStart time.Time
	WindowEnd   time.Time
}

// GenerationService runs timetable generation as background jobs: one
// request snapshots the database, plans in memory, and commits the placed
// sessions plus per-course logs in a single transaction at the end.
type GenerationService struct {
	courses  generationCourseReader
	teachers generationTeacherReader
	classes  generationClassReader
	rooms    generationRoomLister
	calendar generationCalendarReader
	sessions generationSessionStore
	logs     scheduleLogWriter
	tx       txProvider
	queue    jobQueue
	cache    listingInvalidator
	trackers *planner.Registry
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	cfg      GenerationServiceConfig

	mu   sync.Mutex
	runs map[string]*jobRun
}

// NewGenerationService wires the job runner. The queue is expected to run a
// single worker so concurrent jobs never race over the same resources.
func NewGenerationService(
	courses generationCourseReader,
	teachers generationTeacherReader,
	classes generationClassReader,
	rooms generationRoomLister,
	calendar generationCalendarReader,
	sessions generationSessionStore,
	logs scheduleLogWriter,
	tx txProvider,
	queue jobQueue,
	cache listingInvalidator,
	trackers *planner.Registry,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg GenerationServiceConfig,
) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if trackers == nil {
		trackers = planner.NewRegistry()
	}
	if cfg.DefaultWindowWeeks <= 0 {
		cfg.DefaultWindowWeeks = 12
	}
	return &GenerationService{
		courses:  courses,
		teachers: teachers,
		classes:  classes,
		rooms:    rooms,
		calendar: calendar,
		sessions: sessions,
		logs:     logs,
		tx:       tx,
		queue:    queue,
		cache:    cache,
		trackers: trackers,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
		runs:     make(map[string]*jobRun),
	}
}

// Submit validates the request, registers a tracker and enqueues the job.
func (s *GenerationService) Submit(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}

	windowStart, windowEnd := s.resolveWindow(req)
	if len(req.CourseIDs) > 0 {
		courses, err := s.courses.ListByIDs(ctx, req.CourseIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load courses")
		}
		if len(courses) != len(uniqueStrings(req.CourseIDs)) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more courses do not exist")
		}
	}

	jobID := uuid.NewString()
	s.trackers.Create(jobID)
	s.mu.Lock()
	s.runs[jobID] = &jobRun{id: jobID, phase: jobQueued}
	s.mu.Unlock()

	payload := generationPayload{
		CourseIDs:   req.CourseIDs,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: "generation", Payload: payload}); err != nil {
		s.finishRun(jobID, jobFailed, nil, "queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue generation job")
	}

	s.logger.Info("generation job submitted",
		zap.String("job_id", jobID),
		zap.Int("courses", len(req.CourseIDs)),
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd))

	return &dto.GenerateResponse{
		JobID: jobID,
		Label: fmt.Sprintf("Generation %s → %s",
			windowStart.Format("02/01/2006"), windowEnd.Format("02/01/2006")),
		StatusURL: fmt.Sprintf("%s/generate/%s/status", s.cfg.APIPrefix, jobID),
		ResultURL: fmt.Sprintf("%s/generate/%s/result", s.cfg.APIPrefix, jobID),
	}, nil
}

// HandleJob is the queue handler: it loads the snapshot, runs the engine and
// commits the outcome. Wired as the generation queue's jobs.Handler.
func (s *GenerationService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}
	started := time.Now()

	s.mu.Lock()
	run := s.runs[job.ID]
	if run == nil {
		run = &jobRun{id: job.ID, phase: jobQueued}
		s.runs[job.ID] = run
	}
	if run.phase == jobCancelled {
		s.mu.Unlock()
		return nil
	}
	runCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.SoftTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.SoftTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	run.phase = jobRunning
	run.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	tracker := s.trackers.Get(job.ID)
	if tracker == nil {
		tracker = s.trackers.Create(job.ID)
	}

	input, courseByID, err := s.loadSnapshot(runCtx, payload)
	if err != nil {
		tracker.Finish(planner.StateError, appErrors.FromError(err).Message)
		s.finishRun(job.ID, jobFailed, nil, appErrors.FromError(err).Message)
		s.metrics.ObserveJob(string(jobFailed), 0, 0, time.Since(started))
		return err
	}

	engine := planner.NewEngine(planner.Config{
		Input:             *input,
		Sink:              tracker,
		Logger:            s.logger.With(zap.String("job_id", job.ID)),
		RelocationEnabled: s.cfg.RelocationEnabled,
	})
	result, runErr := engine.Run(runCtx)

	switch {
	case errors.Is(runErr, planner.ErrWindowEmpty):
		s.finishRun(job.ID, jobFailed, nil, appErrors.ErrWindowEmpty.Message)
		s.metrics.ObserveJob(string(jobFailed), 0, 0, time.Since(started))
		return appErrors.Clone(appErrors.ErrWindowEmpty, "")
	case errors.Is(runErr, context.Canceled):
		// User cancellation discards the partial plan.
		s.finishRun(job.ID, jobCancelled, nil, appErrors.ErrJobCancelled.Message)
		s.metrics.ObserveJob(string(jobCancelled), 0, 0, time.Since(started))
		return nil
	}

	// A soft-timeout run still commits what it placed.
	if err := s.commit(ctx, payload, result, courseByID); err != nil {
		tracker.Finish(planner.StateError, "failed to persist generated sessions")
		s.finishRun(job.ID, jobFailed, nil, appErrors.FromError(err).Message)
		s.metrics.ObserveJob(string(jobFailed), 0, 0, time.Since(started))
		return err
	}

	state := planner.StateSuccess
	message := tracker.Snapshot().Message
	if errors.Is(runErr, context.DeadlineExceeded) {
		state = planner.StateError
		message = fmt.Sprintf("time ceiling reached, %d sessions committed", len(result.Placed))
		tracker.Finish(state, message)
	}
	s.finishRun(job.ID, jobSucceeded, buildResultDTO(job.ID, string(state), message, result), "")
	s.metrics.ObserveJob(string(jobSucceeded), len(result.Placed), result.Relocations, time.Since(started))
	return nil
}

// Status returns the live snapshot of a job.
func (s *GenerationService) Status(jobID string) (*dto.JobStatusResponse, error) {
	tracker := s.trackers.Get(jobID)
	s.mu.Lock()
	run := s.runs[jobID]
	s.mu.Unlock()
	if tracker == nil && run == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown generation job")
	}

	resp := &dto.JobStatusResponse{JobID: jobID, State: string(planner.StateIdle)}
	if tracker != nil {
		snap := tracker.Snapshot()
		resp.State = string(snap.State)
		resp.Percent = snap.Percent
		resp.ETASeconds = snap.ETASeconds
		resp.Message = snap.Message
		resp.CurrentWeek = snap.CurrentWeek
		for _, week := range snap.Weeks {
			resp.Weeks = append(resp.Weeks, dto.WeekSummary{
				Label:     week.Label,
				Placed:    week.Placed,
				Failed:    week.Failed,
				Relocated: week.Relocated,
			})
		}
		for _, note := range snap.WeekSessions {
			resp.CurrentWeekSessions = append(resp.CurrentWeekSessions, dto.SessionNoteView{
				Course:     note.Course,
				CourseType: note.CourseType,
				ClassLabel: note.ClassLabel,
				Subgroup:   note.Subgroup,
				TeacherID:  note.TeacherID,
				RoomID:     note.RoomID,
				Time:       note.Time,
			})
		}
	}
	if run != nil {
		resp.Finished = run.phase.terminal()
		if run.phase == jobCancelled {
			resp.State = string(planner.StateError)
			resp.Message = appErrors.ErrJobCancelled.Message
		}
	}
	return resp, nil
}

// Cancel flags a queued or running job for cancellation. The engine honours
// the flag between placements; already finished jobs are not touched.
func (s *GenerationService) Cancel(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[jobID]
	if run == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "unknown generation job")
	}
	if run.phase.terminal() {
		return appErrors.Clone(appErrors.ErrConflict, "generation job already finished")
	}
	if run.cancel != nil {
		run.cancel()
	}
	if run.phase == jobQueued {
		run.phase = jobCancelled
		run.finishedAt = time.Now()
	}
	return nil
}

// Result returns the committed outcome of a finished job.
func (s *GenerationService) Result(jobID string) (*dto.JobResultResponse, error) {
	s.mu.Lock()
	run := s.runs[jobID]
	s.mu.Unlock()
	if run == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown generation job")
	}
	switch run.phase {
	case jobQueued, jobRunning:
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation job still running")
	case jobCancelled:
		return nil, appErrors.Clone(appErrors.ErrJobCancelled, "")
	case jobFailed:
		return nil, appErrors.Clone(appErrors.ErrInternal, run.failure)
	}
	return run.result, nil
}

// PurgeSnapshots drops finished trackers and runs older than ttl.
func (s *GenerationService) PurgeSnapshots(ttl time.Duration) int {
	removed := s.trackers.Purge(ttl)
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	for id, run := range s.runs {
		if run.phase.terminal() && !run.finishedAt.IsZero() && run.finishedAt.Before(cutoff) {
			delete(s.runs, id)
		}
	}
	s.mu.Unlock()
	return removed
}

func (s *GenerationService) resolveWindow(req dto.GenerateRequest) (time.Time, time.Time) {
	start := planner.MondayOf(time.Now().UTC().AddDate(0, 0, 7))
	if req.WindowStart != nil {
		start = planner.MondayOf(*req.WindowStart)
	}
	end := start.AddDate(0, 0, 7*s.cfg.DefaultWindowWeeks-3)
	if req.WindowEnd != nil {
		end = planner.Midnight(*req.WindowEnd)
	}
	return start, end
}

// loadSnapshot reads everything the engine needs and validates referential
// consistency before planning starts.
func (s *GenerationService) loadSnapshot(ctx context.Context, payload generationPayload) (*planner.Input, map[string]models.Course, error) {
	var (
		courses []models.Course
		err     error
	)
	if len(payload.CourseIDs) > 0 {
		courses, err = s.courses.ListByIDs(ctx, payload.CourseIDs)
	} else {
		courses, err = s.courses.List(ctx)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load courses: %w", err)
	}
	courseIDs := make([]string, 0, len(courses))
	courseByID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		courseIDs = append(courseIDs, course.ID)
		courseByID[course.ID] = course
	}

	classLinks, err := s.courses.ListClassLinks(ctx, courseIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load class links: %w", err)
	}
	teacherLinks, err := s.courses.ListTeacherLinks(ctx, courseIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load teacher links: %w", err)
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load teachers: %w", err)
	}
	availabilities, err := s.teachers.ListAvailabilities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load teacher availabilities: %w", err)
	}
	teacherOff, err := s.teachers.ListUnavailabilities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load teacher unavailabilities: %w", err)
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load class groups: %w", err)
	}
	classOff, err := s.classes.ListUnavailabilities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load class unavailabilities: %w", err)
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load rooms: %w", err)
	}
	closings, err := s.calendar.ListClosingPeriods(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load closing periods: %w", err)
	}
	allowedWeeks, err := s.calendar.ListAllowedWeeks(ctx, courseIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load allowed weeks: %w", err)
	}

	if err := checkConsistency(courses, classLinks, teacherLinks, teachers, classes, rooms); err != nil {
		return nil, nil, err
	}

	existing, err := s.loadExistingSessions(ctx, payload, courseByID)
	if err != nil {
		return nil, nil, err
	}

	return &planner.Input{
		WindowStart:             payload.WindowStart,
		WindowEnd:               payload.WindowEnd,
		Courses:                 courses,
		ClassLinks:              classLinks,
		TeacherLinks:            teacherLinks,
		Teachers:                teachers,
		TeacherAvailabilities:   availabilities,
		TeacherUnavailabilities: teacherOff,
		ClassGroups:             classes,
		ClassUnavailabilities:   classOff,
		Rooms:                   rooms,
		Closings:                closings,
		AllowedWeeks:            allowedWeeks,
		ExistingSessions:        existing,
	}, courseByID, nil
}

// loadExistingSessions seeds the availability index with persisted sessions
// overlapping the window, attendance included.
func (s *GenerationService) loadExistingSessions(ctx context.Context, payload generationPayload, courseByID map[string]models.Course) ([]*planner.PlacedSession, error) {
	sessions, err := s.sessions.ListInWindow(ctx, payload.WindowStart, payload.WindowEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load existing sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	attendance, err := s.sessions.ListAttendance(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load session attendance: %w", err)
	}
	attendees := make(map[string][]string)
	for _, row := range attendance {
		attendees[row.SessionID] = append(attendees[row.SessionID], row.ClassGroupID)
	}

	placed := make([]*planner.PlacedSession, 0, len(sessions))
	for _, session := range sessions {
		course := courseByID[session.CourseID]
		attending := append([]string{session.ClassGroupID}, attendees[session.ID]...)
		placed = append(placed, &planner.PlacedSession{
			ID:              session.ID,
			CourseID:        session.CourseID,
			CourseName:      course.Name,
			CourseType:      course.Type,
			ClassGroupID:    session.ClassGroupID,
			Subgroup:        session.Subgroup,
			Attendees:       attending,
			TeacherID:       session.TeacherID,
			SecondTeacherID: session.SecondTeacherID,
			RoomID:          session.RoomID,
			Start:           session.StartTime,
			End:             session.EndTime,
			Persisted:       true,
		})
	}
	return placed, nil
}

// checkConsistency rejects snapshots the planner cannot work with before any
// placement starts.
func checkConsistency(courses []models.Course, classLinks []models.CourseClassLink, teacherLinks []models.CourseTeacherLink, teachers []models.Teacher, classes []models.ClassGroup, rooms []models.Room) error {
	teacherIDs := make(map[string]struct{}, len(teachers))
	for _, teacher := range teachers {
		teacherIDs[teacher.ID] = struct{}{}
	}
	classIDs := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		classIDs[class.ID] = struct{}{}
	}
	linkedClasses := make(map[string]bool)
	for _, link := range classLinks {
		linkedClasses[link.CourseID] = true
	}
	eligible := make(map[string]bool)
	for _, link := range teacherLinks {
		eligible[link.CourseID] = true
	}

	var problems []string
	if len(rooms) == 0 {
		problems = append(problems, "no room defined")
	}
	for _, course := range courses {
		if !linkedClasses[course.ID] {
			problems = append(problems, fmt.Sprintf("course %s has no class group", course.Name))
		}
		if !eligible[course.ID] {
			problems = append(problems, fmt.Sprintf("course %s has no eligible teacher", course.Name))
		}
	}
	for _, link := range classLinks {
		if _, ok := classIDs[link.ClassGroupID]; !ok {
			problems = append(problems, fmt.Sprintf("class group %s referenced by course link is missing", link.ClassGroupID))
		}
		if link.TeacherAID != nil && *link.TeacherAID != "" {
			if _, ok := teacherIDs[*link.TeacherAID]; !ok {
				problems = append(problems, fmt.Sprintf("teacher %s referenced by course link is missing", *link.TeacherAID))
			}
		}
		if link.TeacherBID != nil && *link.TeacherBID != "" {
			if _, ok := teacherIDs[*link.TeacherBID]; !ok {
				problems = append(problems, fmt.Sprintf("teacher %s referenced by course link is missing", *link.TeacherBID))
			}
		}
	}
	for _, link := range teacherLinks {
		if _, ok := teacherIDs[link.TeacherID]; !ok {
			problems = append(problems, fmt.Sprintf("teacher %s referenced by course %s is missing", link.TeacherID, link.CourseID))
		}
	}
	if len(problems) > 0 {
		return appErrors.Clone(appErrors.ErrDataInconsistency, strings.Join(problems, "; "))
	}
	return nil
}

// commit persists the run outcome in one transaction: sessions, attendance
// and per-course schedule logs.
func (s *GenerationService) commit(ctx context.Context, payload generationPayload, result *planner.Result, courseByID map[string]models.Course) error {
	sessions := make([]models.Session, 0, len(result.Placed))
	var attendance []models.SessionAttendance
	for _, placed := range result.Placed {
		sessions = append(sessions, models.Session{
			ID:              placed.ID,
			CourseID:        placed.CourseID,
			ClassGroupID:    placed.ClassGroupID,
			Subgroup:        placed.Subgroup,
			TeacherID:       placed.TeacherID,
			SecondTeacherID: placed.SecondTeacherID,
			RoomID:          placed.RoomID,
			StartTime:       placed.Start,
			EndTime:         placed.End,
		})
		for _, classID := range placed.Attendees {
			if classID == placed.ClassGroupID {
				continue
			}
			attendance = append(attendance, models.SessionAttendance{
				SessionID:    placed.ID,
				ClassGroupID: classID,
			})
		}
	}
	logs := buildScheduleLogs(payload, result, courseByID)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin generation commit: %w", err)
	}
	if err := s.sessions.BulkCreateWithTx(ctx, tx, sessions); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.sessions.BulkCreateAttendanceWithTx(ctx, tx, attendance); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.logs.CreateWithTx(ctx, tx, logs); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit generation: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(context.Background(), "sessions:*"); err != nil {
			s.logger.Warn("session cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

// buildScheduleLogs summarises the run per course.
func buildScheduleLogs(payload generationPayload, result *planner.Result, courseByID map[string]models.Course) []models.ScheduleLog {
	placedPerCourse := make(map[string]int)
	for _, placed := range result.Placed {
		placedPerCourse[placed.CourseID]++
	}
	failuresPerCourse := make(map[string][]planner.Failure)
	for _, failure := range result.Failures {
		failuresPerCourse[failure.CourseID] = append(failuresPerCourse[failure.CourseID], failure)
	}

	seen := make(map[string]struct{})
	var order []string
	for _, placed := range result.Placed {
		if _, ok := seen[placed.CourseID]; !ok {
			seen[placed.CourseID] = struct{}{}
			order = append(order, placed.CourseID)
		}
	}
	for _, failure := range result.Failures {
		if _, ok := seen[failure.CourseID]; !ok {
			seen[failure.CourseID] = struct{}{}
			order = append(order, failure.CourseID)
		}
	}

	windowStart, windowEnd := payload.WindowStart, payload.WindowEnd
	logs := make([]models.ScheduleLog, 0, len(order))
	for _, courseID := range order {
		placed := placedPerCourse[courseID]
		failures := failuresPerCourse[courseID]
		status := models.ScheduleLogStatusSuccess
		if len(failures) > 0 {
			status = models.ScheduleLogStatusPartial
			if placed == 0 {
				status = models.ScheduleLogStatusError
			}
		}
		missing := 0
		var messages []string
		for _, failure := range failures {
			missing += failure.Missing
			messages = append(messages, fmt.Sprintf("%s (%s): %s",
				failure.CourseName, failure.ClassGroupID, failure.Detail))
		}
		name := courseID
		if course, ok := courseByID[courseID]; ok {
			name = course.Name
		}
		logs = append(logs, models.ScheduleLog{
			CourseID:    courseID,
			Status:      status,
			Summary:     fmt.Sprintf("%s: %d placed, %d missing", name, placed, missing),
			Messages:    pq.StringArray(messages),
			WindowStart: &windowStart,
			WindowEnd:   &windowEnd,
		})
	}
	return logs
}

func buildResultDTO(jobID, state, message string, result *planner.Result) *dto.JobResultResponse {
	resp := &dto.JobResultResponse{
		JobID:       jobID,
		State:       state,
		Message:     message,
		Relocations: result.Relocations,
		Placed:      make([]dto.PlacedSessionView, 0, len(result.Placed)),
		Failures:    make([]dto.PlacementFailureView, 0, len(result.Failures)),
	}
	for _, placed := range result.Placed {
		resp.Placed = append(resp.Placed, dto.PlacedSessionView{
			ID:           placed.ID,
			CourseID:     placed.CourseID,
			CourseName:   placed.CourseName,
			CourseType:   string(placed.CourseType),
			ClassGroupID: placed.ClassGroupID,
			Subgroup:     placed.Subgroup,
			TeacherID:    placed.TeacherID,
			CoTeacherID:  placed.SecondTeacherID,
			RoomID:       placed.RoomID,
			StartTime:    placed.Start,
			EndTime:      placed.End,
		})
	}
	for _, failure := range result.Failures {
		resp.Failures = append(resp.Failures, dto.PlacementFailureView{
			CourseID:     failure.CourseID,
			CourseName:   failure.CourseName,
			CourseType:   failure.CourseType,
			ClassGroupID: failure.ClassGroupID,
			Subgroup:     failure.Subgroup,
			Missing:      failure.Missing,
			Reason:       string(failure.Reason),
			Detail:       failure.Detail,
		})
	}
	return resp
}

func (s *GenerationService) finishRun(jobID string, phase jobPhase, result *dto.JobResultResponse, failure string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[jobID]
	if run == nil {
		run = &jobRun{id: jobID}
		s.runs[jobID] = run
	}
	run.phase = phase
	run.result = result
	run.failure = failure
	run.finishedAt = time.Now()
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
