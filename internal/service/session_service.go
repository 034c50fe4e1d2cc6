package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edt-planner/edt-api/internal/dto"
	"github.com/edt-planner/edt-api/internal/models"
	"github.com/edt-planner/edt-api/internal/planner"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
	"github.com/edt-planner/edt-api/pkg/export"
)

type sessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionView, int, error)
}

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SessionServiceConfig tunes listing cache and exports.
type SessionServiceConfig struct {
	CacheTTL       time.Duration
	ExportsEnabled bool
}

type cachedSessionPage struct {
	Items []dto.SessionItem `json:"items"`
	Total int               `json:"total"`
}

// SessionService serves the generated timetable: filtered listings and
// CSV/PDF exports.
type SessionService struct {
	sessions sessionLister
	cache    listingCache
	metrics  *MetricsService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	cfg      SessionServiceConfig
}

// NewSessionService wires the session read side. cache may be nil.
func NewSessionService(sessions sessionLister, cache listingCache, metrics *MetricsService, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions: sessions,
		cache:    cache,
		metrics:  metrics,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		cfg:      cfg,
	}
}

// List returns sessions matching the query with the total row count.
func (s *SessionService) List(ctx context.Context, query dto.SessionQuery) ([]dto.SessionItem, int, error) {
	filter, err := buildSessionFilter(query)
	if err != nil {
		return nil, 0, err
	}

	key := sessionCacheKey(filter)
	if s.cache != nil {
		var page cachedSessionPage
		if err := s.cache.Get(ctx, key, &page); err == nil {
			s.metrics.RecordCacheOperation(true)
			return page.Items, page.Total, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("session cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	views, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list sessions")
	}
	items := make([]dto.SessionItem, 0, len(views))
	for _, view := range views {
		items = append(items, dto.SessionItem{
			ID:         view.ID,
			CourseName: view.CourseName,
			CourseType: view.CourseType,
			ClassName:  view.ClassName,
			Subgroup:   view.Subgroup,
			Teacher:    view.TeacherName,
			Room:       view.RoomName,
			StartTime:  view.StartTime,
			EndTime:    view.EndTime,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedSessionPage{Items: items, Total: total}, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("session cache write failed", zap.Error(err))
		}
	}
	return items, total, nil
}

// Export renders the filtered timetable as CSV or PDF and returns the file
// name, content type and payload.
func (s *SessionService) Export(ctx context.Context, query dto.SessionExportQuery) (string, string, []byte, error) {
	if !s.cfg.ExportsEnabled {
		return "", "", nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled")
	}
	format := strings.ToLower(query.Format)
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	filter, err := buildSessionFilter(query.SessionQuery)
	if err != nil {
		return "", "", nil, err
	}
	filter.Page = 1
	filter.PageSize = 500

	views, _, err := s.sessions.List(ctx, filter)
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list sessions for export")
	}

	stamp := time.Now().Format("20060102")
	if format == "csv" {
		payload, err := s.csv.Render(export.Dataset{
			Headers: sessionExportHeaders,
			Rows:    sessionExportRows(views),
		})
		if err != nil {
			return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return fmt.Sprintf("timetable-%s.csv", stamp), "text/csv", payload, nil
	}

	payload, err := s.pdf.RenderGrouped(groupSessionsByWeek(views), "Timetable")
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
	}
	return fmt.Sprintf("timetable-%s.pdf", stamp), "application/pdf", payload, nil
}

var sessionExportHeaders = []string{"Date", "Start", "End", "Course", "Type", "Class", "Subgroup", "Teacher", "Room"}

func sessionExportRows(views []models.SessionView) []map[string]string {
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		subgroup := ""
		if view.Subgroup != nil {
			subgroup = *view.Subgroup
		}
		rows = append(rows, map[string]string{
			"Date":     view.StartTime.Format("02/01/2006"),
			"Start":    view.StartTime.Format("15:04"),
			"End":      view.EndTime.Format("15:04"),
			"Course":   view.CourseName,
			"Type":     view.CourseType,
			"Class":    view.ClassName,
			"Subgroup": subgroup,
			"Teacher":  view.TeacherName,
			"Room":     view.RoomName,
		})
	}
	return rows
}

// groupSessionsByWeek produces one PDF section per calendar week.
func groupSessionsByWeek(views []models.SessionView) export.GroupedDataset {
	byWeek := make(map[time.Time][]models.SessionView)
	for _, view := range views {
		week := planner.MondayOf(view.StartTime)
		byWeek[week] = append(byWeek[week], view)
	}
	weeks := make([]time.Time, 0, len(byWeek))
	for week := range byWeek {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	grouped := export.GroupedDataset{Headers: sessionExportHeaders}
	for _, week := range weeks {
		grouped.Groups = append(grouped.Groups, export.DatasetGroup{
			Title: planner.WeekLabel(week),
			Rows:  sessionExportRows(byWeek[week]),
		})
	}
	return grouped
}

func buildSessionFilter(query dto.SessionQuery) (models.SessionFilter, error) {
	filter := models.SessionFilter{
		CourseID:     query.CourseID,
		ClassGroupID: query.ClassGroupID,
		TeacherID:    query.TeacherID,
		RoomID:       query.RoomID,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if query.WeekStart != "" {
		week, err := time.Parse("2006-01-02", query.WeekStart)
		if err != nil {
			return models.SessionFilter{}, appErrors.Clone(appErrors.ErrValidation, "weekStart must be YYYY-MM-DD")
		}
		monday := planner.MondayOf(week)
		filter.WeekStart = &monday
	}
	return filter, nil
}

func sessionCacheKey(filter models.SessionFilter) string {
	week := ""
	if filter.WeekStart != nil {
		week = filter.WeekStart.Format("2006-01-02")
	}
	return fmt.Sprintf("sessions:list:%s:%s:%s:%s:%s:%d:%d",
		filter.CourseID, filter.ClassGroupID, filter.TeacherID, filter.RoomID,
		week, filter.Page, filter.PageSize)
}
