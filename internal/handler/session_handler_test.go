package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edt-planner/edt-api/internal/dto"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
)

type sessionServiceMock struct {
	items     []dto.SessionItem
	total     int
	listErr   error
	lastQuery dto.SessionQuery

	exportName string
	exportType string
	exportData []byte
	exportErr  error
}

func (m *sessionServiceMock) List(ctx context.Context, query dto.SessionQuery) ([]dto.SessionItem, int, error) {
	m.lastQuery = query
	return m.items, m.total, m.listErr
}

func (m *sessionServiceMock) Export(ctx context.Context, query dto.SessionExportQuery) (string, string, []byte, error) {
	return m.exportName, m.exportType, m.exportData, m.exportErr
}

func TestSessionHandlerListBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		items: []dto.SessionItem{{
			ID:         "s1",
			CourseName: "Networks",
			StartTime:  time.Date(2025, time.October, 13, 8, 0, 0, 0, time.UTC),
		}},
		total: 1,
	}
	handler := NewSessionHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/sessions?classGroupId=a2&weekStart=2025-10-13&page=2", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "a2", mockSvc.lastQuery.ClassGroupID)
	require.Equal(t, "2025-10-13", mockSvc.lastQuery.WeekStart)
	require.Equal(t, 2, mockSvc.lastQuery.Page)
	require.Contains(t, w.Body.String(), "Networks")
	require.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestSessionHandlerListServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		listErr: appErrors.Clone(appErrors.ErrValidation, "weekStart must be YYYY-MM-DD"),
	}
	handler := NewSessionHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/sessions?weekStart=bogus", nil)

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerExportSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		exportName: "timetable-20251013.csv",
		exportType: "text/csv",
		exportData: []byte("Date,Start,End\n"),
	}
	handler := NewSessionHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/sessions/export?format=csv", nil)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "timetable-20251013.csv")
}

func TestSessionHandlerExportDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		exportErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"),
	}
	handler := NewSessionHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/sessions/export", nil)

	handler.Export(c)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}
