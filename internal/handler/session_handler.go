package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edt-planner/edt-api/internal/dto"
	"github.com/edt-planner/edt-api/internal/models"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
	"github.com/edt-planner/edt-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, query dto.SessionQuery) ([]dto.SessionItem, int, error)
	Export(ctx context.Context, query dto.SessionExportQuery) (string, string, []byte, error)
}

// SessionHandler serves the generated timetable.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// List godoc
// @Summary List timetable sessions
// @Tags Sessions
// @Produce json
// @Param courseId query string false "Course filter"
// @Param classGroupId query string false "Class group filter"
// @Param teacherId query string false "Teacher filter"
// @Param roomId query string false "Room filter"
// @Param weekStart query string false "Week filter (YYYY-MM-DD, any day of the week)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "session service not configured"))
		return
	}
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid session query"))
		return
	}
	items, total, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

// Export godoc
// @Summary Export the timetable as CSV or PDF
// @Tags Sessions
// @Produce octet-stream
// @Param format query string false "csv or pdf (default csv)"
// @Param courseId query string false "Course filter"
// @Param classGroupId query string false "Class group filter"
// @Param teacherId query string false "Teacher filter"
// @Param roomId query string false "Room filter"
// @Param weekStart query string false "Week filter (YYYY-MM-DD)"
// @Success 200 {file} byte
// @Router /sessions/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "session service not configured"))
		return
	}
	var query dto.SessionExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export query"))
		return
	}
	name, contentType, payload, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
