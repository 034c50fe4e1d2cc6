package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edt-planner/edt-api/internal/dto"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
	"github.com/edt-planner/edt-api/pkg/response"
)

type generationService interface {
	Submit(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	Status(jobID string) (*dto.JobStatusResponse, error)
	Cancel(jobID string) error
	Result(jobID string) (*dto.JobResultResponse, error)
}

// GenerationHandler manages timetable generation endpoints.
type GenerationHandler struct {
	service generationService
}

// NewGenerationHandler constructs the handler.
func NewGenerationHandler(service generationService) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// Generate godoc
// @Summary Start a timetable generation job
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Generation request"
// @Success 202 {object} response.Envelope
// @Router /generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation service not configured"))
		return
	}
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid generation payload"))
		return
	}
	resp, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// Status godoc
// @Summary Live progress of a generation job
// @Tags Generation
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /generate/{id}/status [get]
func (h *GenerationHandler) Status(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation service not configured"))
		return
	}
	resp, err := h.service.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Cancel godoc
// @Summary Cancel a queued or running generation job
// @Tags Generation
// @Produce json
// @Param id path string true "Job ID"
// @Success 204
// @Router /generate/{id}/cancel [post]
func (h *GenerationHandler) Cancel(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation service not configured"))
		return
	}
	if err := h.service.Cancel(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Result godoc
// @Summary Final outcome of a finished generation job
// @Tags Generation
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /generate/{id}/result [get]
func (h *GenerationHandler) Result(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation service not configured"))
		return
	}
	resp, err := h.service.Result(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
