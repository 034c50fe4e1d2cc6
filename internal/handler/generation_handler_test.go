package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edt-planner/edt-api/internal/dto"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
)

type generationServiceMock struct {
	submitResp *dto.GenerateResponse
	submitErr  error
	statusResp *dto.JobStatusResponse
	statusErr  error
	cancelErr  error
	resultResp *dto.JobResultResponse
	resultErr  error
}

func (m *generationServiceMock) Submit(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	return m.submitResp, m.submitErr
}

func (m *generationServiceMock) Status(jobID string) (*dto.JobStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *generationServiceMock) Cancel(jobID string) error {
	return m.cancelErr
}

func (m *generationServiceMock) Result(jobID string) (*dto.JobResultResponse, error) {
	return m.resultResp, m.resultErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestGenerationHandlerGenerateAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &generationServiceMock{
		submitResp: &dto.GenerateResponse{JobID: "job-1", StatusURL: "/api/v1/generate/job-1/status"},
	}
	handler := NewGenerationHandler(mockSvc)

	payload, _ := json.Marshal(dto.GenerateRequest{CourseIDs: []string{"networks"}})
	c, w := newGinContext(http.MethodPost, "/generate", payload)

	handler.Generate(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "job-1")
}

func TestGenerationHandlerGenerateBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGenerationHandler(&generationServiceMock{})

	c, w := newGinContext(http.MethodPost, "/generate", []byte("{not json"))

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerationHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &generationServiceMock{
		statusResp: &dto.JobStatusResponse{JobID: "job-1", State: "running", Percent: 40},
	}
	handler := NewGenerationHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/generate/job-1/status", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "running")
}

func TestGenerationHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &generationServiceMock{
		statusErr: appErrors.Clone(appErrors.ErrNotFound, "unknown generation job"),
	}
	handler := NewGenerationHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/generate/nope/status", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	handler.Status(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerationHandlerCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGenerationHandler(&generationServiceMock{})

	c, w := newGinContext(http.MethodPost, "/generate/job-1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.Cancel(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestGenerationHandlerResultConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &generationServiceMock{
		resultErr: appErrors.Clone(appErrors.ErrConflict, "generation job still running"),
	}
	handler := NewGenerationHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/generate/job-1/result", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.Result(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
