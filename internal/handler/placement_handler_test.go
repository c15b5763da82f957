package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/middleware"
	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/service"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type applicationServiceMock struct {
	last dto.ApplyRequest
	err  error
}

func (m *applicationServiceMock) Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ApplyResponse{StudentID: req.StudentID, JobID: req.JobID, Outcome: models.ApplyApplied}, nil
}

type roundServiceMock struct {
	label     string
	roundErr  error
	shortlist dto.ShortlistRequest
}

func (m *roundServiceMock) PublishShortlist(ctx context.Context, jobID string, req dto.ShortlistRequest) (*dto.ShortlistResult, error) {
	m.shortlist = req
	return &dto.ShortlistResult{JobID: jobID}, nil
}

func (m *roundServiceMock) RecordRound(ctx context.Context, jobID, label string, req dto.RoundRequest) (*dto.RoundResult, error) {
	m.label = label
	if m.roundErr != nil {
		return nil, m.roundErr
	}
	return &dto.RoundResult{JobID: jobID, Label: label}, nil
}

func (m *roundServiceMock) QueryState(ctx context.Context, jobID, studentID string) (*models.ApplicationState, error) {
	return &models.ApplicationState{JobID: jobID, StudentID: studentID, Stage: models.StageApplied}, nil
}

type projectionServiceMock struct{}

func (projectionServiceMock) ProjectStudent(ctx context.Context, studentID string) (*models.StudentProjection, error) {
	return &models.StudentProjection{StudentID: studentID, Status: models.ProjectionDropout}, nil
}

func (projectionServiceMock) ProjectStudentJob(ctx context.Context, studentID, jobID string) (*models.StudentProjection, error) {
	return nil, appErrors.Clone(appErrors.ErrJobNotFound, "")
}

type resumeUploaderMock struct {
	upload service.ResumeUpload
	body   []byte
}

func (m *resumeUploaderMock) Upload(ctx context.Context, studentID string, upload service.ResumeUpload) (*dto.ResumeUploadResponse, error) {
	m.upload = upload
	m.body, _ = io.ReadAll(upload.Content)
	return &dto.ResumeUploadResponse{StudentID: studentID, URL: "https://files.example.com/t"}, nil
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, target, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestApplyDefaultsStudentToCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/applications", map[string]string{"jobId": "j1"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", UserType: models.UserTypeStudent})

	handler.Apply(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", mockSvc.last.StudentID)
	assert.Equal(t, "j1", mockSvc.last.JobID)
}

func TestApplyStudentCannotApplyForOthers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/applications", dto.ApplyRequest{StudentID: "s2", JobID: "j1"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", UserType: models.UserTypeStudent})

	handler.Apply(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, mockSvc.last.JobID)
}

func TestApplyClosedIsFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApplicationHandler(&applicationServiceMock{err: appErrors.Clone(appErrors.ErrClosed, "")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/applications", dto.ApplyRequest{StudentID: "s1", JobID: "j1"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", UserType: models.UserTypeAdmin})

	handler.Apply(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "closed", decodeEnvelope(t, w)["error"])
}

func TestRecordRoundPassesLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &roundServiceMock{}
	handler := NewRoundHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/jobs/j1/rounds/round_final", dto.RoundRequest{SelectedIDs: []string{"a"}, IsFinal: true})
	c.Params = gin.Params{{Key: "jobId", Value: "j1"}, {Key: "label", Value: "round_final"}}

	handler.RecordRound(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "round_final", mockSvc.label)
}

func TestRecordRoundDuplicateIsFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRoundHandler(&roundServiceMock{roundErr: appErrors.Clone(appErrors.ErrRoundAlreadyRecorded, "")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/jobs/j1/rounds/round_1", dto.RoundRequest{SelectedIDs: []string{"a"}})
	c.Params = gin.Params{{Key: "jobId", Value: "j1"}, {Key: "label", Value: "round_1"}}

	handler.RecordRound(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "roundAlreadyRecorded", decodeEnvelope(t, w)["error"])
}

func TestPublishShortlistInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRoundHandler(&roundServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/jobs/j1/shortlist", bytes.NewBufferString(`{"selectedIds":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.PublishShortlist(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validationError", decodeEnvelope(t, w)["error"])
}

func TestStudentProjectionEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(projectionServiceMock{}, nil, nil, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/students/s1/placement", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Placement(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "DROPOUT", data["status"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/students/s1/jobs/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}, {Key: "jobId", Value: "x"}}
	handler.JobProjection(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadResumeForwardsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uploader := &resumeUploaderMock{}
	handler := NewStudentHandler(projectionServiceMock{}, nil, uploader, 1024)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "cv.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPut, "/students/s1/resume", &body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.UploadResume(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cv.pdf", uploader.upload.Filename)
	assert.Equal(t, []byte("%PDF-1.4"), uploader.body)
}

type fileOpenerStub struct {
	path string
}

func (s fileOpenerStub) OpenSigned(token string) (*os.File, string, error) {
	if token != "good" {
		return nil, "", appErrors.ErrUnauthorized
	}
	file, err := os.Open(s.path)
	return file, "application/pdf", err
}

func TestFileDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "offer.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-offer"), 0o600))
	handler := NewFileHandler(fileOpenerStub{path: path})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/files/good", nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-offer", w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/files/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return appErrors.ErrInternal },
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
}
