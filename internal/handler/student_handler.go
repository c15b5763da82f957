package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/middleware"
	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/service"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

type projectionService interface {
	ProjectStudent(ctx context.Context, studentID string) (*models.StudentProjection, error)
	ProjectStudentJob(ctx context.Context, studentID, jobID string) (*models.StudentProjection, error)
}

type appliedJobsLister interface {
	ListAppliedJobs(ctx context.Context, studentID string) (*dto.AppliedJobsResponse, error)
}

type resumeUploader interface {
	Upload(ctx context.Context, studentID string, upload service.ResumeUpload) (*dto.ResumeUploadResponse, error)
}

// StudentHandler exposes the student facing placement views.
type StudentHandler struct {
	projections projectionService
	applied     appliedJobsLister
	resumes     resumeUploader
	maxUpload   int64
}

// NewStudentHandler constructs the handler. maxUpload caps the request body
// of resume uploads.
func NewStudentHandler(projections projectionService, applied appliedJobsLister, resumes resumeUploader, maxUpload int64) *StudentHandler {
	return &StudentHandler{projections: projections, applied: applied, resumes: resumes, maxUpload: maxUpload}
}

// Placement godoc
// @Summary Placement projection across applied jobs
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/placement [get]
func (h *StudentHandler) Placement(c *gin.Context) {
	projection, err := h.projections.ProjectStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projection, middleware.ExtractMeta(c))
}

// JobProjection godoc
// @Summary Placement projection for one job
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/jobs/{jobId} [get]
func (h *StudentHandler) JobProjection(c *gin.Context) {
	projection, err := h.projections.ProjectStudentJob(c.Request.Context(), c.Param("id"), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, projection)
}

// AppliedJobs godoc
// @Summary Jobs the student applied to, newest first
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/applied-jobs [get]
func (h *StudentHandler) AppliedJobs(c *gin.Context) {
	result, err := h.applied.ListAppliedJobs(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// UploadResume godoc
// @Summary Upload the student's resume
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param file formData file true "Resume"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/resume [put]
func (h *StudentHandler) UploadResume(c *gin.Context) {
	if h.resumes == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "resume storage not configured"))
		return
	}
	if h.maxUpload > 0 {
		// Leave room for the multipart envelope around the file.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+64*1024)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	result, err := h.resumes.Upload(c.Request.Context(), c.Param("id"), service.ResumeUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
