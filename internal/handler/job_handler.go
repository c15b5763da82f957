package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/middleware"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

type jobService interface {
	Create(ctx context.Context, req dto.CreateJobRequest, createdBy string) (*dto.CreateJobResponse, error)
	Get(ctx context.Context, jobID string) (*models.JobPosting, error)
	EligibleStudents(ctx context.Context, jobID string) (*dto.EligibleStudentsResponse, error)
}

type applicantLister interface {
	ListApplicants(ctx context.Context, jobID string) (*dto.ApplicantsResponse, error)
}

// JobHandler exposes job posting endpoints.
type JobHandler struct {
	jobs       jobService
	applicants applicantLister
}

// NewJobHandler constructs the handler.
func NewJobHandler(jobs jobService, applicants applicantLister) *JobHandler {
	return &JobHandler{jobs: jobs, applicants: applicants}
}

// Create godoc
// @Summary Create job posting
// @Description Persists the posting and notifies every student eligible for it.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param payload body dto.CreateJobRequest true "Job posting"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid job posting payload"))
		return
	}
	var createdBy string
	if claims, ok := middleware.Claims(c); ok {
		createdBy = claims.UserID
	}
	result, err := h.jobs.Create(c.Request.Context(), req, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get job posting
// @Tags Jobs
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{jobId} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// EligibleStudents godoc
// @Summary List students eligible for a job
// @Tags Jobs
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{jobId}/eligible-students [get]
func (h *JobHandler) EligibleStudents(c *gin.Context) {
	result, err := h.jobs.EligibleStudents(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Applicants godoc
// @Summary List applicants of a job
// @Tags Jobs
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{jobId}/applicants [get]
func (h *JobHandler) Applicants(c *gin.Context) {
	result, err := h.applicants.ListApplicants(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
