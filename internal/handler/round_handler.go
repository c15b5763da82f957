package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

type roundService interface {
	PublishShortlist(ctx context.Context, jobID string, req dto.ShortlistRequest) (*dto.ShortlistResult, error)
	RecordRound(ctx context.Context, jobID, label string, req dto.RoundRequest) (*dto.RoundResult, error)
	QueryState(ctx context.Context, jobID, studentID string) (*models.ApplicationState, error)
}

// RoundHandler exposes the shortlist and interview round endpoints.
type RoundHandler struct {
	service roundService
}

// NewRoundHandler constructs the handler.
func NewRoundHandler(service roundService) *RoundHandler {
	return &RoundHandler{service: service}
}

// PublishShortlist godoc
// @Summary Publish the shortlist of a job
// @Tags Rounds
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param payload body dto.ShortlistRequest true "Selected and rejected applicants"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "shortlistAlreadyPublished"
// @Router /jobs/{jobId}/shortlist [post]
func (h *RoundHandler) PublishShortlist(c *gin.Context) {
	var req dto.ShortlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid shortlist payload"))
		return
	}
	result, err := h.service.PublishShortlist(c.Request.Context(), c.Param("jobId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// RecordRound godoc
// @Summary Record an interview round
// @Tags Rounds
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param label path string true "round_k or round_final"
// @Param payload body dto.RoundRequest true "Round outcome"
// @Success 200 {object} response.Envelope
// @Failure 302 {object} response.Envelope "roundAlreadyRecorded"
// @Failure 400 {object} response.Envelope "invalidRoundTransition"
// @Router /jobs/{jobId}/rounds/{label} [post]
func (h *RoundHandler) RecordRound(c *gin.Context) {
	var req dto.RoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid round payload"))
		return
	}
	result, err := h.service.RecordRound(c.Request.Context(), c.Param("jobId"), c.Param("label"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// State godoc
// @Summary Query a student's state in a job
// @Tags Rounds
// @Produce json
// @Param jobId path string true "Job ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{jobId}/students/{studentId}/state [get]
func (h *RoundHandler) State(c *gin.Context) {
	state, err := h.service.QueryState(c.Request.Context(), c.Param("jobId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}
