package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/middleware"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

type applicationService interface {
	Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error)
}

// ApplicationHandler exposes the apply endpoint.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Apply godoc
// @Summary Apply to a job
// @Description Students apply for themselves; admins may apply on behalf of a student.
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.ApplyRequest true "Application"
// @Success 200 {object} response.Envelope
// @Failure 302 {object} response.Envelope "closed"
// @Failure 400 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.JobID = strings.TrimSpace(req.JobID)

	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.UserType == models.UserTypeStudent {
		if req.StudentID == "" {
			req.StudentID = claims.UserID
		}
		if req.StudentID != claims.UserID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only apply for themselves"))
			return
		}
	}

	result, err := h.service.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
