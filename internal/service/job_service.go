package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type jobPostingRepository interface {
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
	Create(ctx context.Context, job *models.JobPosting) error
}

type candidateRepository interface {
	ListCandidates(ctx context.Context) ([]models.Student, error)
}

// JobService creates postings and announces them to the eligible audience.
type JobService struct {
	jobs      jobPostingRepository
	students  candidateRepository
	evaluator *EligibilityEvaluator
	emitter   eventEmitter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewJobService constructs the posting service.
func NewJobService(jobs jobPostingRepository, students candidateRepository, evaluator *EligibilityEvaluator, emitter eventEmitter, validate *validator.Validate, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if evaluator == nil {
		evaluator = NewEligibilityEvaluator(time.Time{})
	}
	return &JobService{
		jobs:      jobs,
		students:  students,
		evaluator: evaluator,
		emitter:   emitter,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create persists a posting and emits job_posted to every student eligible
// for it at creation time.
func (s *JobService) Create(ctx context.Context, req dto.CreateJobRequest, createdBy string) (*dto.CreateJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job posting payload")
	}
	if req.DeadLine.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadLine is required")
	}

	job := &models.JobPosting{
		ID:                  uuid.NewString(),
		Company:             strings.TrimSpace(req.Company),
		Role:                strings.TrimSpace(req.JobRole),
		Description:         req.Description,
		Timestamp:           s.now().UTC(),
		DeadLine:            req.DeadLine.UTC(),
		RequiredSkills:      pq.StringArray(req.RequiredSkills),
		MinPercentage:       req.MinPercentage,
		AllowedPassoutYears: pq.StringArray(req.AllowedPassoutYears),
		AllowedDepartments:  pq.StringArray(req.AllowedDepartments),
		Stack:               pq.StringArray(req.Stack),
		CreatedBy:           createdBy,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Storage(err, "failed to create job posting")
	}

	eligible, err := s.eligible(ctx, job)
	if err != nil {
		// The posting stands; only the announcement is lost.
		s.logger.Error("failed to resolve eligible audience", zap.String("job_id", job.ID), zap.Error(err))
		return &dto.CreateJobResponse{Job: job}, nil
	}

	if s.emitter != nil && len(eligible) > 0 {
		recipients := make([]models.Recipient, 0, len(eligible))
		for _, id := range eligible {
			recipients = append(recipients, models.Recipient{StudentID: id, Outcome: models.OutcomeEligible})
		}
		s.emitter.Emit(ctx, models.NotificationEvent{
			ID:         uuid.NewString(),
			Type:       models.EventJobPosted,
			JobID:      job.ID,
			Company:    job.Company,
			Role:       job.Role,
			DeadLine:   job.DeadLine,
			Recipients: recipients,
			OccurredAt: s.now().UTC(),
		})
	}
	s.logger.Info("job posting created",
		zap.String("job_id", job.ID),
		zap.String("company", job.Company),
		zap.Int("eligible", len(eligible)),
	)
	return &dto.CreateJobResponse{Job: job, EligibleCount: len(eligible)}, nil
}

// Get returns a single posting.
func (s *JobService) Get(ctx context.Context, jobID string) (*models.JobPosting, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}
	return job, nil
}

// EligibleStudents lists the students eligible for jobID right now.
func (s *JobService) EligibleStudents(ctx context.Context, jobID string) (*dto.EligibleStudentsResponse, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ids, err := s.eligible(ctx, job)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list candidate students")
	}
	return &dto.EligibleStudentsResponse{JobID: jobID, StudentIDs: ids, Count: len(ids)}, nil
}

func (s *JobService) eligible(ctx context.Context, job *models.JobPosting) ([]string, error) {
	candidates, err := s.students.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	matched := s.evaluator.Filter(job, candidates)
	ids := make([]string, 0, len(matched))
	for i := range matched {
		ids = append(ids, matched[i].ID)
	}
	return sortedCopy(ids), nil
}
