package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/repository"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type applicationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type applicationJobRepository interface {
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.JobPosting, error)
}

type applicationWriter interface {
	Apply(ctx context.Context, studentID, jobID string, at time.Time) error
}

// ApplicationService is the application registry: it records which students
// applied to which jobs and keeps both sides of the relation in step.
type ApplicationService struct {
	students    applicationStudentRepository
	jobs        applicationJobRepository
	writer      applicationWriter
	evaluator   *EligibilityEvaluator
	validator   *validator.Validate
	projections projectionInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewApplicationService constructs the registry.
func NewApplicationService(students applicationStudentRepository, jobs applicationJobRepository, writer applicationWriter, evaluator *EligibilityEvaluator, projections projectionInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if evaluator == nil {
		evaluator = NewEligibilityEvaluator(time.Time{})
	}
	return &ApplicationService{
		students:    students,
		jobs:        jobs,
		writer:      writer,
		evaluator:   evaluator,
		validator:   validate,
		projections: projections,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Apply records studentID's application to jobID. A write that loses a race
// is re-evaluated once against fresh state so the caller sees the precise
// reason; a second loss surfaces as preconditionFailed.
func (s *ApplicationService) Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentId and jobId are required")
	}

	for attempt := 0; attempt < 2; attempt++ {
		now := s.now().UTC()
		if err := s.checkPreconditions(ctx, req.StudentID, req.JobID, now); err != nil {
			s.recordOutcome(err)
			return nil, err
		}

		err := s.writer.Apply(ctx, req.StudentID, req.JobID, now)
		if err == nil {
			s.metrics.RecordApplication(string(models.ApplyApplied))
			if s.projections != nil {
				s.projections.InvalidateStudents(ctx, req.StudentID)
			}
			s.logger.Info("application recorded",
				zap.String("student_id", req.StudentID),
				zap.String("job_id", req.JobID),
			)
			return &dto.ApplyResponse{StudentID: req.StudentID, JobID: req.JobID, Outcome: models.ApplyApplied}, nil
		}
		if !errors.Is(err, repository.ErrConditionNotMet) {
			return nil, appErrors.Storage(err, "failed to record application")
		}
		s.logger.Debug("application write lost a race, re-evaluating",
			zap.String("student_id", req.StudentID),
			zap.String("job_id", req.JobID),
			zap.Int("attempt", attempt+1),
		)
	}

	s.metrics.RecordApplication(appErrors.ErrPreconditionFailed.Code)
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application state changed concurrently, retry the request")
}

// checkPreconditions evaluates the apply rules in order and returns the
// first violated one as a domain error.
func (s *ApplicationService) checkPreconditions(ctx context.Context, studentID, jobID string, now time.Time) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return lookupError(err, appErrors.ErrStudentNotFound, "failed to load student")
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}

	switch {
	case student.Placed:
		return appErrors.Clone(appErrors.ErrStudentPlaced, "")
	case !student.PlacementStatus:
		return appErrors.Clone(appErrors.ErrStudentOptedOut, "")
	case now.After(job.DeadLine):
		return appErrors.Clone(appErrors.ErrDeadlinePassed, "")
	case job.ShortlistPublished():
		return appErrors.Clone(appErrors.ErrClosed, "")
	case student.HasApplied(jobID) || job.HasApplicant(studentID):
		return appErrors.Clone(appErrors.ErrAlreadyApplied, "")
	}

	if result := s.evaluator.Evaluate(job, student); !result.Eligible {
		return appErrors.Clone(appErrors.ErrNotEligible, fmt.Sprintf("student is not eligible for this job: %s", result.Reason))
	}
	return nil
}

func (s *ApplicationService) recordOutcome(err error) {
	if appErr := appErrors.FromError(err); appErr != nil {
		s.metrics.RecordApplication(appErr.Code)
	}
}

// ListAppliedJobs returns the student's applications ordered by job
// timestamp, newest first.
func (s *ApplicationService) ListAppliedJobs(ctx context.Context, studentID string) (*dto.AppliedJobsResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrStudentNotFound, "failed to load student")
	}
	jobs, err := s.jobs.FindByIDs(ctx, uniqueStrings(student.AppliedJobs))
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load applied jobs")
	}
	sortJobsNewestFirst(jobs)

	applied := make([]models.AppliedJob, 0, len(jobs))
	for _, job := range jobs {
		applied = append(applied, models.AppliedJob{
			JobID:     job.ID,
			Company:   job.Company,
			Role:      job.Role,
			Timestamp: job.Timestamp,
			DeadLine:  job.DeadLine,
		})
	}
	return &dto.AppliedJobsResponse{StudentID: studentID, Jobs: applied}, nil
}

// ListApplicants returns the set of students who applied to jobID.
func (s *ApplicationService) ListApplicants(ctx context.Context, jobID string) (*dto.ApplicantsResponse, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}
	applicants := sortedCopy(uniqueStrings(job.ApplicantsIDs))
	return &dto.ApplicantsResponse{JobID: jobID, Applicants: applicants, Count: len(applicants)}, nil
}
