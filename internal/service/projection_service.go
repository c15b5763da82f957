package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

const projectionCachePrefix = "placement:projection:"

type projectionStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type projectionJobRepository interface {
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.JobPosting, error)
}

// ProjectionService is the read-only placement projector. It derives, per
// student, the status chain across applied jobs.
type ProjectionService struct {
	students projectionStudentRepository
	jobs     projectionJobRepository
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewProjectionService constructs the projector. cache may be nil.
func NewProjectionService(students projectionStudentRepository, jobs projectionJobRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ProjectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectionService{students: students, jobs: jobs, cache: cache, ttl: ttl, logger: logger}
}

// ProjectStudent projects every applied job of the student, newest first.
func (s *ProjectionService) ProjectStudent(ctx context.Context, studentID string) (*models.StudentProjection, error) {
	if key, ok := s.cache.Versioned(ctx, projectionKey(studentID)); ok {
		var cached models.StudentProjection
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
		value, err := s.cache.Load(ctx, key, s.ttl, func() (interface{}, error) {
			return s.projectStudent(ctx, studentID)
		})
		if err != nil {
			return nil, err
		}
		return value.(*models.StudentProjection), nil
	}
	return s.projectStudent(ctx, studentID)
}

func (s *ProjectionService) projectStudent(ctx context.Context, studentID string) (*models.StudentProjection, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrStudentNotFound, "failed to load student")
	}
	if special := specialProjection(student); special != nil {
		return special, nil
	}

	jobs, err := s.jobs.FindByIDs(ctx, uniqueStrings(student.AppliedJobs))
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load applied jobs")
	}
	sortJobsNewestFirst(jobs)

	projection := &models.StudentProjection{
		StudentID: studentID,
		Status:    models.ProjectionChain,
		Jobs:      make([]models.JobProjection, 0, len(jobs)),
	}
	for i := range jobs {
		projection.Jobs = append(projection.Jobs, projectJob(&jobs[i], studentID, true))
	}
	return projection, nil
}

// ProjectStudentJob projects a single (student, job) pair.
func (s *ProjectionService) ProjectStudentJob(ctx context.Context, studentID, jobID string) (*models.StudentProjection, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrStudentNotFound, "failed to load student")
	}
	if special := specialProjection(student); special != nil {
		return special, nil
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}

	applied := student.HasApplied(jobID) || job.HasApplicant(studentID)
	return &models.StudentProjection{
		StudentID: studentID,
		Status:    models.ProjectionChain,
		Jobs:      []models.JobProjection{projectJob(job, studentID, applied)},
	}, nil
}

// InvalidateStudents retires cached projections. Call it after the write commits.
func (s *ProjectionService) InvalidateStudents(ctx context.Context, studentIDs ...string) {
	if !s.cache.Enabled() || len(studentIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(studentIDs))
	for _, id := range uniqueStrings(studentIDs) {
		keys = append(keys, projectionKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("projection cache invalidation failed", zap.Int("students", len(keys)), zap.Error(err))
	}
}

// specialProjection returns the tagged result for students whose status
// replaces the chain: dropouts, opted-out and placed students.
func specialProjection(student *models.Student) *models.StudentProjection {
	switch {
	case student.IsDropout():
		return &models.StudentProjection{StudentID: student.ID, Status: models.ProjectionDropout}
	case !student.PlacementStatus:
		return &models.StudentProjection{StudentID: student.ID, Status: models.ProjectionNotEligible, Message: models.NotEligibleMessage}
	case student.Placed:
		return &models.StudentProjection{StudentID: student.ID, Status: models.ProjectionPlaced}
	}
	return nil
}

func projectJob(job *models.JobPosting, studentID string, applied bool) models.JobProjection {
	chain, next := buildChain(job, studentID, applied)
	return models.JobProjection{
		JobID:     job.ID,
		Company:   job.Company,
		Role:      job.Role,
		Timestamp: job.Timestamp,
		Chain:     publicChain(chain),
		NextLabel: publicLabelPtr(next),
	}
}

// buildChain walks the job's decisions for the student and returns the chain
// with internal labels plus the next expected label, if any.
func buildChain(job *models.JobPosting, studentID string, applied bool) ([]models.ChainEntry, *string) {
	if !applied {
		return []models.ChainEntry{}, labelPtr(models.PublicApplied)
	}
	chain := []models.ChainEntry{{Label: models.PublicApplied, Status: models.RoundStatusSelected}}

	if !job.ShortlistPublished() {
		chain = append(chain, models.ChainEntry{Label: models.PublicShortlisted, Status: models.RoundStatusPending})
		return chain, labelPtr(models.PublicShortlisted)
	}
	if !job.SelectedStudents.Contains(studentID) {
		chain = append(chain, models.ChainEntry{Label: models.PublicShortlisted, Status: models.RoundStatusRejected})
		return chain, nil
	}
	chain = append(chain, models.ChainEntry{Label: models.PublicShortlisted, Status: models.RoundStatusSelected})

	rounds := job.InterviewRounds
	for _, k := range rounds.Numbered() {
		label := models.RoundLabelFor(k)
		record := rounds[label]
		status := record.StatusOf(studentID)
		chain = append(chain, models.ChainEntry{Label: label, Status: status})
		switch status {
		case models.RoundStatusRejected:
			return chain, nil
		case models.RoundStatusPending:
			return chain, labelPtr(label)
		}
		if record.Final {
			return chain, nil
		}
	}

	if final, ok := rounds[models.RoundFinal]; ok {
		status := final.StatusOf(studentID)
		chain = append(chain, models.ChainEntry{Label: models.RoundFinal, Status: status})
		if status == models.RoundStatusPending {
			return chain, labelPtr(models.RoundFinal)
		}
		return chain, nil
	}

	next := models.RoundLabelFor(rounds.LastNumbered() + 1)
	chain = append(chain, models.ChainEntry{Label: next, Status: models.RoundStatusPending})
	return chain, labelPtr(next)
}

// deriveStage maps the chain onto the round state machine.
func deriveStage(job *models.JobPosting, chain []models.ChainEntry, now time.Time) models.ApplicationStage {
	if len(chain) == 0 {
		return models.StageNotApplied
	}
	stage := models.StageApplied
	for _, entry := range chain[1:] {
		switch entry.Label {
		case models.PublicShortlisted:
			switch entry.Status {
			case models.RoundStatusSelected:
				stage = models.StageShortlisted
			case models.RoundStatusRejected:
				return models.StageRejectedShortlist
			default:
				if now.After(job.DeadLine) {
					return models.StageLapsed
				}
				return models.StageApplied
			}
		case models.RoundFinal:
			switch entry.Status {
			case models.RoundStatusSelected:
				return models.StageOffered
			case models.RoundStatusRejected:
				return models.StageRejectedFinal
			}
			return stage
		default:
			label, ok := models.ParseRoundLabel(entry.Label)
			if !ok {
				continue
			}
			switch entry.Status {
			case models.RoundStatusSelected:
				stage = models.StageRound(label.Index)
				if job.InterviewRounds[entry.Label].Final {
					return models.StageOffered
				}
			case models.RoundStatusRejected:
				return models.StageRejectedAt(label.Index)
			default:
				return stage
			}
		}
	}
	return stage
}

// stateFor assembles the queryState view of a (job, student) pair.
func stateFor(job *models.JobPosting, student *models.Student, now time.Time) *models.ApplicationState {
	applied := student.HasApplied(job.ID) || job.HasApplicant(student.ID)
	chain, next := buildChain(job, student.ID, applied)
	stage := deriveStage(job, chain, now)
	state := &models.ApplicationState{
		JobID:       job.ID,
		StudentID:   student.ID,
		Stage:       stage,
		Terminal:    stage.Terminal(),
		Chain:       chain,
		PublicChain: publicChain(chain),
	}
	if !state.Terminal {
		state.NextLabel = next
	}
	return state
}

func publicChain(chain []models.ChainEntry) []models.ChainEntry {
	out := make([]models.ChainEntry, len(chain))
	for i, entry := range chain {
		out[i] = models.ChainEntry{Label: models.PublicRoundLabel(entry.Label), Status: entry.Status}
	}
	return out
}

func labelPtr(label string) *string {
	return &label
}

func publicLabelPtr(label *string) *string {
	if label == nil {
		return nil
	}
	return labelPtr(models.PublicRoundLabel(*label))
}

func projectionKey(studentID string) string {
	return projectionCachePrefix + studentID
}
