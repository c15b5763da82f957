package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type reconcileStudentRepository interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	AddAppliedJob(ctx context.Context, studentID, jobID string) (bool, error)
}

type reconcileJobRepository interface {
	ListAll(ctx context.Context) ([]models.JobPosting, error)
	AddApplicant(ctx context.Context, jobID, studentID string) (bool, error)
}

// ReconcileService restores the two-sided applicant relation. It only ever
// adds the missing side; membership is never removed.
type ReconcileService struct {
	students    reconcileStudentRepository
	jobs        reconcileJobRepository
	projections projectionInvalidator
	logger      *zap.Logger
}

// NewReconcileService constructs the repair service.
func NewReconcileService(students reconcileStudentRepository, jobs reconcileJobRepository, projections projectionInvalidator, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{students: students, jobs: jobs, projections: projections, logger: logger}
}

// Run scans both collections and reports drift. Unless dryRun is set the
// missing side of each pair is written back. Pairs whose other end no
// longer exists are counted as unresolvable.
func (s *ReconcileService) Run(ctx context.Context, dryRun bool) (*dto.ReconcileReport, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list students")
	}
	jobs, err := s.jobs.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list job postings")
	}

	report := &dto.ReconcileReport{
		DryRun:          dryRun,
		StudentsScanned: len(students),
		JobsScanned:     len(jobs),
		Drift:           []dto.ReconcileDrift{},
	}

	studentByID := make(map[string]*models.Student, len(students))
	for i := range students {
		studentByID[students[i].ID] = &students[i]
	}
	jobByID := make(map[string]*models.JobPosting, len(jobs))
	for i := range jobs {
		jobByID[jobs[i].ID] = &jobs[i]
	}

	for i := range students {
		student := &students[i]
		for _, jobID := range uniqueStrings(student.AppliedJobs) {
			job, ok := jobByID[jobID]
			if !ok {
				report.Unresolvable++
				s.logger.Warn("applied job does not exist", zap.String("student_id", student.ID), zap.String("job_id", jobID))
				continue
			}
			if job.HasApplicant(student.ID) {
				continue
			}
			report.Drift = append(report.Drift, dto.ReconcileDrift{StudentID: student.ID, JobID: jobID, Missing: dto.DriftMissingApplicant})
		}
	}
	for i := range jobs {
		job := &jobs[i]
		for _, studentID := range uniqueStrings(job.ApplicantsIDs) {
			student, ok := studentByID[studentID]
			if !ok {
				report.Unresolvable++
				s.logger.Warn("applicant does not exist", zap.String("job_id", job.ID), zap.String("student_id", studentID))
				continue
			}
			if student.HasApplied(job.ID) {
				continue
			}
			report.Drift = append(report.Drift, dto.ReconcileDrift{StudentID: studentID, JobID: job.ID, Missing: dto.DriftMissingAppliedJob})
		}
	}
	sort.SliceStable(report.Drift, func(i, j int) bool {
		a, b := report.Drift[i], report.Drift[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.JobID < b.JobID
	})

	if dryRun {
		s.logger.Info("reconciliation dry run", zap.Int("drift", len(report.Drift)), zap.Int("unresolvable", report.Unresolvable))
		return report, nil
	}

	var touched []string
	for i := range report.Drift {
		drift := &report.Drift[i]
		var changed bool
		var err error
		switch drift.Missing {
		case dto.DriftMissingApplicant:
			changed, err = s.jobs.AddApplicant(ctx, drift.JobID, drift.StudentID)
		case dto.DriftMissingAppliedJob:
			changed, err = s.students.AddAppliedJob(ctx, drift.StudentID, drift.JobID)
		}
		if err != nil {
			return report, appErrors.Storage(err, "failed to repair applicant relation")
		}
		drift.Repaired = changed
		if changed {
			report.Repaired++
			touched = append(touched, drift.StudentID)
		}
	}
	if s.projections != nil && len(touched) > 0 {
		s.projections.InvalidateStudents(ctx, uniqueStrings(touched)...)
	}
	s.logger.Info("reconciliation finished",
		zap.Int("drift", len(report.Drift)),
		zap.Int("repaired", report.Repaired),
		zap.Int("unresolvable", report.Unresolvable),
	)
	return report, nil
}
