package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/repository"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type roundJobRepository interface {
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
	PublishShortlist(ctx context.Context, w repository.ShortlistWrite) error
	AppendRound(ctx context.Context, w repository.RoundWrite) error
}

type roundStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// RoundService drives applicants through the shortlist and the interview
// rounds of a job. Every write is conditional; losing a race yields the
// precise domain error after a re-read.
type RoundService struct {
	jobs        roundJobRepository
	students    roundStudentRepository
	emitter     eventEmitter
	projections projectionInvalidator
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewRoundService constructs the round state machine.
func NewRoundService(jobs roundJobRepository, students roundStudentRepository, emitter eventEmitter, projections projectionInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RoundService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoundService{
		jobs:        jobs,
		students:    students,
		emitter:     emitter,
		projections: projections,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// PublishShortlist partitions the applicants of jobID into selected and
// rejected. It succeeds at most once per job.
func (s *RoundService) PublishShortlist(ctx context.Context, jobID string, req dto.ShortlistRequest) (*dto.ShortlistResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shortlist payload")
	}
	selected := uniqueStrings(req.SelectedIDs)
	rejected := uniqueStrings(req.RejectedIDs)
	if overlap := intersection(selected, rejected); len(overlap) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("students both selected and rejected: %s", strings.Join(overlap, ", ")))
	}

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}
	if job.ShortlistPublished() {
		return nil, appErrors.Clone(appErrors.ErrShortlistAlreadyPublished, "")
	}
	applicants := uniqueStrings(job.ApplicantsIDs)
	if err := checkPartition(applicants, selected, rejected); err != nil {
		return nil, err
	}

	write := repository.ShortlistWrite{
		JobID:      jobID,
		Selected:   &models.ShortlistDecision{Students: selected, SelectedComment: req.SelectedComment},
		Rejected:   &models.ShortlistDecision{Students: rejected, RejectedComment: req.RejectedComment},
		Applicants: applicants,
		At:         s.now().UTC(),
	}
	if err := s.jobs.PublishShortlist(ctx, write); err != nil {
		if !errors.Is(err, repository.ErrConditionNotMet) {
			return nil, appErrors.Storage(err, "failed to publish shortlist")
		}
		return nil, s.shortlistConflict(ctx, jobID)
	}

	s.metrics.RecordRoundTransition("shortlist")
	s.logger.Info("shortlist published",
		zap.String("job_id", jobID),
		zap.Int("selected", len(selected)),
		zap.Int("rejected", len(rejected)),
	)
	if s.projections != nil {
		s.projections.InvalidateStudents(ctx, applicants...)
	}
	s.emit(ctx, job, models.EventShortlistPublished, "", selected, rejected, req.SelectedComment, req.RejectedComment)

	return &dto.ShortlistResult{JobID: jobID, Selected: *write.Selected, Rejected: *write.Rejected}, nil
}

// shortlistConflict re-reads the job after a lost shortlist write.
func (s *RoundService) shortlistConflict(ctx context.Context, jobID string) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}
	if job.ShortlistPublished() {
		return appErrors.Clone(appErrors.ErrShortlistAlreadyPublished, "")
	}
	return appErrors.Clone(appErrors.ErrPreconditionFailed, "applicants changed while publishing the shortlist, review and retry")
}

// RecordRound appends the outcome of an interview round. Labels are append
// only: round_k requires round_{k-1} (or the shortlist for round_1), and
// round_final closes the job. A numbered round flagged isFinal is validated
// as round_k and stored as round_final.
func (s *RoundService) RecordRound(ctx context.Context, jobID, rawLabel string, req dto.RoundRequest) (*dto.RoundResult, error) {
	label, ok := models.ParseRoundLabel(rawLabel)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidRoundTransition, fmt.Sprintf("unknown round label %q", rawLabel))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid round payload")
	}
	selected := uniqueStrings(req.SelectedIDs)
	rejected := uniqueStrings(req.RejectedIDs)
	if len(selected)+len(rejected) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a round needs at least one selected or rejected student")
	}
	if overlap := intersection(selected, rejected); len(overlap) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("students both selected and rejected: %s", strings.Join(overlap, ", ")))
	}

	final := label.Final || req.IsFinal
	record := models.RoundRecord{
		Selected:        selected,
		Rejected:        rejected,
		SelectedComment: req.SelectedComment,
		RejectedComment: req.RejectedComment,
		Final:           final,
	}
	var placed []string
	if final && len(selected) > 0 {
		placed = selected
	}

	var job *models.JobPosting
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		job, err = s.jobs.FindByID(ctx, jobID)
		if err != nil {
			return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
		}
		plan, err := planRound(job, label, selected, rejected)
		if err != nil {
			return nil, err
		}
		stored := label
		if final && !label.Final {
			plan.successor = label.String()
			stored = models.RoundLabel{Final: true}
		}

		record.UpdatedAt = s.now().UTC()
		err = s.jobs.AppendRound(ctx, repository.RoundWrite{
			JobID:       jobID,
			Label:       stored.String(),
			Predecessor: plan.predecessor,
			Successor:   plan.successor,
			Record:      record,
			Placed:      placed,
		})
		if err == nil {
			return s.afterRound(ctx, job, stored, record, placed), nil
		}
		if !errors.Is(err, repository.ErrConditionNotMet) {
			return nil, appErrors.Storage(err, "failed to record round")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "round state changed concurrently, retry the request")
}

func (s *RoundService) afterRound(ctx context.Context, job *models.JobPosting, label models.RoundLabel, record models.RoundRecord, placed []string) *dto.RoundResult {
	internal := label.String()
	kind := "round"
	if record.Final {
		kind = "final"
	}
	s.metrics.RecordRoundTransition(kind)
	s.logger.Info("round recorded",
		zap.String("job_id", job.ID),
		zap.String("round", internal),
		zap.Int("selected", len(record.Selected)),
		zap.Int("rejected", len(record.Rejected)),
		zap.Bool("final", record.Final),
	)
	if s.projections != nil {
		affected := append(append([]string{}, job.ApplicantsIDs...), record.Selected...)
		s.projections.InvalidateStudents(ctx, append(affected, record.Rejected...)...)
	}

	public := models.PublicRoundLabel(internal)
	if len(placed) > 0 {
		s.emit(ctx, job, models.EventRoundRecorded, public, nil, record.Rejected, "", record.RejectedComment)
		s.emit(ctx, job, models.EventOfferFinalised, public, placed, nil, record.SelectedComment, "")
	} else {
		s.emit(ctx, job, models.EventRoundRecorded, public, record.Selected, record.Rejected, record.SelectedComment, record.RejectedComment)
	}

	return &dto.RoundResult{
		JobID:       job.ID,
		Label:       internal,
		PublicLabel: public,
		Record:      record,
		Placed:      placed,
	}
}

// QueryState reports where the student stands in the job's pipeline.
func (s *RoundService) QueryState(ctx context.Context, jobID, studentID string) (*models.ApplicationState, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job posting")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrStudentNotFound, "failed to load student")
	}
	return stateFor(job, student, s.now().UTC()), nil
}

func (s *RoundService) emit(ctx context.Context, job *models.JobPosting, eventType models.NotificationEventType, roundLabel string, selected, rejected []string, selectedComment, rejectedComment string) {
	if s.emitter == nil {
		return
	}
	recipients := make([]models.Recipient, 0, len(selected)+len(rejected))
	for _, id := range selected {
		recipients = append(recipients, models.Recipient{StudentID: id, Outcome: models.OutcomeSelected, Comment: selectedComment})
	}
	for _, id := range rejected {
		recipients = append(recipients, models.Recipient{StudentID: id, Outcome: models.OutcomeRejected, Comment: rejectedComment})
	}
	if len(recipients) == 0 {
		return
	}
	s.emitter.Emit(ctx, models.NotificationEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		JobID:      job.ID,
		Company:    job.Company,
		Role:       job.Role,
		RoundLabel: roundLabel,
		Recipients: recipients,
		OccurredAt: s.now().UTC(),
	})
}

// roundPlan is the validated position of a new round in the job's sequence.
type roundPlan struct {
	predecessor string
	successor   string
}

// planRound checks the append-only label order and the predecessor guard.
func planRound(job *models.JobPosting, label models.RoundLabel, selected, rejected []string) (roundPlan, error) {
	rounds := job.InterviewRounds
	internal := label.String()
	if rounds.Has(internal) {
		return roundPlan{}, appErrors.Clone(appErrors.ErrRoundAlreadyRecorded, fmt.Sprintf("%s already recorded", internal))
	}
	if !job.ShortlistPublished() {
		return roundPlan{}, appErrors.Clone(appErrors.ErrInvalidRoundTransition, "shortlist has not been published")
	}
	last := rounds.LastNumbered()
	if rounds.HasFinal() || (last > 0 && rounds[models.RoundLabelFor(last)].Final) {
		return roundPlan{}, appErrors.Clone(appErrors.ErrInvalidRoundTransition, "interview process is already finalised")
	}

	var plan roundPlan
	if label.Final {
		plan.successor = models.RoundLabelFor(last + 1)
	} else if label.Index != last+1 {
		return roundPlan{}, appErrors.Clone(appErrors.ErrInvalidRoundTransition, fmt.Sprintf("next round is %s, not %s", models.RoundLabelFor(last+1), internal))
	}

	inputs := job.ShortlistSelected()
	if last > 0 {
		plan.predecessor = models.RoundLabelFor(last)
		inputs = rounds[plan.predecessor].Selected
	}
	allowed := stringSet(inputs)
	var outsiders []string
	for _, id := range append(append([]string{}, selected...), rejected...) {
		if _, ok := allowed[id]; !ok {
			outsiders = append(outsiders, id)
		}
	}
	if len(outsiders) > 0 {
		from := "the shortlist"
		if plan.predecessor != "" {
			from = plan.predecessor
		}
		return roundPlan{}, appErrors.Clone(appErrors.ErrInvalidRoundTransition,
			fmt.Sprintf("students not selected in %s: %s", from, strings.Join(sortedCopy(outsiders), ", ")))
	}
	return plan, nil
}

// checkPartition requires selected and rejected to cover the applicants exactly.
func checkPartition(applicants, selected, rejected []string) error {
	expected := stringSet(applicants)
	given := stringSet(append(append([]string{}, selected...), rejected...))

	var missing, unknown []string
	for id := range expected {
		if _, ok := given[id]; !ok {
			missing = append(missing, id)
		}
	}
	for id := range given {
		if _, ok := expected[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unknown)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "undecided applicants: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "not applicants: "+strings.Join(unknown, ", "))
	}
	return appErrors.Clone(appErrors.ErrValidation, strings.Join(parts, "; "))
}

func intersection(a, b []string) []string {
	set := stringSet(a)
	var out []string
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
