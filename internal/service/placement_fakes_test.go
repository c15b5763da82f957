package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/repository"
	"github.com/noah-isme/placement-engine/pkg/jobs"
)

// placementStore is an in-memory student and job store that applies the same
// conditional write predicates as the SQL repositories.
type placementStore struct {
	mu       sync.Mutex
	students map[string]*models.Student
	jobs     map[string]*models.JobPosting

	created     []*models.JobPosting
	applyErr    error
	beforeWrite func()
}

func newPlacementStore() *placementStore {
	return &placementStore{students: map[string]*models.Student{}, jobs: map[string]*models.JobPosting{}}
}

func (s *placementStore) addStudent(st models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := copyStudent(&st)
	s.students[st.ID] = copied
}

func (s *placementStore) addJob(job models.JobPosting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(&job)
}

func (s *placementStore) student(id string) *models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStudent(s.students[id])
}

func (s *placementStore) job(id string) *models.JobPosting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyJob(s.jobs[id])
}

// hook runs beforeWrite once, outside the lock, to simulate a concurrent writer.
func (s *placementStore) hook() {
	s.mu.Lock()
	fn := s.beforeWrite
	s.beforeWrite = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *placementStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyStudent(st), nil
}

func (s *placementStore) ListCandidates(ctx context.Context) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Student{}
	for _, st := range s.students {
		if !st.Placed && st.PlacementStatus && !st.IsDropout() {
			out = append(out, *copyStudent(st))
		}
	}
	return out, nil
}

func (s *placementStore) Apply(ctx context.Context, studentID, jobID string, at time.Time) error {
	s.hook()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return s.applyErr
	}
	st, ok := s.students[studentID]
	job, jok := s.jobs[jobID]
	if !ok || !jok || st.Placed || !st.PlacementStatus || st.HasApplied(jobID) {
		return repository.ErrConditionNotMet
	}
	if job.ShortlistPublished() || at.After(job.DeadLine) || job.HasApplicant(studentID) {
		return repository.ErrConditionNotMet
	}
	st.AppliedJobs = append(st.AppliedJobs, jobID)
	job.ApplicantsIDs = append(job.ApplicantsIDs, studentID)
	return nil
}

func (s *placementStore) AddAppliedJob(ctx context.Context, studentID, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok || st.HasApplied(jobID) {
		return false, nil
	}
	st.AppliedJobs = append(st.AppliedJobs, jobID)
	return true, nil
}

func (s *placementStore) ListAllStudents() []models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Student{}
	for _, st := range s.students {
		out = append(out, *copyStudent(st))
	}
	return out
}

// jobSide exposes the job half of the store under the job repository method names.
type jobSide struct{ *placementStore }

func (j jobSide) FindByID(ctx context.Context, id string) (*models.JobPosting, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyJob(job), nil
}

func (j jobSide) FindByIDs(ctx context.Context, ids []string) ([]models.JobPosting, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []models.JobPosting{}
	for _, id := range ids {
		if job, ok := j.jobs[id]; ok {
			out = append(out, *copyJob(job))
		}
	}
	return out, nil
}

func (j jobSide) ListAll(ctx context.Context) ([]models.JobPosting, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []models.JobPosting{}
	for _, job := range j.jobs {
		out = append(out, *copyJob(job))
	}
	return out, nil
}

func (j jobSide) Create(ctx context.Context, job *models.JobPosting) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job.InterviewRounds == nil {
		job.InterviewRounds = models.InterviewRounds{}
	}
	j.jobs[job.ID] = copyJob(job)
	j.created = append(j.created, copyJob(job))
	return nil
}

func (j jobSide) AddApplicant(ctx context.Context, jobID, studentID string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[jobID]
	if !ok || job.HasApplicant(studentID) {
		return false, nil
	}
	job.ApplicantsIDs = append(job.ApplicantsIDs, studentID)
	return true, nil
}

func (j jobSide) PublishShortlist(ctx context.Context, w repository.ShortlistWrite) error {
	j.hook()
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[w.JobID]
	if !ok || job.ShortlistPublished() || !sameSet(job.ApplicantsIDs, w.Applicants) {
		return repository.ErrConditionNotMet
	}
	sel, rej := *w.Selected, *w.Rejected
	job.SelectedStudents = &sel
	job.RejectedStudents = &rej
	for _, id := range sel.Students {
		if st, ok := j.students[id]; ok {
			st.SelectedJobs = append(st.SelectedJobs, w.JobID)
		}
	}
	for _, id := range rej.Students {
		if st, ok := j.students[id]; ok {
			st.RejectedJobs = append(st.RejectedJobs, w.JobID)
		}
	}
	return nil
}

func (j jobSide) AppendRound(ctx context.Context, w repository.RoundWrite) error {
	j.hook()
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[w.JobID]
	if !ok || job.SelectedStudents == nil {
		return repository.ErrConditionNotMet
	}
	rounds := job.InterviewRounds
	if rounds.Has(w.Label) || rounds.HasFinal() {
		return repository.ErrConditionNotMet
	}
	if w.Predecessor != "" {
		prev, ok := rounds[w.Predecessor]
		if !ok || prev.Final {
			return repository.ErrConditionNotMet
		}
	}
	if w.Successor != "" && rounds.Has(w.Successor) {
		return repository.ErrConditionNotMet
	}
	if rounds == nil {
		rounds = models.InterviewRounds{}
	}
	rounds[w.Label] = w.Record
	job.InterviewRounds = rounds
	for _, id := range w.Placed {
		if st, ok := j.students[id]; ok {
			st.Placed = true
		}
	}
	return nil
}

// studentSide adapts ListAll to the student repository signature.
type studentSide struct{ *placementStore }

func (s studentSide) ListAll(ctx context.Context) ([]models.Student, error) {
	return s.ListAllStudents(), nil
}

func sameSet(a, b []string) bool {
	as, bs := stringSet(a), stringSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

func copyStudent(st *models.Student) *models.Student {
	if st == nil {
		return nil
	}
	out := *st
	out.StudentSkills = append([]string(nil), st.StudentSkills...)
	out.AppliedJobs = append([]string(nil), st.AppliedJobs...)
	out.SelectedJobs = append([]string(nil), st.SelectedJobs...)
	out.RejectedJobs = append([]string(nil), st.RejectedJobs...)
	return &out
}

func copyJob(job *models.JobPosting) *models.JobPosting {
	if job == nil {
		return nil
	}
	out := *job
	out.ApplicantsIDs = append([]string(nil), job.ApplicantsIDs...)
	if job.SelectedStudents != nil {
		sel := *job.SelectedStudents
		sel.Students = append([]string(nil), sel.Students...)
		out.SelectedStudents = &sel
	}
	if job.RejectedStudents != nil {
		rej := *job.RejectedStudents
		rej.Students = append([]string(nil), rej.Students...)
		out.RejectedStudents = &rej
	}
	if job.InterviewRounds != nil {
		out.InterviewRounds = make(models.InterviewRounds, len(job.InterviewRounds))
		for k, v := range job.InterviewRounds {
			out.InterviewRounds[k] = v
		}
	}
	return &out
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (e *recordingEmitter) Emit(ctx context.Context, event models.NotificationEvent) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return len(event.Recipients)
}

func (e *recordingEmitter) ofType(t models.NotificationEventType) []models.NotificationEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.NotificationEvent
	for _, ev := range e.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) InvalidateStudents(ctx context.Context, studentIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, studentIDs...)
}

type fakeDispatcher struct {
	mu       sync.Mutex
	jobs     []jobs.Job
	capacity int
	stopped  bool
}

func (d *fakeDispatcher) Enqueue(job jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.New("queue stopped")
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *fakeDispatcher) TryEnqueue(job jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.New("queue stopped")
	}
	if d.capacity > 0 && len(d.jobs) >= d.capacity {
		return fmt.Errorf("notifications: %w", jobs.ErrQueueFull)
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *fakeDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

var (
	legacyPosted = time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	modernPosted = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	testNow      = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return testNow }

func openStudent(id string) models.Student {
	return models.Student{
		ID:                          id,
		Name:                        "Student " + id,
		Email:                       id + "@example.com",
		Phone:                       "9876543210",
		BatchNo:                     "PFS-101",
		HighestGraduationPercentage: 72,
		YearOfPassing:               2024,
		Department:                  "CSE",
		StudentSkills:               []string{"Java", "Python"},
		PlacementStatus:             true,
	}
}

func openJob(id string) models.JobPosting {
	return models.JobPosting{
		ID:                  id,
		Company:             "Acme",
		Role:                "Backend Engineer",
		Timestamp:           modernPosted,
		DeadLine:            testNow.Add(48 * time.Hour),
		RequiredSkills:      []string{"python"},
		MinPercentage:       50,
		AllowedPassoutYears: []string{"2024"},
		AllowedDepartments:  []string{"Any Branch"},
		InterviewRounds:     models.InterviewRounds{},
	}
}
